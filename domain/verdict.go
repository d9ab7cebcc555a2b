package domain

import "strings"

// Tone is the display category for a verdict.
type Tone string

const (
	ToneReal      Tone = "real"
	ToneUncertain Tone = "uncertain"
	ToneAI        Tone = "ai"
)

// Verdict is the oracle's classification of an image.
type Verdict struct {
	Confidence int    `json:"confidence"`
	Label      string `json:"verdict"`
	Tone       Tone   `json:"tone"`
	Band       Tone   `json:"band"`
}

// NewVerdict clamps the confidence to 0..100 and fills in display hints.
func NewVerdict(confidence int, label string) Verdict {
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 100:
		confidence = 100
	}
	return Verdict{
		Confidence: confidence,
		Label:      label,
		Tone:       ToneForLabel(label),
		Band:       BandForConfidence(confidence),
	}
}

// ToneForLabel maps an oracle label to its display tone.
func ToneForLabel(label string) Tone {
	switch {
	case strings.Contains(label, "Real"):
		return ToneReal
	case strings.Contains(label, "Uncertain"):
		return ToneUncertain
	default:
		return ToneAI
	}
}

// BandForConfidence colors the AI-likelihood bar.
func BandForConfidence(confidence int) Tone {
	switch {
	case confidence >= 70:
		return ToneAI
	case confidence >= 40:
		return ToneUncertain
	default:
		return ToneReal
	}
}

// Analysis is the result of one successful analyze call.
type Analysis struct {
	Verdict   Verdict   `json:"result"`
	Allowance Allowance `json:"usage"`
}
