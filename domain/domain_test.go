package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWeeklyLimit(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"5":     5,
		" 10 ":  10,
		"":      DefaultWeeklyLimit,
		"three": DefaultWeeklyLimit,
		"2.5":   DefaultWeeklyLimit,
		"0":     0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseWeeklyLimit(in), "input %q", in)
	}
}

func TestParseAIEnabled(t *testing.T) {
	t.Parallel()

	assert.True(t, ParseAIEnabled("true"))
	assert.True(t, ParseAIEnabled(""))
	assert.True(t, ParseAIEnabled("garbage"))
	assert.False(t, ParseAIEnabled("false"))
	assert.False(t, ParseAIEnabled("0"))
}

func TestNewAllowance(t *testing.T) {
	t.Parallel()

	a := NewAllowance(3, 1, false)
	assert.Equal(t, 2, a.Remaining)
	assert.False(t, a.LimitReached)
	assert.Empty(t, a.Notice)

	a = NewAllowance(3, 7, false)
	assert.Equal(t, 0, a.Remaining)
	assert.True(t, a.LimitReached)
	assert.Contains(t, a.Notice, "Upgrade")

	a = NewAllowance(1, 1, true)
	assert.True(t, a.LimitReached)
	assert.Contains(t, a.Notice, "Sign in")
}

func TestNewVerdict(t *testing.T) {
	t.Parallel()

	v := NewVerdict(92, "Likely AI-Generated")
	assert.Equal(t, ToneAI, v.Tone)
	assert.Equal(t, ToneAI, v.Band)

	v = NewVerdict(12, "Likely Real")
	assert.Equal(t, ToneReal, v.Tone)
	assert.Equal(t, ToneReal, v.Band)

	v = NewVerdict(55, "Uncertain")
	assert.Equal(t, ToneUncertain, v.Tone)
	assert.Equal(t, ToneUncertain, v.Band)

	assert.Equal(t, 100, NewVerdict(140, "x").Confidence)
	assert.Equal(t, 0, NewVerdict(-3, "x").Confidence)
}

func TestImage(t *testing.T) {
	t.Parallel()

	img := Image{MediaType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	assert.True(t, img.IsImage())
	assert.Equal(t, "data:image/png;base64,iVBORw==", img.DataURL())

	assert.False(t, Image{MediaType: "application/pdf", Data: []byte("x")}.IsImage())
	assert.False(t, Image{MediaType: "image/jpeg"}.IsImage())
}

func TestIsDomainError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", WrapError(ErrCodeOracleFailure, "analysis failed", errors.New("boom")))
	assert.True(t, IsDomainError(wrapped, ErrCodeOracleFailure))
	assert.False(t, IsDomainError(wrapped, ErrCodeInternal))
	assert.Equal(t, "outer: analysis failed: boom", wrapped.Error())
}

func TestActor(t *testing.T) {
	t.Parallel()

	a := Identified("u1", "a@b.c", "", "tok")
	assert.True(t, a.IsIdentified())
	assert.Equal(t, RoleUser, a.Role)
	assert.False(t, Anonymous("dev").IsIdentified())
}
