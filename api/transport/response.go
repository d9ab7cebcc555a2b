package transport

import (
	"encoding/json"

	"github.com/fastygo/satyalens/domain"
)

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// QuotaResponse reports the caller's remaining scans.
type QuotaResponse struct {
	Remaining    int    `json:"remaining"`
	Limit        int    `json:"limit"`
	LimitReached bool   `json:"limit_reached"`
	Anonymous    bool   `json:"anonymous"`
	Notice       string `json:"notice,omitempty"`
}

func NewQuotaResponse(actor domain.Actor, allowance domain.Allowance) QuotaResponse {
	return QuotaResponse{
		Remaining:    allowance.Remaining,
		Limit:        allowance.Limit,
		LimitReached: allowance.LimitReached,
		Anonymous:    !actor.IsIdentified(),
		Notice:       allowance.Notice,
	}
}

// SettingUpdated acknowledges a toggle write.
type SettingUpdated struct {
	Success bool `json:"success"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with optional metadata.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
