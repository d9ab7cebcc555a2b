package transport

import (
	"bytes"
	"encoding/json"
)

// SettingRequest is the admin toggle write body. Value accepts a JSON string,
// bool or number.
type SettingRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ValueText returns the value as stored text. Strings are unquoted, bools and
// numbers keep their literal form. Anything else is rejected.
func (r SettingRequest) ValueText() (string, bool) {
	raw := bytes.TrimSpace(r.Value)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return string(raw), true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

// ImageField is the multipart field carrying the uploaded image.
const ImageField = "image"
