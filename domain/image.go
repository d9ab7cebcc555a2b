package domain

import (
	"encoding/base64"
	"strings"
)

// Image is an uploaded file as declared by the client.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// IsImage only trusts the declared media type; content sniffing is the oracle's job.
func (i Image) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(i.MediaType)), "image/") && len(i.Data) > 0
}

// DataURL encodes the image the way browsers do for FileReader.readAsDataURL.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
