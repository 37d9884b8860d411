package terminal

import (
	"encoding/base64"

	"github.com/computesdk/computesdk-sub001/wire"
)

// Encoding is the framing the server tags output bytes with.
type Encoding string

const (
	EncodingRaw    Encoding = "raw"
	EncodingBase64 Encoding = "base64"
)

// decodeOutput resolves an output field against its frame's encoding
// tag, falling back to defaultEncoding when the tag is absent (§4.6).
func decodeOutput(m wire.Map, defaultEncoding Encoding) (string, error) {
	output, _ := m.GetString("output")
	enc := defaultEncoding
	if tag, ok := m.GetString("encoding"); ok {
		enc = Encoding(tag)
	}
	if enc == EncodingBase64 {
		raw, err := base64.StdEncoding.DecodeString(output)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return output, nil
}
