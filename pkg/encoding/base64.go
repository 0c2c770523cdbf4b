// Package encoding provides JSON-safe wrappers for raw bytes. Manifest
// values that are not valid UTF-8 travel as standard base64 strings;
// content checksums travel as lowercase hex strings.
package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// StdBase64Data is a byte slice that marshals to a standard-base64 JSON
// string. JSON null unmarshals to a nil slice.
type StdBase64Data []byte

// MarshalJSON implements json.Marshaler.
func (b StdBase64Data) MarshalJSON() ([]byte, error) {
	return quoted(base64.StdEncoding.EncodeToString(b)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *StdBase64Data) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data, "base64")
	if err != nil || null {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("encoding: decode base64: %w", err)
	}
	*b = decoded
	return nil
}

// String returns the base64-encoded representation.
func (b StdBase64Data) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// HexData is a byte slice that marshals to a lowercase-hex JSON string.
// JSON null unmarshals to a nil slice.
type HexData []byte

// MarshalJSON implements json.Marshaler.
func (h HexData) MarshalJSON() ([]byte, error) {
	return quoted(hex.EncodeToString(h)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexData) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data, "hex")
	if err != nil || null {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("encoding: decode hex: %w", err)
	}
	*h = decoded
	return nil
}

// String returns the hex-encoded representation.
func (h HexData) String() string {
	return hex.EncodeToString(h)
}

// quoted wraps s in JSON quotes. Both alphabets are escape-free, so plain
// concatenation is valid JSON.
func quoted(s string) []byte {
	buf := make([]byte, 0, len(s)+2)
	buf = append(buf, '"')
	buf = append(buf, s...)
	buf = append(buf, '"')
	return buf
}

// unquote strips the JSON quotes from data. A JSON null reports null=true
// with no error and no value.
func unquote(data []byte, what string) (s string, null bool, err error) {
	if len(data) == 0 {
		return "", false, fmt.Errorf("encoding: empty %s value", what)
	}
	if data[0] == 'n' { // null
		return "", true, nil
	}
	if data[0] != '"' || len(data) < 2 || data[len(data)-1] != '"' {
		return "", false, fmt.Errorf("encoding: %s value must be a JSON string", what)
	}
	return string(data[1 : len(data)-1]), false, nil
}
