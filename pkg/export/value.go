package export

import (
	"unicode/utf8"

	"github.com/vecdump/vecdump/pkg/encoding"
	"github.com/vecdump/vecdump/pkg/store"
	"github.com/vecdump/vecdump/pkg/vector"
)

// Entry is one exported key with its projected value. Entries are built
// once per key and handed to the writer; they are not mutated afterwards.
type Entry struct {
	Key   string        `json:"key"`
	Type  store.KeyType `json:"type"`
	Value any           `json:"value"`
}

// FloatArray is the manifest form of a packed embedding vector.
type FloatArray struct {
	Type       string    `json:"type"` // always "float32_array"
	Dimensions int       `json:"dimensions"`
	Data       []float32 `json:"data"`
}

// BinaryData is the manifest form of a value that is not valid UTF-8.
// The manifest is textual JSON, so raw bytes always travel base64-wrapped.
type BinaryData struct {
	Type     string                 `json:"type"`     // always "binary_data"
	Encoding string                 `json:"encoding"` // always "base64"
	Data     encoding.StdBase64Data `json:"data"`
}

// NewFloatArray wraps a decoded embedding for the manifest.
func NewFloatArray(v []float32) FloatArray {
	return FloatArray{Type: "float32_array", Dimensions: len(v), Data: v}
}

// NewBinaryData wraps raw bytes for the manifest.
func NewBinaryData(b []byte) BinaryData {
	return BinaryData{Type: "binary_data", Encoding: "base64", Data: b}
}

// ScoredMember is the manifest form of one sorted-set element.
type ScoredMember struct {
	Member any     `json:"member"`
	Score  float64 `json:"score"`
}

// projectValue renders a plain store string for the manifest: the string
// itself when valid UTF-8, a base64 wrapper otherwise.
func projectValue(raw string) any {
	if !utf8.ValidString(raw) {
		return NewBinaryData([]byte(raw))
	}
	return raw
}

// projectStrings renders list elements and set members.
func projectStrings(raw []string) []any {
	out := make([]any, len(raw))
	for i, s := range raw {
		out[i] = projectValue(s)
	}
	return out
}

// projectZs renders sorted-set elements with their scores.
func projectZs(zs []store.Z) []ScoredMember {
	out := make([]ScoredMember, len(zs))
	for i, z := range zs {
		out[i] = ScoredMember{Member: projectValue(z.Member), Score: z.Score}
	}
	return out
}

// projectHash renders hash fields. The embedding field decodes to a
// FloatArray when its bytes parse as a packed vector; a malformed embedding
// falls back to the ordinary string/binary rule rather than failing the
// export.
func projectHash(fields map[string]string, embeddingField string) map[string]any {
	out := make(map[string]any, len(fields))
	for name, raw := range fields {
		if name == embeddingField {
			if v, err := vector.Decode([]byte(raw)); err == nil {
				out[name] = NewFloatArray(v)
				continue
			}
		}
		out[name] = projectValue(raw)
	}
	return out
}
