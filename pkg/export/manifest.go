package export

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Manifest is the parsed form of an export document.
//
// Timestamp is the RFC 3339 export start time. TotalKeys is the advisory
// key-count snapshot taken at export start; it is never reconciled with
// len(Keys), so on a keyspace that changed mid-export the two differ.
type Manifest struct {
	Timestamp string  `json:"timestamp"`
	TotalKeys int64   `json:"totalKeys"`
	Keys      []Entry `json:"keys"`
}

// ReadManifest parses a manifest produced by an Exporter. Entry values
// decode to the generic JSON types (strings, maps, slices, nil).
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("export: parse manifest: %w", err)
	}
	return &m, nil
}
