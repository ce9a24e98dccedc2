package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Format identifies patch documents.
const Format = "polysynth-patch"

// Version is the newest document version this package reads and the one it
// writes.
const Version = 1

type document struct {
	Format  string `json:"format"`
	Version uint32 `json:"version"`
	Patch   *Patch `json:"patch"`
}

// Save writes p as an indented JSON document.
func Save(w io.Writer, p *Patch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Format: Format, Version: Version, Patch: p}); err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return nil
}

// Load reads a patch document. Fields the document omits keep their
// Default values; unknown fields are rejected. The result is not validated.
func Load(r io.Reader) (*Patch, error) {
	var doc struct {
		Format  string          `json:"format"`
		Version uint32          `json:"version"`
		Patch   json.RawMessage `json:"patch"`
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if doc.Format != Format {
		return nil, fmt.Errorf("invalid patch format %q", doc.Format)
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("patch version %d is newer than supported version %d", doc.Version, Version)
	}
	if len(doc.Patch) == 0 || string(doc.Patch) == "null" {
		return nil, fmt.Errorf("patch document has no patch")
	}

	// slices are replaced wholesale rather than merged with the defaults
	p := Default()
	p.ModMatrix.Routings = nil
	p.Effects = nil
	pdec := json.NewDecoder(bytes.NewReader(doc.Patch))
	pdec.DisallowUnknownFields()
	if err := pdec.Decode(p); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if p.ModMatrix.Routings == nil {
		p.ModMatrix.Routings = []ModRouting{}
	}
	if p.Effects == nil {
		p.Effects = Default().Effects
	}
	return p, nil
}

// LoadFile reads the patch document at path.
func LoadFile(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
