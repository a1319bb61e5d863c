package index

import (
	"fmt"
	"io"

	"github.com/hupe1980/bitjit/streamconfig"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of one document.
//
//	- id: 7
//	  fields:
//	    title: Go in Action
//	    body: a book about Go
//	  facts: [english]
//	  deleted: false
type Document struct {
	ID      DocID             `yaml:"id"`
	Fields  map[string]string `yaml:"fields"`
	Facts   []string          `yaml:"facts"`
	Deleted bool              `yaml:"deleted"`
}

// LoadYAML reads a YAML document list and builds an index. Field names are
// resolved through cfg.
func LoadYAML(r io.Reader, cfg *streamconfig.Config, opts ...Option) (*MemoryIndex, error) {
	var docs []Document
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("index: decode documents: %w", err)
	}

	b := NewBuilder(append([]Option{WithCaseFold(cfg.CaseFold)}, opts...)...)
	for _, d := range docs {
		fields := make(map[streamconfig.StreamID]string, len(d.Fields))
		for name, text := range d.Fields {
			id, ok := cfg.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("index: document %d: unknown stream %q", d.ID, name)
			}
			fields[id] = text
		}
		if err := b.AddDocument(d.ID, fields); err != nil {
			return nil, err
		}
		for _, f := range d.Facts {
			if err := b.AddFact(d.ID, f); err != nil {
				return nil, err
			}
		}
		if d.Deleted {
			if err := b.Delete(d.ID); err != nil {
				return nil, err
			}
		}
	}
	return b.Build(), nil
}
