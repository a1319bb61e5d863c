// Package streamconfig holds the stream configuration consumed by the query
// parser: which named streams (document fields) exist, which one unqualified
// terms belong to, and how term text is normalized.
//
// A configuration can be built in code or loaded from YAML:
//
//	streams:
//	  body: 0
//	  title: 1
//	default_stream: body
//	case_fold: true
package streamconfig

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// StreamID identifies a stream.
type StreamID uint8

// FactStream is reserved for document facts. It never appears in a Config.
const FactStream StreamID = math.MaxUint8

var (
	// ErrNoStreams is returned when a configuration defines no streams.
	ErrNoStreams = errors.New("streamconfig: no streams defined")
	// ErrUnknownDefault is returned when the default stream is not defined.
	ErrUnknownDefault = errors.New("streamconfig: unknown default stream")
	// ErrReservedStream is returned when a stream uses the fact stream id.
	ErrReservedStream = errors.New("streamconfig: stream id reserved for facts")
)

// Config is the stream configuration.
type Config struct {
	// Streams maps stream names to ids.
	Streams map[string]StreamID `yaml:"streams"`
	// DefaultStream receives terms without a stream qualifier.
	DefaultStream string `yaml:"default_stream"`
	// CaseFold lowercases term text during parsing.
	CaseFold bool `yaml:"case_fold"`
}

// Default returns a configuration with a single "body" stream.
func Default() *Config {
	return &Config{
		Streams:       map[string]StreamID{"body": 0},
		DefaultStream: "body",
		CaseFold:      true,
	}
}

// LoadYAML decodes and validates a configuration.
func LoadYAML(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("streamconfig: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Streams) == 0 {
		return ErrNoStreams
	}
	for name, id := range c.Streams {
		if id == FactStream {
			return fmt.Errorf("%w: %q", ErrReservedStream, name)
		}
	}
	if _, ok := c.Streams[c.DefaultStream]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDefault, c.DefaultStream)
	}
	return nil
}

// Lookup resolves a stream name.
func (c *Config) Lookup(name string) (StreamID, bool) {
	id, ok := c.Streams[name]
	return id, ok
}

// DefaultID returns the id of the default stream.
func (c *Config) DefaultID() StreamID {
	return c.Streams[c.DefaultStream]
}

// Name returns the name of a stream id, or its number when unnamed.
func (c *Config) Name(id StreamID) string {
	if id == FactStream {
		return "fact"
	}
	for name, sid := range c.Streams {
		if sid == id {
			return name
		}
	}
	return fmt.Sprintf("%d", id)
}

// Names returns all stream names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Streams))
	for name := range c.Streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
