// Package place reads and writes trees as YAML place files. It drives the
// serialization hooks of every node it visits and persists kind fields
// through instance.PropertyCodec.
package place

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/scenecore/internal/core/instance"
)

const (
	Format  = "scenecore-place"
	Version = 1
)

var (
	ErrFormat  = errors.New("not a place file")
	ErrVersion = errors.New("unsupported place version")
)

// Document is the top level of a place file. Services are stored apart from
// the root's children since they are parent-locked and skipped by the
// serialization filter.
type Document struct {
	Format   string  `yaml:"format"`
	Version  int     `yaml:"version"`
	Root     *Node   `yaml:"root"`
	Services []*Node `yaml:"services,omitempty"`
}

// Node is one serialized instance.
type Node struct {
	Class      string         `yaml:"class"`
	Name       string         `yaml:"name,omitempty"`
	UniqueID   string         `yaml:"uid,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
	Children   []*Node        `yaml:"children,omitempty"`
}

func (d *Document) validate() error {
	if d.Format != Format {
		return fmt.Errorf("%w: format %q", ErrFormat, d.Format)
	}
	if d.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, d.Version)
	}
	if d.Root == nil {
		return fmt.Errorf("%w: missing root", ErrFormat)
	}
	return nil
}

// Encoder writes place files.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode serializes the tree rooted at n.
func (e *Encoder) Encode(n *instance.Instance) error {
	doc, err := Snapshot(n)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(e.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode place: %w", err)
	}
	return enc.Close()
}

// Decoder reads place files.
type Decoder struct {
	r io.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode replaces the contents of into with the tree in the place file.
func (d *Decoder) Decode(into *instance.Instance) error {
	var doc Document
	if err := yaml.NewDecoder(d.r).Decode(&doc); err != nil {
		return fmt.Errorf("decode place: %w", err)
	}
	return Load(&doc, into)
}
