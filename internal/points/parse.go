package points

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingField is returned when a record lacks x, y or z, or sets
	// one of them to null.
	ErrMissingField = errors.New("missing field")

	// ErrMultipleDocuments is returned when the input holds more than one
	// YAML document.
	ErrMultipleDocuments = errors.New("more than one yaml document")

	// ErrInvalidKey is returned for a key that is not a plain decimal
	// integer in the uint32 range.
	ErrInvalidKey = errors.New("invalid point key")

	// ErrDuplicateKey is returned when two keys decode to the same number.
	ErrDuplicateKey = errors.New("duplicate point key")

	// ErrNotMapping is returned when the document is not a mapping.
	ErrNotMapping = errors.New("document is not a mapping")
)

// record mirrors Point with optional fields so absent coordinates can be
// told apart from zero.
type record struct {
	X *float64 `yaml:"x"`
	Y *float64 `yaml:"y"`
	Z *float64 `yaml:"z"`
}

func (r record) point() (Point, error) {
	switch {
	case r.X == nil:
		return Point{}, fmt.Errorf("%w: x", ErrMissingField)
	case r.Y == nil:
		return Point{}, fmt.Errorf("%w: y", ErrMissingField)
	case r.Z == nil:
		return Point{}, fmt.Errorf("%w: z", ErrMissingField)
	}
	return Point{X: *r.X, Y: *r.Y, Z: *r.Z}, nil
}

// Parse decodes a YAML mapping of key -> {x, y, z}. Both block style and
// the inline form produced by MarshalInline are accepted. Fields other than
// x, y and z are ignored. An empty document yields an empty Map.
//
// Keys must be untagged decimal integers that fit in a uint32; floats, hex
// and quoted keys are rejected, as are two keys naming the same number.
func Parse(data []byte) (Map, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Map{}, nil
		}
		return nil, fmt.Errorf("decode points: %w", err)
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err == nil:
		return nil, ErrMultipleDocuments
	default:
		return nil, fmt.Errorf("decode points: %w", err)
	}

	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Map{}, nil
		}
		root = resolve(root.Content[0])
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return Map{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d", ErrNotMapping, root.Line)
	}

	m := make(Map, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, err := parseKey(resolve(root.Content[i]))
		if err != nil {
			return nil, err
		}
		if _, dup := m[k]; dup {
			return nil, fmt.Errorf("%w: %d at line %d", ErrDuplicateKey, k, root.Content[i].Line)
		}

		var r record
		if err := root.Content[i+1].Decode(&r); err != nil {
			return nil, fmt.Errorf("decode points: point %d: %w", k, err)
		}
		p, err := r.point()
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", k, err)
		}
		m[k] = p
	}
	return m, nil
}

func parseKey(n *yaml.Node) (uint32, error) {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!int" {
		return 0, fmt.Errorf("%w: %q at line %d", ErrInvalidKey, n.Value, n.Line)
	}
	v, err := strconv.ParseUint(n.Value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q at line %d", ErrInvalidKey, n.Value, n.Line)
	}
	return uint32(v), nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
