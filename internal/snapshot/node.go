// Package snapshot loads the materialized configuration cache into a node
// tree the reconciliation engine can traverse.
package snapshot

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one value in the materialized configuration tree. The concrete
// kinds are *Scalar, *Mapping and *Sequence; traversal sites switch
// exhaustively over the three and treat anything else as unresolved.
type Node interface {
	node()
}

// Scalar is a leaf value, kept as its serialized text. Null marks an
// explicit null in the cache, distinct from the string "null".
type Scalar struct {
	Value string
	Null  bool
}

func (*Scalar) node() {}

// Mapping is an associative node. Key order is the cache order.
type Mapping struct {
	keys     []string
	children map[string]Node
}

// NewMapping returns an empty mapping node.
func NewMapping() *Mapping {
	return &Mapping{children: make(map[string]Node)}
}

// Set adds or replaces the child for key, keeping first-insertion order.
func (m *Mapping) Set(key string, child Node) {
	if _, ok := m.children[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.children[key] = child
}

// Get returns the child node for key.
func (m *Mapping) Get(key string) (Node, bool) {
	child, ok := m.children[key]
	return child, ok
}

// Keys returns the mapping keys in cache order.
func (m *Mapping) Keys() []string {
	return m.keys
}

func (*Mapping) node() {}

// Sequence is an ordered list node.
type Sequence struct {
	Items []Node
}

func (*Sequence) node() {}

// DecodeTree decodes a serialized snapshot into a Node tree. The PHP
// bridge emits JSON, which the YAML decoder accepts while preserving
// mapping key order; plain YAML snapshots decode the same way.
func DecodeTree(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(unescapeSlashes(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	root := &doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, fmt.Errorf("snapshot is empty")
		}
		root = doc.Content[0]
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("snapshot is empty")
	}

	return fromYAML(root)
}

// unescapeSlashes rewrites json_encode's \/ escape into a plain slash.
// The YAML quoted-scalar parser takes every other JSON escape but rejects
// \/. Escape pairs are consumed together, so a \\ ahead of a slash
// survives intact.
func unescapeSlashes(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) {
			if data[i+1] == '/' {
				out = append(out, '/')
			} else {
				out = append(out, data[i], data[i+1])
			}
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func fromYAML(n *yaml.Node) (Node, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			child, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, child)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := &Sequence{Items: make([]Node, 0, len(n.Content))}
		for _, item := range n.Content {
			child, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, child)
		}
		return seq, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return &Scalar{Null: true}, nil
		}
		return &Scalar{Value: n.Value}, nil
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	default:
		return nil, fmt.Errorf("unsupported snapshot node kind %d", n.Kind)
	}
}
