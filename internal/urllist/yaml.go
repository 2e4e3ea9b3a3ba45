package urllist

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type yamlEntry struct {
	URL string
}

// UnmarshalYAML accepts either a scalar URL or a mapping with a url key.
func (e *yamlEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.URL = node.Value
		return nil
	}
	var obj struct {
		URL string `yaml:"url"`
	}
	if err := node.Decode(&obj); err != nil {
		return eris.Wrapf(err, "yaml: line %d", node.Line)
	}
	e.URL = obj.URL
	return nil
}

// parseYAML accepts a top-level sequence, or a mapping with a "urls" sequence.
func parseYAML(r io.Reader, opts Options) ([]string, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "yaml: decode")
	}

	var entries []yamlEntry
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&entries); err != nil {
			return nil, eris.Wrap(err, "yaml: decode list")
		}
	case yaml.MappingNode:
		var wrapper struct {
			URLs []yamlEntry `yaml:"urls"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, eris.Wrap(err, "yaml: decode urls")
		}
		entries = wrapper.URLs
	default:
		return nil, eris.New("yaml: expected a list of URLs or a urls key")
	}

	c := newCollector(opts.Limit)
	for _, e := range entries {
		if !c.add(e.URL) {
			break
		}
	}
	return c.urls, nil
}
