package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SetRepoRev rewrites the rev of the group whose repo matches url,
// working on the YAML node tree so comments, ordering and quoting in
// the rest of the document survive untouched. It reports whether a
// change was made.
func SetRepoRev(data []byte, url, newRev string) ([]byte, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to parse hook configuration: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, false, fmt.Errorf("empty hook configuration")
	}

	repos := mappingValue(doc.Content[0], "repos")
	if repos == nil || repos.Kind != yaml.SequenceNode {
		return nil, false, fmt.Errorf("hook configuration has no repos sequence")
	}

	changed := false
	for _, group := range repos.Content {
		if group.Kind != yaml.MappingNode {
			continue
		}
		repoNode := mappingValue(group, "repo")
		if repoNode == nil || repoNode.Value != url {
			continue
		}
		revNode := mappingValue(group, "rev")
		if revNode == nil {
			return nil, false, fmt.Errorf("group %s has no rev to rewrite", url)
		}
		if revNode.Value != newRev {
			revNode.Value = newRev
			revNode.Tag = "!!str"
			changed = true
		}
	}

	if !changed {
		return data, false, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, false, fmt.Errorf("failed to re-encode hook configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// mappingValue returns the value node for key in a mapping node.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
