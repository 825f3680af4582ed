package project

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// xcodeGenManifest is the subset of an XcodeGen project.yml this daemon
// reads: the project name, its ordered top-level configuration list, and
// its target definitions (spec §6: "project.yml at root ... significant").
//
// No original_source/ file for the Xcode variant survived the retrieval
// filter (DESIGN.md notes this); the shape below follows XcodeGen's
// documented project.yml schema directly.
type xcodeGenManifest struct {
	Name    string
	Configs []string
	Targets map[string]xcodeGenTarget
}

type xcodeGenTarget struct {
	Platform string `yaml:"platform"`
	Type     string `yaml:"type"`
}

// parseXcodeGenManifest decodes project.yml's raw bytes. Configs is decoded
// via the document's yaml.Node so its declared order survives — a plain
// map[string]string field would lose it, since Go map iteration order is
// unspecified.
func parseXcodeGenManifest(data []byte) (*xcodeGenManifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("project: parsing project.yml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("project: project.yml is empty")
	}
	doc := root.Content[0]

	m := &xcodeGenManifest{Targets: make(map[string]xcodeGenTarget)}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		val := doc.Content[i+1]
		switch key.Value {
		case "name":
			m.Name = val.Value
		case "configs":
			for j := 0; j+1 < len(val.Content); j += 2 {
				m.Configs = append(m.Configs, val.Content[j].Value)
			}
		case "targets":
			for j := 0; j+1 < len(val.Content); j += 2 {
				name := val.Content[j].Value
				var t xcodeGenTarget
				if err := val.Content[j+1].Decode(&t); err != nil {
					return nil, fmt.Errorf("project: parsing target %q: %w", name, err)
				}
				m.Targets[name] = t
			}
		}
	}
	if m.Name == "" {
		return nil, fmt.Errorf("project: project.yml missing required \"name\" field")
	}
	return m, nil
}
