package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// BuildSpec is the declarative description of one build run, loaded from
// build_spec.yml.
type BuildSpec struct {
	Workspace string     `yaml:"workspace" json:"workspace"`
	Steps     []StepSpec `yaml:"steps" json:"steps"`
}

type StepSpec struct {
	ID      string `yaml:"id" json:"id"`
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"` // nil means enabled
}

func (s StepSpec) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// EnabledIDs returns the identifiers of the enabled steps in spec order.
func (b BuildSpec) EnabledIDs() []string {
	ids := []string{}
	for _, st := range b.Steps {
		if st.IsEnabled() {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

const specSchema = `{
  "type": "object",
  "required": ["workspace", "steps"],
  "properties": {
    "workspace": {"type": "string", "minLength": 1},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "enabled": {"type": "boolean"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// LoadSpec reads and validates a build spec. The YAML is checked against the
// schema first, then every step identifier against the registry, so a typo in
// the file fails before anything runs.
func LoadSpec(path string) (BuildSpec, error) {
	var spec BuildSpec
	raw, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return spec, fmt.Errorf("parse %s: %w", path, err)
	}
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return spec, err
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(specSchema),
		gojsonschema.NewBytesLoader(jsonDoc),
	)
	if err != nil {
		return spec, fmt.Errorf("validate %s: %w", path, err)
	}
	if !result.Valid() {
		return spec, fmt.Errorf("invalid build spec %s: %s", path, result.Errors()[0].String())
	}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return spec, err
	}
	for _, st := range spec.Steps {
		if _, ok := registry[st.ID]; !ok {
			return spec, fmt.Errorf("build spec references unknown step %q", st.ID)
		}
	}
	return spec, nil
}
