// internal/queries/registry.go
package queries

import (
	_ "embed"
	"fmt"

	jmes "github.com/jmespath/go-jmespath"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Spec is one named GraphQL document plus the JMESPath projections used
// to flatten its response for presentation endpoints.
type Spec struct {
	Name     string            `yaml:"name"`
	Summary  string            `yaml:"summary"`
	Document string            `yaml:"document"`
	Fields   map[string]string `yaml:"fields"` // output key -> jmespath over the data payload
}

// Registry holds the named queries shipped with the service.
type Registry struct {
	byName map[string]Spec
}

// Load parses the embedded catalog.
func Load() (*Registry, error) {
	var specs []Spec
	if err := yaml.Unmarshal(catalogYAML, &specs); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	r := &Registry{byName: map[string]Spec{}}
	for _, s := range specs {
		if s.Name == "" || s.Document == "" {
			return nil, fmt.Errorf("catalog entry missing name or document")
		}
		r.byName[s.Name] = s
	}
	return r, nil
}

// Get returns the named query spec.
func (r *Registry) Get(name string) (Spec, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Project applies the spec's field expressions to a decoded data payload.
// Fields whose path matches nothing are omitted rather than erroring; the
// payload shape is the provider's to change.
func (s Spec) Project(data any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for key, path := range s.Fields {
		val, err := jmes.Search(path, data)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		if val != nil {
			out[key] = val
		}
	}
	return out, nil
}
