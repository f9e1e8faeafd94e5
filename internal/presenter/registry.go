package presenter

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemasFS embed.FS

// registry is the singleton schema registry.
var registry = &Registry{}

// Registry holds loaded entity schemas indexed by name.
type Registry struct {
	once    sync.Once
	byName  map[string]*EntitySchema // "task" → schema
	ordered []*EntitySchema          // most specific detect set first
	loadErr error
}

// load parses all embedded YAML schemas.
func (r *Registry) load() {
	r.once.Do(func() {
		r.byName = make(map[string]*EntitySchema)

		entries, err := schemasFS.ReadDir("schemas")
		if err != nil {
			r.loadErr = fmt.Errorf("reading schemas dir: %w", err)
			return
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			data, err := schemasFS.ReadFile("schemas/" + entry.Name())
			if err != nil {
				r.loadErr = fmt.Errorf("reading %s: %w", entry.Name(), err)
				continue
			}

			schema := new(EntitySchema)
			if err := yaml.Unmarshal(data, schema); err != nil {
				r.loadErr = fmt.Errorf("parsing %s: %w", entry.Name(), err)
				continue
			}

			r.byName[schema.Entity] = schema
			r.ordered = append(r.ordered, schema)
		}

		sort.SliceStable(r.ordered, func(i, j int) bool {
			if len(r.ordered[i].Detect) != len(r.ordered[j].Detect) {
				return len(r.ordered[i].Detect) > len(r.ordered[j].Detect)
			}
			return r.ordered[i].Entity < r.ordered[j].Entity
		})
	})
}

// LoadError reports the first problem hit while loading embedded schemas.
func LoadError() error {
	registry.load()
	return registry.loadErr
}

// LookupByName returns a schema by entity name (e.g. "task").
func LookupByName(name string) *EntitySchema {
	registry.load()
	return registry.byName[name]
}

// Names returns every registered entity name, sorted.
func Names() []string {
	registry.load()
	names := make([]string, 0, len(registry.byName))
	for name := range registry.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect finds a schema for data. An explicit entity name hint wins;
// otherwise the schema with the largest detect set fully present in the
// data's keys is chosen.
func Detect(data any, entityHint string) *EntitySchema {
	if entityHint != "" {
		if s := LookupByName(entityHint); s != nil {
			return s
		}
	}

	var sample map[string]any
	switch d := data.(type) {
	case map[string]any:
		sample = d
	case []map[string]any:
		if len(d) > 0 {
			sample = d[0]
		}
	}
	if sample == nil {
		return nil
	}

	registry.load()
	for _, s := range registry.ordered {
		if len(s.Detect) > 0 && hasKeys(sample, s.Detect) {
			return s
		}
	}
	return nil
}

func hasKeys(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
