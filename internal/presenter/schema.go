// Package presenter provides schema-aware rendering for TaskHub entities.
// It sits between commands and the output renderer, using declarative YAML
// schemas to turn generic JSON shapes into human-centered terminal output.
package presenter

// EntitySchema describes how a TaskHub entity wants to be presented.
// Schemas are declarative metadata loaded from YAML files.
type EntitySchema struct {
	Entity   string               `yaml:"entity"`
	Kind     string               `yaml:"kind"`
	Detect   []string             `yaml:"detect"` // keys whose presence identifies the entity
	Identity Identity             `yaml:"identity"`
	Headline []HeadlineSpec       `yaml:"headline"`
	Fields   map[string]FieldSpec `yaml:"fields"`
	Views    ViewSpecs            `yaml:"views"`
	Actions  []Affordance         `yaml:"affordances"`
}

// Identity identifies the entity's label and ID fields.
type Identity struct {
	Label string `yaml:"label"`
	ID    string `yaml:"id"`
}

// HeadlineSpec is a headline template. The first spec whose When condition
// holds is used; a spec without When always holds.
type HeadlineSpec struct {
	When     string `yaml:"when"`
	Template string `yaml:"template"`
}

// FieldSpec describes how a single field should be presented.
type FieldSpec struct {
	Label       string            `yaml:"label"`
	Role        string            `yaml:"role"`
	Emphasis    string            `yaml:"emphasis"`
	EmphasisFor map[string]string `yaml:"emphasis_for"` // per-value emphasis
	Format      string            `yaml:"format"`
	Collapse    bool              `yaml:"collapse"`
	Labels      map[string]string `yaml:"labels"`
	WhenOverdue string            `yaml:"when_overdue"`
	Currency    string            `yaml:"currency"` // sibling key holding the ISO currency code
}

// ViewSpecs declares which fields appear per presentation context.
type ViewSpecs struct {
	List   ListView   `yaml:"list"`
	Detail DetailView `yaml:"detail"`
}

// ListView configures the table/list presentation.
type ListView struct {
	Columns []string `yaml:"columns"`
}

// DetailView configures the single-entity detail presentation.
type DetailView struct {
	Sections []DetailSection `yaml:"sections"`
}

// DetailSection groups fields under an optional heading.
type DetailSection struct {
	Heading string   `yaml:"heading"`
	Fields  []string `yaml:"fields"`
}

// Affordance is a templated CLI action the user can take.
type Affordance struct {
	Action string `yaml:"action"`
	Cmd    string `yaml:"cmd"`
	Label  string `yaml:"label"`
	When   string `yaml:"when"`
}
