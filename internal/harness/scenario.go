// Package harness provides conformance testing for the card ledger.
//
// Scenarios are YAML files describing a sequence of submitted events and
// assertions over the resulting state. Execution is fully deterministic:
// a fixed clock stamps events, short names map to fixed keys, and the
// in-memory blob store isolates every run. Identical scenarios produce
// identical traces, so runs can be compared against golden snapshots.
//
// # Scenario format
//
//	name: class_instance
//	description: "Instances depend on their class"
//	steps:
//	  - create: {key: k1, kind: class, front: "language"}
//	  - create: {key: k2, kind: instance, front: "Rust", class: k1}
//	  - modify: {key: k1, action: add_dependency, ref: k2}
//	    expect: CYCLE_DETECTED
//	  - delete: k1
//	    expect: DELETE_WOULD_ORPHAN_DEPENDENTS
//	assertions:
//	  - type: dependencies
//	    key: k2
//	    expect: [k1]
//	  - type: valid
//	    key: k2
//	    expect: "true"
//
// Short names of the form kN map to the deterministic key
// 00000000-0000-4000-8000-00000000000N; aN names attribute descriptor
// ids the same way, offset by 1000.
package harness

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/testutil"
)

// Scenario is one conformance test.
type Scenario struct {
	// Name uniquely identifies the scenario; the golden file shares it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Steps are submitted in order.
	Steps []Step `yaml:"steps"`

	// Assertions run against the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one submitted event. Exactly one of Create, Modify, Delete is
// set. Expect names the rejection code the submission must fail with;
// empty means the submission must succeed.
type Step struct {
	Create *CardSpec   `yaml:"create,omitempty"`
	Modify *ActionSpec `yaml:"modify,omitempty"`
	Delete string      `yaml:"delete,omitempty"`
	Expect string      `yaml:"expect,omitempty"`
}

// CardSpec describes a Create payload.
type CardSpec struct {
	Key       string     `yaml:"key"`
	Kind      string     `yaml:"kind"`
	Front     string     `yaml:"front,omitempty"`
	Back      *BackSpec  `yaml:"back,omitempty"`
	Class     string     `yaml:"class,omitempty"`
	Parent    string     `yaml:"parent,omitempty"`
	Attrs     []AttrSpec `yaml:"attrs,omitempty"`
	Params    []AttrSpec `yaml:"params,omitempty"`
	Attribute string     `yaml:"attribute,omitempty"`
	AttrClass string     `yaml:"attr_class,omitempty"`
	Instance  string     `yaml:"instance,omitempty"`
	Deps      []string   `yaml:"deps,omitempty"`
	Namespace string     `yaml:"namespace,omitempty"`
	Suspended bool       `yaml:"suspended,omitempty"`
	Trivial   bool       `yaml:"trivial,omitempty"`
}

// AttrSpec describes an attribute or parameter descriptor.
type AttrSpec struct {
	ID         string `yaml:"id"`
	Pattern    string `yaml:"pattern,omitempty"`
	Constraint string `yaml:"constraint,omitempty"` // text|bool|time|instance_of
	Class      string `yaml:"class,omitempty"`
}

// BackSpec describes a back side. Exactly one field is set.
type BackSpec struct {
	Text *string  `yaml:"text,omitempty"`
	Bool *bool    `yaml:"bool,omitempty"`
	Time *int64   `yaml:"time,omitempty"`
	Card string   `yaml:"card,omitempty"`
	List []string `yaml:"list,omitempty"`
}

// ActionSpec describes a Modify payload.
type ActionSpec struct {
	Key      string    `yaml:"key"`
	Action   string    `yaml:"action"`
	Text     string    `yaml:"text,omitempty"`
	Back     *BackSpec `yaml:"back,omitempty"`
	Ref      string    `yaml:"ref,omitempty"`      // key operand
	Clear    bool      `yaml:"clear,omitempty"`
	Attr     *AttrSpec `yaml:"attr,omitempty"`
	AttrID   string    `yaml:"attr_id,omitempty"`
	Instance string    `yaml:"instance,omitempty"`
	Flag     bool      `yaml:"flag,omitempty"`
}

// Assertion checks final state. Supported types: dependencies,
// dependents, property, valid.
type Assertion struct {
	Type   string   `yaml:"type"`
	Key    string   `yaml:"key,omitempty"`
	Name   string   `yaml:"name,omitempty"`
	Value  string   `yaml:"value,omitempty"`
	Expect yamlList `yaml:"expect"`
}

// yamlList accepts a scalar or a sequence.
type yamlList []string

func (l *yamlList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = []string{node.Value}
		return nil
	}
	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one step is required", path)
	}
	for i, step := range s.Steps {
		set := 0
		if step.Create != nil {
			set++
		}
		if step.Modify != nil {
			set++
		}
		if step.Delete != "" {
			set++
		}
		if set != 1 {
			return nil, fmt.Errorf("scenario %s: step %d needs exactly one of create/modify/delete", path, i)
		}
	}
	return &s, nil
}

var shortName = regexp.MustCompile(`^([ka])(\d+)$`)

// ResolveKey maps short names (k1, a3) to deterministic keys; anything
// else must be a literal key.
func ResolveKey(name string) (ir.Key, error) {
	if m := shortName.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return ir.ZeroKey, err
		}
		if m[1] == "a" {
			n += 1000
		}
		return testutil.SeqKey(n), nil
	}
	return ir.ParseKey(name)
}

func resolveKeys(names []string) ([]ir.Key, error) {
	out := make([]ir.Key, 0, len(names))
	for _, name := range names {
		k, err := ResolveKey(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *CardSpec) Build() (card.Card, error) {
	key, err := ResolveKey(s.Key)
	if err != nil {
		return card.Card{}, err
	}

	c := card.Card{
		ID:        key,
		Kind:      card.Kind(s.Kind),
		Front:     s.Front,
		Suspended: s.Suspended,
		Trivial:   s.Trivial,
	}
	if c.Kind == "" {
		c.Kind = card.KindUnfinished
	}

	if s.Back != nil {
		back, err := s.Back.build()
		if err != nil {
			return card.Card{}, err
		}
		c.Back = &back
	}
	if s.Class != "" {
		if c.Class, err = ResolveKey(s.Class); err != nil {
			return card.Card{}, err
		}
	}
	if s.Parent != "" {
		parent, err := ResolveKey(s.Parent)
		if err != nil {
			return card.Card{}, err
		}
		c.Parent = &parent
	}
	if c.Attrs, err = buildAttrs(s.Attrs); err != nil {
		return card.Card{}, err
	}
	if c.Params, err = buildAttrs(s.Params); err != nil {
		return card.Card{}, err
	}
	if s.Attribute != "" {
		if c.Attribute, err = ResolveKey(s.Attribute); err != nil {
			return card.Card{}, err
		}
	}
	if s.AttrClass != "" {
		if c.AttrClass, err = ResolveKey(s.AttrClass); err != nil {
			return card.Card{}, err
		}
	}
	if s.Instance != "" {
		if c.Instance, err = ResolveKey(s.Instance); err != nil {
			return card.Card{}, err
		}
	}
	if c.Deps, err = resolveKeys(s.Deps); err != nil {
		return card.Card{}, err
	}
	if s.Namespace != "" {
		ns, err := ResolveKey(s.Namespace)
		if err != nil {
			return card.Card{}, err
		}
		c.Namespace = &ns
	}
	return c, nil
}

func buildAttrs(specs []AttrSpec) ([]card.Attr, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]card.Attr, 0, len(specs))
	for _, spec := range specs {
		id, err := ResolveKey(spec.ID)
		if err != nil {
			return nil, err
		}
		attr := card.Attr{ID: id, Pattern: spec.Pattern}
		switch spec.Constraint {
		case "", "text":
			attr.Back = card.Constraint{Kind: card.ConstraintText}
		case "bool":
			attr.Back = card.Constraint{Kind: card.ConstraintBool}
		case "time":
			attr.Back = card.Constraint{Kind: card.ConstraintTime}
		case "instance_of":
			class, err := ResolveKey(spec.Class)
			if err != nil {
				return nil, err
			}
			attr.Back = card.Constraint{Kind: card.ConstraintInstanceOf, Class: class}
		default:
			return nil, fmt.Errorf("unknown constraint %q", spec.Constraint)
		}
		out = append(out, attr)
	}
	return out, nil
}

func (s *BackSpec) build() (card.BackSide, error) {
	switch {
	case s.Text != nil:
		return card.TextBack(*s.Text), nil
	case s.Bool != nil:
		return card.BoolBack(*s.Bool), nil
	case s.Time != nil:
		return card.TimeBack(*s.Time), nil
	case s.Card != "":
		key, err := ResolveKey(s.Card)
		if err != nil {
			return card.BackSide{}, err
		}
		return card.CardBack(key), nil
	case s.List != nil:
		keys, err := resolveKeys(s.List)
		if err != nil {
			return card.BackSide{}, err
		}
		return card.ListBack(keys...), nil
	}
	return card.BackSide{}, fmt.Errorf("back spec needs exactly one variant")
}

func (s *ActionSpec) Build() (ir.Key, card.Action, error) {
	key, err := ResolveKey(s.Key)
	if err != nil {
		return ir.ZeroKey, card.Action{}, err
	}

	a := card.Action{
		Kind:  card.ActionKind(s.Action),
		Text:  s.Text,
		Clear: s.Clear,
		Flag:  s.Flag,
	}
	if s.Back != nil {
		back, err := s.Back.build()
		if err != nil {
			return ir.ZeroKey, card.Action{}, err
		}
		a.Back = &back
	}
	if s.Ref != "" {
		if a.Key, err = ResolveKey(s.Ref); err != nil {
			return ir.ZeroKey, card.Action{}, err
		}
	}
	if s.Attr != nil {
		attrs, err := buildAttrs([]AttrSpec{*s.Attr})
		if err != nil {
			return ir.ZeroKey, card.Action{}, err
		}
		a.Attr = &attrs[0]
	}
	if s.AttrID != "" {
		if a.AttrID, err = ResolveKey(s.AttrID); err != nil {
			return ir.ZeroKey, card.Action{}, err
		}
	}
	if s.Instance != "" {
		if a.Instance, err = ResolveKey(s.Instance); err != nil {
			return ir.ZeroKey, card.Action{}, err
		}
	}
	return key, a, nil
}
