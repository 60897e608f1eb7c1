// Package drills holds the drill vocabulary: keys, units, valid ranges,
// scoring direction and default ranking weights, grouped into templates.
package drills

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Standard drill keys of the football template.
const (
	Dash40m      = "40m_dash"
	VerticalJump = "vertical_jump"
	Catching     = "catching"
	Throwing     = "throwing"
	Agility      = "agility"
)

// DefaultTemplate is used when an event does not name one.
const DefaultTemplate = "football"

// WeightTolerance is the allowed deviation of a weight vector sum from 1.
const WeightTolerance = 1e-6

// Sentinel kinds for catalog errors.
var (
	ErrUnknownTemplate = errors.New("unknown drill template")
	ErrUnknownDrill    = errors.New("unknown drill")
	ErrInvalidTemplate = errors.New("invalid drill template")
)

// Direction says whether larger raw values are better.
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Drill describes one measurement.
type Drill struct {
	Key            string    `yaml:"key" json:"key"`
	Label          string    `yaml:"label" json:"label"`
	Unit           string    `yaml:"unit" json:"unit"`
	Min            float64   `yaml:"min" json:"min"`
	Max            float64   `yaml:"max" json:"max"`
	Direction      Direction `yaml:"direction" json:"direction"`
	InversionBound float64   `yaml:"inversion_bound,omitempty" json:"inversion_bound,omitempty"`
	DefaultWeight  float64   `yaml:"default_weight" json:"default_weight"`
}

// InRange reports whether v lies in [Min, Max].
func (d Drill) InRange(v float64) bool {
	return !math.IsNaN(v) && v >= d.Min && v <= d.Max
}

// Adjusted puts v on a higher-is-better scale. Lower-is-better drills are
// inverted as max(0, InversionBound - v).
func (d Drill) Adjusted(v float64) float64 {
	if d.Direction == LowerIsBetter {
		return math.Max(0, d.InversionBound-v)
	}
	return v
}

// Template is an ordered drill set.
type Template struct {
	Name   string  `yaml:"name" json:"name"`
	Sport  string  `yaml:"sport" json:"sport"`
	Drills []Drill `yaml:"drills" json:"drills"`

	index map[string]int
}

func (t *Template) build() error {
	if t.Name == "" {
		return fmt.Errorf("%w: template without name", ErrInvalidTemplate)
	}
	if len(t.Drills) == 0 {
		return fmt.Errorf("%w: %s has no drills", ErrInvalidTemplate, t.Name)
	}
	t.index = make(map[string]int, len(t.Drills))
	sum := 0.0
	for i, d := range t.Drills {
		if d.Key == "" || d.Unit == "" {
			return fmt.Errorf("%w: %s drill %d missing key or unit", ErrInvalidTemplate, t.Name, i)
		}
		if _, dup := t.index[d.Key]; dup {
			return fmt.Errorf("%w: %s repeats drill %s", ErrInvalidTemplate, t.Name, d.Key)
		}
		if d.Min >= d.Max {
			return fmt.Errorf("%w: %s drill %s has empty range", ErrInvalidTemplate, t.Name, d.Key)
		}
		switch d.Direction {
		case HigherIsBetter:
		case LowerIsBetter:
			if d.InversionBound <= 0 {
				return fmt.Errorf("%w: %s drill %s needs an inversion bound", ErrInvalidTemplate, t.Name, d.Key)
			}
		default:
			return fmt.Errorf("%w: %s drill %s has direction %q", ErrInvalidTemplate, t.Name, d.Key, d.Direction)
		}
		if d.DefaultWeight < 0 || d.DefaultWeight > 1 {
			return fmt.Errorf("%w: %s drill %s weight out of [0,1]", ErrInvalidTemplate, t.Name, d.Key)
		}
		sum += d.DefaultWeight
		t.index[d.Key] = i
	}
	if math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("%w: %s default weights sum to %.6f", ErrInvalidTemplate, t.Name, sum)
	}
	return nil
}

// Lookup returns the drill with key.
func (t *Template) Lookup(key string) (Drill, bool) {
	i, ok := t.index[key]
	if !ok {
		return Drill{}, false
	}
	return t.Drills[i], true
}

// Has reports whether key belongs to the template.
func (t *Template) Has(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Keys returns drill keys in template order.
func (t *Template) Keys() []string {
	keys := make([]string, len(t.Drills))
	for i, d := range t.Drills {
		keys[i] = d.Key
	}
	return keys
}

// UnitFor returns the fixed unit for key.
func (t *Template) UnitFor(key string) (string, error) {
	d, ok := t.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDrill, key)
	}
	return d.Unit, nil
}

// DefaultWeights returns a fresh copy of the template's default weights.
func (t *Template) DefaultWeights() map[string]float64 {
	w := make(map[string]float64, len(t.Drills))
	for _, d := range t.Drills {
		w[d.Key] = d.DefaultWeight
	}
	return w
}

// Active returns the keys of drills not listed in disabled.
func (t *Template) Active(disabled []string) []string {
	keys := make([]string, 0, len(t.Drills))
	for _, d := range t.Drills {
		if !slices.Contains(disabled, d.Key) {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// Catalog indexes templates by name.
type Catalog struct {
	templates map[string]*Template
	order     []string
}

type catalogFile struct {
	Templates []*Template `yaml:"templates"`
}

// Parse builds a Catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	c := &Catalog{templates: make(map[string]*Template, len(f.Templates))}
	for _, t := range f.Templates {
		if err := t.build(); err != nil {
			return nil, err
		}
		if _, dup := c.templates[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate template %s", ErrInvalidTemplate, t.Name)
		}
		c.templates[t.Name] = t
		c.order = append(c.order, t.Name)
	}
	if len(c.templates) == 0 {
		return nil, fmt.Errorf("%w: no templates", ErrInvalidTemplate)
	}
	return c, nil
}

// Template returns the named template. An empty name selects DefaultTemplate.
func (c *Catalog) Template(name string) (*Template, error) {
	if name == "" {
		name = DefaultTemplate
	}
	t, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names lists template names in file order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.order)
}

//go:embed templates.yaml
var builtinTemplates []byte

var (
	builtinOnce    sync.Once
	builtinCatalog *Catalog
	errBuiltin     error
)

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		builtinCatalog, errBuiltin = Parse(builtinTemplates)
	})
	if errBuiltin != nil {
		panic("drills: builtin templates invalid: " + errBuiltin.Error())
	}
	return builtinCatalog
}

// Football returns the builtin football template.
func Football() *Template {
	t, err := Builtin().Template(DefaultTemplate)
	if err != nil {
		panic(err)
	}
	return t
}
