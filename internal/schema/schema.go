// Package schema describes user-editable filter properties without tying
// them to a toolkit. Providers write into a Sink; hosts decide how to render it.
package schema

// Option is one entry in an integer choice list.
type Option struct {
	Label string
	Value int64
}

// Sink receives property declarations.
type Sink interface {
	Group(key, label string) Sink
	IntList(key, label string, options []Option)
	FloatRange(key, label string, min, max, step float64)
}

// Kind identifies the property type recorded by Collector.
type Kind int

const (
	KindGroup Kind = iota
	KindIntList
	KindFloatRange
)

// Property is a recorded declaration. Group properties carry Children.
type Property struct {
	Kind     Kind
	Key      string
	Label    string
	Options  []Option
	Min      float64
	Max      float64
	Step     float64
	Children []*Property
}

// Collector is a Sink that records the declarations as a tree.
type Collector struct {
	Properties []*Property
}

var _ Sink = (*Collector)(nil)

func (c *Collector) Group(key, label string) Sink {
	p := &Property{Kind: KindGroup, Key: key, Label: label}
	c.Properties = append(c.Properties, p)
	return &groupCollector{parent: p}
}

func (c *Collector) IntList(key, label string, options []Option) {
	c.Properties = append(c.Properties, intList(key, label, options))
}

func (c *Collector) FloatRange(key, label string, min, max, step float64) {
	c.Properties = append(c.Properties, floatRange(key, label, min, max, step))
}

// Find walks the tree depth-first and returns the property with key.
func (c *Collector) Find(key string) *Property {
	return find(c.Properties, key)
}

type groupCollector struct {
	parent *Property
}

func (g *groupCollector) Group(key, label string) Sink {
	p := &Property{Kind: KindGroup, Key: key, Label: label}
	g.parent.Children = append(g.parent.Children, p)
	return &groupCollector{parent: p}
}

func (g *groupCollector) IntList(key, label string, options []Option) {
	g.parent.Children = append(g.parent.Children, intList(key, label, options))
}

func (g *groupCollector) FloatRange(key, label string, min, max, step float64) {
	g.parent.Children = append(g.parent.Children, floatRange(key, label, min, max, step))
}

func intList(key, label string, options []Option) *Property {
	opts := make([]Option, len(options))
	copy(opts, options)
	return &Property{Kind: KindIntList, Key: key, Label: label, Options: opts}
}

func floatRange(key, label string, min, max, step float64) *Property {
	return &Property{Kind: KindFloatRange, Key: key, Label: label, Min: min, Max: max, Step: step}
}

func find(props []*Property, key string) *Property {
	for _, p := range props {
		if p.Key == key {
			return p
		}
		if hit := find(p.Children, key); hit != nil {
			return hit
		}
	}
	return nil
}
