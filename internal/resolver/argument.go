package resolver

import (
	"fmt"
	"strings"

	"ocm.software/open-component-model/bindings/go/dag"
)

// Kind selects the flag type registered for an Argument.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindDuration
)

// Argument declares one option a resolver understands.
type Argument struct {
	Name     string
	Kind     Kind
	Help     string
	Dest     string // defaults to Name with '-' replaced by '_'
	Required bool
	Requires []string // names of other arguments of the same resolver
	Default  any
}

// DestKey returns the key the argument's value is stored under in Options.
func (a *Argument) DestKey() string {
	if a.Dest != "" {
		return a.Dest
	}
	return strings.ReplaceAll(a.Name, "-", "_")
}

// FlagName returns the namespaced command-line flag, e.g. "twitch-oauth-token".
func (a *Argument) FlagName(resolver string) string {
	return resolver + "-" + a.Name
}

// NamespaceDest returns the destination key prefixed with the resolver name.
func (a *Argument) NamespaceDest(resolver string) string {
	return resolver + "_" + a.DestKey()
}

// Expansion is the outcome of walking the requires relation of an argument.
type Expansion int

const (
	ExpansionOK Expansion = iota
	// ExpansionCycle means the walk reached an edge that closes a cycle.
	ExpansionCycle
)

// Arguments is the ordered set of arguments declared by one resolver.
//
// The requires relation is checked once at construction: every edge is
// inserted into a DAG and edges the graph refuses (self references and
// cycles) are kept aside, so Requires never loops.
type Arguments struct {
	list     []*Argument
	index    map[string]int
	edges    map[string][]string
	rejected map[string][]string
	problems []error
}

// NewArguments builds the argument set and validates the requires graph.
// Problems are recorded, not returned; see Problems.
func NewArguments(args ...*Argument) *Arguments {
	a := &Arguments{
		index:    make(map[string]int, len(args)),
		edges:    make(map[string][]string),
		rejected: make(map[string][]string),
	}

	graph := dag.NewDirectedAcyclicGraph[string]()
	for _, arg := range args {
		if _, exists := a.index[arg.Name]; exists {
			a.problems = append(a.problems, fmt.Errorf("argument %q declared twice", arg.Name))
			continue
		}
		if err := graph.AddVertex(arg.Name); err != nil {
			a.problems = append(a.problems, fmt.Errorf("argument %q: %w", arg.Name, err))
			continue
		}
		a.index[arg.Name] = len(a.list)
		a.list = append(a.list, arg)
	}

	for _, arg := range a.list {
		for _, req := range arg.Requires {
			if _, ok := a.index[req]; !ok {
				a.problems = append(a.problems, fmt.Errorf("argument %q requires undeclared argument %q", arg.Name, req))
				continue
			}
			if err := graph.AddEdge(arg.Name, req); err != nil {
				a.rejected[arg.Name] = append(a.rejected[arg.Name], req)
				a.problems = append(a.problems, fmt.Errorf("argument %q requires %q: %w", arg.Name, req, err))
				continue
			}
			a.edges[arg.Name] = append(a.edges[arg.Name], req)
		}
	}
	return a
}

// All returns the arguments in declaration order.
func (a *Arguments) All() []*Argument {
	if a == nil {
		return nil
	}
	return a.list
}

// Len returns the number of declared arguments.
func (a *Arguments) Len() int {
	return len(a.All())
}

// Get returns the argument called name.
func (a *Arguments) Get(name string) (*Argument, bool) {
	if a == nil {
		return nil, false
	}
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.list[i], true
}

// Problems returns the configuration errors found while building the set.
func (a *Arguments) Problems() []error {
	if a == nil {
		return nil
	}
	return a.problems
}

// Requires returns every argument transitively required by name, in
// discovery order, excluding name itself. The walk never follows a
// rejected edge; reaching one yields ExpansionCycle together with the
// arguments found so far.
func (a *Arguments) Requires(name string) ([]*Argument, Expansion) {
	if _, ok := a.Get(name); !ok {
		return nil, ExpansionOK
	}

	outcome := ExpansionOK
	seen := map[string]bool{name: true}
	onPath := map[string]bool{}
	var found []*Argument

	var walk func(n string)
	walk = func(n string) {
		if len(a.rejected[n]) > 0 {
			outcome = ExpansionCycle
		}
		onPath[n] = true
		for _, req := range a.edges[n] {
			if onPath[req] {
				outcome = ExpansionCycle
				continue
			}
			if seen[req] {
				continue
			}
			seen[req] = true
			found = append(found, a.list[a.index[req]])
			walk(req)
		}
		onPath[n] = false
	}
	walk(name)

	return found, outcome
}
