package resolver

// Requirements is the result of applying one request's argument values.
type Requirements struct {
	// Required is the working set: required or set arguments plus everything
	// they transitively require, in discovery order.
	Required []*Argument
	// Missing lists members of Required whose value is unset.
	Missing []*Argument
	// Cycle is set when expansion hit a requires cycle and was stopped.
	Cycle bool
}

// Apply copies values (aligned with args.All()) into opts and computes the
// requires closure. A missing value at index i leaves the argument default.
//
// After a cycle is detected no further requires edges are expanded for
// this pass, but the remaining values are still copied.
func Apply(args *Arguments, values []any, opts *Options) Requirements {
	var res Requirements
	inSet := make(map[string]bool)
	add := func(arg *Argument) {
		if inSet[arg.Name] {
			return
		}
		inSet[arg.Name] = true
		res.Required = append(res.Required, arg)
	}

	for i, arg := range args.All() {
		value := arg.Default
		if i < len(values) {
			value = values[i]
		}
		opts.Set(arg.DestKey(), value)

		if !arg.Required && !Truthy(value) {
			continue
		}
		add(arg)
		if res.Cycle {
			continue
		}

		deps, outcome := args.Requires(arg.Name)
		for _, dep := range deps {
			add(dep)
		}
		if outcome == ExpansionCycle {
			res.Cycle = true
		}
	}

	for _, arg := range res.Required {
		if !Truthy(opts.Get(arg.DestKey())) {
			res.Missing = append(res.Missing, arg)
		}
	}
	return res
}

// Defaults returns the declared default of every argument keyed by DestKey.
func Defaults(args *Arguments) map[string]any {
	defaults := make(map[string]any, args.Len())
	for _, arg := range args.All() {
		defaults[arg.DestKey()] = arg.Default
	}
	return defaults
}
