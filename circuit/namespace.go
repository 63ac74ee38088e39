package circuit

// Scoped moves an operation into a namespace. Its name and every named
// parameter reached through it are prefixed, and so are the labels of any
// ancillas its sequences allocate.
type Scoped struct {
	prefix string
	base   Operation
}

// WithPrefix wraps base in the namespace prefix. Prefixes of nested scopes
// concatenate outermost first.
func WithPrefix(prefix string, base Operation) *Scoped {
	return &Scoped{prefix: prefix, base: base}
}

func (s *Scoped) Prefix() string  { return s.prefix }
func (s *Scoped) Base() Operation { return s.base }

func (s *Scoped) Name() string   { return s.prefix + s.base.Name() }
func (s *Scoped) NumQubits() int { return s.base.NumQubits() }
func (s *Scoped) NumBits() int   { return s.base.NumBits() }
func (s *Scoped) Kind() Kind     { return KindScoped }
func (s *Scoped) Unitary() bool  { return s.base.Unitary() }

func (s *Scoped) Inverse() (Operation, error) {
	inv, err := s.base.Inverse()
	if err != nil {
		return nil, err
	}
	return WithPrefix(s.prefix, inv), nil
}

// DefaultValues collects the default parameter values of every operation in
// the tree under op, with namespace prefixes applied.
func DefaultValues(op Operation) (map[string]float64, error) {
	out := make(map[string]float64)
	if err := collectDefaults(op, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectDefaults(op Operation, scope string, out map[string]float64) error {
	switch o := op.(type) {
	case *Scoped:
		return collectDefaults(o.base, scope+o.prefix, out)
	case *Controlled:
		return collectDefaults(o.base, scope, out)
	case *Classical:
		return collectDefaults(o.base, scope, out)
	}
	if d, ok := op.(Defaulter); ok {
		for k, v := range d.Defaults() {
			out[scope+k] = v
		}
	}
	ex, ok := op.(Expander)
	if !ok {
		return nil
	}
	seq, err := ex.Expand()
	if err != nil {
		return err
	}
	for _, st := range seq.steps {
		if err := collectDefaults(st.Op, scope, out); err != nil {
			return err
		}
	}
	return nil
}
