// Package decompose rewrites multi-controlled operations into sequences
// whose controlled steps stay within a control limit, optionally borrowing
// ancilla qubits.
package decompose

import (
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qdeck/circuit"
)

const DefaultCacheSize = 256

// Error reports a controlled operation the decomposer has no rule for.
type Error struct {
	Op     string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("decompose: %s: %s", e.Op, e.Reason)
}

// Decomposer rewrites controlled operations with more than maxControls
// controls. Results are deterministic for a given base gate, control
// pattern, limit and ancilla budget, and are cached.
type Decomposer struct {
	limit     int
	budget    int
	cacheSize int
	cache     *lru.Cache[string, *circuit.Sequence]
	logger    *zap.Logger
	metrics   *Metrics
}

type Option func(*Decomposer)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Decomposer) { d.logger = logger }
}

func WithCacheSize(n int) Option {
	return func(d *Decomposer) { d.cacheSize = n }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Decomposer) { d.metrics = m }
}

// New returns a decomposer that leaves at most maxControls controls on any
// step and may borrow up to ancillas fresh qubits per decomposition.
func New(maxControls, ancillas int, opts ...Option) (*Decomposer, error) {
	if maxControls < 1 {
		return nil, errors.Errorf("decompose: control limit %d must be at least 1", maxControls)
	}
	if ancillas < 0 {
		return nil, errors.Errorf("decompose: negative ancilla budget %d", ancillas)
	}
	d := &Decomposer{
		limit:     maxControls,
		budget:    ancillas,
		cacheSize: DefaultCacheSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	cache, err := lru.New[string, *circuit.Sequence](d.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decomposition cache")
	}
	d.cache = cache
	return d, nil
}

func (d *Decomposer) MaxControls() int { return d.limit }
func (d *Decomposer) Ancillas() int    { return d.budget }

func cacheKey(g *circuit.Gate, pattern []bool, limit, budget int) string {
	var sb strings.Builder
	sb.WriteString(g.Key())
	sb.WriteByte('|')
	for _, on := range pattern {
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(limit))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(budget))
	return sb.String()
}

// Decompose rewrites c into an equivalent sequence on c's qubits (controls
// first) whose controlled steps have at most MaxControls controls.
// Ancillas, if any, are declared local to the returned sequence.
func (d *Decomposer) Decompose(c *circuit.Controlled) (*circuit.Sequence, error) {
	// composite bases can share a display name, so only gates are cached
	g, ok := c.Base().(*circuit.Gate)
	if !ok {
		return d.decompose(c)
	}
	key := cacheKey(g, c.Pattern(), d.limit, d.budget)
	if seq, ok := d.cache.Get(key); ok {
		d.metrics.cacheHit()
		return seq, nil
	}
	seq, err := d.decompose(c)
	if err != nil {
		return nil, err
	}
	d.cache.Add(key, seq)
	return seq, nil
}

func (d *Decomposer) decompose(c *circuit.Controlled) (*circuit.Sequence, error) {
	switch base := c.Base().(type) {
	case *circuit.Gate:
		b := newBuilder(c.Controls(), base.NumQubits())
		if err := d.controlledGate(b, c.Pattern(), b.controls, base, b.targets); err != nil {
			return nil, err
		}
		return b.sequence()
	default:
		op, err := d.pushControl(c)
		if err != nil {
			return nil, err
		}
		if seq, ok := op.(*circuit.Sequence); ok {
			return seq, nil
		}
		if op == circuit.Operation(c) {
			return nil, &Error{Op: c.Name(), Reason: "base has no decomposition"}
		}
		qubits := circuit.Wires(c.NumQubits())
		return circuit.NewSequence(qubits, nil, []circuit.Step{circuit.On(op, qubits...)})
	}
}

// builder accumulates steps over the wires of one decomposition.
type builder struct {
	qubits   []string
	controls []string
	targets  []string
	ancillas []string
	steps    []circuit.Step
}

func newBuilder(nc, nt int) *builder {
	b := &builder{qubits: circuit.Wires(nc + nt)}
	b.controls = b.qubits[:nc]
	b.targets = b.qubits[nc:]
	return b
}

func (b *builder) add(op circuit.Operation, qubits ...string) {
	b.steps = append(b.steps, circuit.On(op, qubits...))
}

func (b *builder) ancilla(i int) string {
	for len(b.ancillas) <= i {
		b.ancillas = append(b.ancillas, "anc"+strconv.Itoa(len(b.ancillas)))
	}
	return b.ancillas[i]
}

func (b *builder) sequence() (*circuit.Sequence, error) {
	return circuit.NewSequence(b.qubits, nil, b.steps, circuit.WithAncillas(b.ancillas...))
}

func ones(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func wires(ws ...[]string) []string {
	var out []string
	for _, w := range ws {
		out = append(out, w...)
	}
	return out
}

// controlledGate emits g controlled by ctrl with the given pattern.
func (d *Decomposer) controlledGate(b *builder, pattern []bool, ctrl []string, g *circuit.Gate, targets []string) error {
	var flip []string
	for i, on := range pattern {
		if !on {
			flip = append(flip, ctrl[i])
		}
	}
	if len(flip) > 0 {
		d.metrics.record("conjugate")
	}
	for _, w := range flip {
		b.add(circuit.X(), w)
	}
	if err := d.multiControlled(b, ctrl, g, targets); err != nil {
		return err
	}
	for _, w := range flip {
		b.add(circuit.X(), w)
	}
	return nil
}

// multiControlled emits g controlled on |1> by every wire in ctrl.
func (d *Decomposer) multiControlled(b *builder, ctrl []string, g *circuit.Gate, targets []string) error {
	c := len(ctrl)
	if c <= d.limit {
		b.add(circuit.MustControlled(g, ones(c)...), wires(ctrl, targets)...)
		return nil
	}

	if d.limit >= 2 && d.budget >= c-2 {
		d.metrics.record("vchain")
		d.logger.Debug("toffoli v-chain",
			zap.String("gate", g.Name()),
			zap.Int("controls", c),
			zap.Int("ancillas", c-2))
		d.vchain(b, ctrl, g, targets)
		return nil
	}

	if g.NumQubits() != 1 {
		return &Error{Op: g.Name(), Reason: fmt.Sprintf("%d controls exceed limit %d without %d ancillas", c, d.limit, c-2)}
	}
	d.metrics.record("recursive")
	d.logger.Debug("ancilla-free recursion",
		zap.String("gate", g.Name()),
		zap.Int("controls", c))
	return d.recurse(b, ctrl, g, targets[0])
}

// vchain computes the AND of all but the last control into a ladder of
// c-2 ancillas with Toffolis, applies g doubly controlled, and uncomputes.
func (d *Decomposer) vchain(b *builder, ctrl []string, g *circuit.Gate, targets []string) {
	c := len(ctrl)
	ladder := make([]circuit.Step, 0, c-2)
	ladder = append(ladder, circuit.On(circuit.Toffoli(), ctrl[0], ctrl[1], b.ancilla(0)))
	for i := 1; i <= c-3; i++ {
		ladder = append(ladder, circuit.On(circuit.Toffoli(), ctrl[i+1], b.ancilla(i-1), b.ancilla(i)))
	}
	b.steps = append(b.steps, ladder...)
	b.add(circuit.MustControlled(g, 1, 1), wires([]string{ctrl[c-1], b.ancilla(c - 3)}, targets)...)
	for i := len(ladder) - 1; i >= 0; i-- {
		b.steps = append(b.steps, ladder[i])
	}
}

// recurse is the ancilla-free construction for a single-qubit gate g = V²:
// C(V) on the last control, C^(c-1)X onto the last control, C(V†), the same
// C^(c-1)X again, and C^(c-1)(V) from the remaining controls.
func (d *Decomposer) recurse(b *builder, ctrl []string, g *circuit.Gate, target string) error {
	norm, err := normalise(g)
	if err != nil {
		return err
	}
	for _, op := range norm.before {
		b.add(op, target)
	}
	if norm.root != nil {
		if err := d.sqrtRecursion(b, ctrl, norm.root, target); err != nil {
			return err
		}
	}
	for _, op := range norm.after {
		b.add(op, target)
	}
	return nil
}

func (d *Decomposer) sqrtRecursion(b *builder, ctrl []string, v *circuit.Gate, target string) error {
	c := len(ctrl)
	last := ctrl[c-1]
	rest := ctrl[:c-1]
	vdg, err := v.Inverse()
	if err != nil {
		return err
	}

	b.add(circuit.MustControlled(v, 1), last, target)
	if err := d.multiControlled(b, rest, circuit.X(), []string{last}); err != nil {
		return err
	}
	b.add(circuit.MustControlled(vdg, 1), last, target)
	if err := d.multiControlled(b, rest, circuit.X(), []string{last}); err != nil {
		return err
	}
	return d.multiControlled(b, rest, v, []string{target})
}

// Rewrite replaces every controlled operation in the tree under op that
// exceeds the control limit. Operations that need no change are returned
// unchanged.
func (d *Decomposer) Rewrite(op circuit.Operation) (circuit.Operation, error) {
	switch o := op.(type) {
	case *circuit.Controlled:
		if _, ok := o.Base().(*circuit.Gate); ok {
			if o.Controls() <= d.limit {
				return o, nil
			}
			return d.Decompose(o)
		}
		return d.pushControl(o)

	case *circuit.Classical:
		base, err := d.Rewrite(o.Base())
		if err != nil {
			return nil, err
		}
		if base == o.Base() {
			return o, nil
		}
		return circuit.NewClassical(base, boolsToInts(o.Values())...)

	case *circuit.Scoped:
		base, err := d.Rewrite(o.Base())
		if err != nil {
			return nil, err
		}
		if base == o.Base() {
			return o, nil
		}
		return circuit.WithPrefix(o.Prefix(), base), nil

	case circuit.Expander:
		seq, err := o.Expand()
		if err != nil {
			return nil, errors.Wrapf(err, "expand %s", o.Name())
		}
		steps := seq.Steps()
		changed := false
		for i, st := range steps {
			r, err := d.Rewrite(st.Op)
			if err != nil {
				return nil, err
			}
			if r != st.Op {
				steps[i].Op = r
				changed = true
			}
		}
		if !changed {
			return op, nil
		}
		return seq.Rebuild(steps)
	}
	return op, nil
}

// pushControl moves the controls of a controlled composite onto each of
// its steps and rewrites the result.
func (d *Decomposer) pushControl(c *circuit.Controlled) (circuit.Operation, error) {
	pattern := boolsToInts(c.Pattern())
	switch base := c.Base().(type) {
	case *circuit.Scoped:
		inner, err := circuit.NewControlled(base.Base(), pattern...)
		if err != nil {
			return nil, err
		}
		r, err := d.Rewrite(inner)
		if err != nil {
			return nil, err
		}
		return circuit.WithPrefix(base.Prefix(), r), nil

	case circuit.Expander:
		seq, err := base.Expand()
		if err != nil {
			return nil, errors.Wrapf(err, "expand %s", base.Name())
		}
		ctrl := freshLabels(len(pattern), seq)
		steps := seq.Steps()
		out := make([]circuit.Step, len(steps))
		for i, st := range steps {
			op, err := circuit.NewControlled(st.Op, pattern...)
			if err != nil {
				return nil, errors.Wrapf(err, "step %d", i)
			}
			out[i] = circuit.Step{Op: op, Qubits: wires(ctrl, st.Qubits), Bits: st.Bits}
		}
		pushed, err := circuit.NewSequence(wires(ctrl, seq.Qubits()), seq.Bits(), out,
			circuit.WithAncillas(seq.Ancillas()...))
		if err != nil {
			return nil, err
		}
		return d.Rewrite(pushed)
	}
	return c, nil
}

// freshLabels returns n control labels unused by seq.
func freshLabels(n int, seq *circuit.Sequence) []string {
	used := make(map[string]bool)
	for _, l := range seq.Qubits() {
		used[l] = true
	}
	for _, l := range seq.Ancillas() {
		used[l] = true
	}
	out := make([]string, 0, n)
	for i := 0; len(out) < n; i++ {
		l := "ctl" + strconv.Itoa(i)
		if !used[l] {
			out = append(out, l)
		}
	}
	return out
}

func boolsToInts(bs []bool) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		if b {
			out[i] = 1
		}
	}
	return out
}
