// Package qasm reads and writes OpenQASM programs. Parse accepts the OpenQASM 2
// and 3 subset that maps onto the circuit model; Export writes OpenQASM 3.
package qasm

import (
	"bufio"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/circuit"
)

var (
	headerRegex   = regexp.MustCompile(`^OPENQASM\s+[23](\.\d+)?$`)
	includeRegex  = regexp.MustCompile(`^include\s+"[^"]*"$`)
	qregRegex     = regexp.MustCompile(`^qreg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	cregRegex     = regexp.MustCompile(`^creg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	qubitRegex    = regexp.MustCompile(`^qubit(?:\s*\[\s*(\d+)\s*\])?\s+(\w+)$`)
	bitRegex      = regexp.MustCompile(`^bit(?:\s*\[\s*(\d+)\s*\])?\s+(\w+)$`)
	inputRegex    = regexp.MustCompile(`^input\s+(?:float|angle)(?:\s*\[\s*\d+\s*\])?\s+(\w+)$`)
	measure2Regex = regexp.MustCompile(`^measure\s+(.+?)\s*->\s*(.+)$`)
	measure3Regex = regexp.MustCompile(`^(.+?)\s*=\s*measure\s+(.+)$`)
	resetRegex    = regexp.MustCompile(`^reset\s+(.+)$`)
	barrierRegex  = regexp.MustCompile(`^barrier(?:\s+(.+))?$`)
	ifRegex       = regexp.MustCompile(`^if\s*\((.+?)\)\s*(.+)$`)
	condRegex     = regexp.MustCompile(`^(\w+)(?:\s*\[\s*(\d+)\s*\])?\s*==\s*(\d+|true|false)$`)
	gateRegex     = regexp.MustCompile(`^((?:\w+(?:\s*\(\s*\d+\s*\))?\s*@\s*)*)(\w+)\s*(?:\((.*?)\))?\s+(.+)$`)
	modifierRegex = regexp.MustCompile(`(\w+)(?:\s*\(\s*(\d+)\s*\))?\s*@`)
	operandRegex  = regexp.MustCompile(`^(\w+)(?:\s*\[\s*(\d+)\s*\])?$`)
	namedRegex    = regexp.MustCompile(`^(-)?(?:(\d+(?:\.\d*)?)\s*\*\s*)?([A-Za-z_]\w*)(?:\s*/\s*(\d+(?:\.\d*)?))?$`)
)

// shorthands are controlled standard gates: the number of controls and the
// base gate mnemonic.
var shorthands = map[string]struct {
	controls int
	base     string
}{
	"cx":      {1, "x"},
	"cnot":    {1, "x"},
	"cy":      {1, "y"},
	"cz":      {1, "z"},
	"ch":      {1, "h"},
	"csx":     {1, "sx"},
	"cp":      {1, "p"},
	"cphase":  {1, "p"},
	"cu1":     {1, "p"},
	"crx":     {1, "rx"},
	"cry":     {1, "ry"},
	"crz":     {1, "rz"},
	"ccx":     {2, "x"},
	"toffoli": {2, "x"},
	"cswap":   {1, "swap"},
	"fredkin": {1, "swap"},
}

// unsupported statements that start with these keywords
var blockKeywords = []string{"gate", "def", "opaque", "for", "while", "defcal", "cal", "box", "let", "const"}

type statement struct {
	line int
	text string
}

type parser struct {
	qregs  map[string][]string
	cregs  map[string][]string
	qubits []string
	bits   []string
	inputs map[string]bool
	steps  []circuit.Step
	line   int
	text   string
}

// Parse reads an OpenQASM 2 or 3 program. Qubits are labelled "reg[i]" in
// declaration order and bits likewise. Declared inputs become named
// parameters with the same name.
func Parse(src string) (*circuit.Sequence, error) {
	stmts, err := split(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		qregs:  make(map[string][]string),
		cregs:  make(map[string][]string),
		inputs: make(map[string]bool),
	}
	for _, st := range stmts {
		p.line, p.text = st.line, st.text
		if err := p.statement(st.text); err != nil {
			return nil, err
		}
	}
	seq, err := circuit.NewSequence(p.qubits, p.bits, p.steps)
	if err != nil {
		return nil, errors.Wrap(err, "qasm")
	}
	return seq, nil
}

// split strips comments and cuts the source into statements on ';'.
func split(src string) ([]statement, error) {
	var (
		out     []statement
		pending strings.Builder
		start   int
	)
	sc := bufio.NewScanner(strings.NewReader(src))
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if strings.Contains(line, "/*") || strings.ContainsAny(line, "{}") {
			return nil, &UnsupportedConstructError{Line: n, Construct: "block", Reason: "blocks and block comments are not supported"}
		}
		for {
			i := strings.IndexByte(line, ';')
			part := line
			if i >= 0 {
				part = line[:i]
			}
			if strings.TrimSpace(part) != "" {
				if pending.Len() == 0 {
					start = n
				}
				pending.WriteString(part)
				pending.WriteByte(' ')
			}
			if i < 0 {
				break
			}
			if text := strings.TrimSpace(pending.String()); text != "" {
				out = append(out, statement{line: start, text: text})
			}
			pending.Reset()
			line = line[i+1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "qasm: read")
	}
	if text := strings.TrimSpace(pending.String()); text != "" {
		if headerRegex.MatchString(text) {
			return out, nil
		}
		return nil, &ParseError{Line: start, Text: text, Msg: "missing ';'"}
	}
	return out, nil
}

func (p *parser) fail(msg string, args ...any) error {
	return &ParseError{Line: p.line, Text: p.text, Msg: fmt.Sprintf(msg, args...)}
}

func (p *parser) unsupported(construct, reason string) error {
	return &UnsupportedConstructError{Line: p.line, Construct: construct, Reason: reason}
}

func (p *parser) statement(s string) error {
	switch {
	case headerRegex.MatchString(s), includeRegex.MatchString(s):
		return nil
	case qregRegex.MatchString(s):
		m := qregRegex.FindStringSubmatch(s)
		return p.declare(p.qregs, &p.qubits, m[1], m[2])
	case qubitRegex.MatchString(s):
		m := qubitRegex.FindStringSubmatch(s)
		return p.declare(p.qregs, &p.qubits, m[2], m[1])
	case cregRegex.MatchString(s):
		m := cregRegex.FindStringSubmatch(s)
		return p.declare(p.cregs, &p.bits, m[1], m[2])
	case bitRegex.MatchString(s):
		m := bitRegex.FindStringSubmatch(s)
		return p.declare(p.cregs, &p.bits, m[2], m[1])
	case inputRegex.MatchString(s):
		p.inputs[inputRegex.FindStringSubmatch(s)[1]] = true
		return nil
	case ifRegex.MatchString(s):
		m := ifRegex.FindStringSubmatch(s)
		return p.conditional(m[1], m[2])
	}
	for _, kw := range blockKeywords {
		if s == kw || strings.HasPrefix(s, kw+" ") {
			return p.unsupported(kw, "only flat programs over standard gates are supported")
		}
	}
	steps, err := p.operation(s)
	if err != nil {
		return err
	}
	p.steps = append(p.steps, steps...)
	return nil
}

// declare adds a register. size is empty for a single qubit or bit.
func (p *parser) declare(regs map[string][]string, labels *[]string, name, size string) error {
	if _, ok := p.qregs[name]; ok {
		return p.fail("register %s redeclared", name)
	}
	if _, ok := p.cregs[name]; ok {
		return p.fail("register %s redeclared", name)
	}
	n := 1
	if size != "" {
		var err error
		if n, err = strconv.Atoi(size); err != nil || n < 1 {
			return p.fail("bad register size %q", size)
		}
	}
	reg := make([]string, n)
	for i := range reg {
		reg[i] = fmt.Sprintf("%s[%d]", name, i)
	}
	regs[name] = reg
	*labels = append(*labels, reg...)
	return nil
}

// operation parses a measure, reset, barrier or gate statement into steps.
func (p *parser) operation(s string) ([]circuit.Step, error) {
	switch {
	case measure2Regex.MatchString(s):
		m := measure2Regex.FindStringSubmatch(s)
		return p.measure(m[1], m[2])
	case measure3Regex.MatchString(s):
		m := measure3Regex.FindStringSubmatch(s)
		return p.measure(m[2], m[1])
	case resetRegex.MatchString(s):
		qs, err := p.operand(p.qregs, resetRegex.FindStringSubmatch(s)[1])
		if err != nil {
			return nil, err
		}
		steps := make([]circuit.Step, len(qs))
		for i, q := range qs {
			steps[i] = circuit.On(circuit.Reset(1), q)
		}
		return steps, nil
	case barrierRegex.MatchString(s):
		m := barrierRegex.FindStringSubmatch(s)
		qs := p.qubits
		if m[1] != "" {
			qs = nil
			for _, arg := range strings.Split(m[1], ",") {
				labels, err := p.operand(p.qregs, arg)
				if err != nil {
					return nil, err
				}
				qs = append(qs, labels...)
			}
		}
		if len(qs) == 0 {
			return nil, nil
		}
		return []circuit.Step{circuit.On(circuit.Barrier(len(qs)), qs...)}, nil
	case gateRegex.MatchString(s):
		m := gateRegex.FindStringSubmatch(s)
		return p.gate(m[1], m[2], m[3], m[4])
	}
	return nil, p.unsupported("statement", "unrecognised syntax")
}

func (p *parser) measure(qarg, carg string) ([]circuit.Step, error) {
	qs, err := p.operand(p.qregs, qarg)
	if err != nil {
		return nil, err
	}
	cs, err := p.operand(p.cregs, carg)
	if err != nil {
		return nil, err
	}
	if len(qs) != len(cs) {
		return nil, p.fail("measure of %d qubits into %d bits", len(qs), len(cs))
	}
	steps := make([]circuit.Step, len(qs))
	for i := range qs {
		steps[i] = circuit.Step{Op: circuit.Measure(1), Qubits: []string{qs[i]}, Bits: []string{cs[i]}}
	}
	return steps, nil
}

// operand resolves "reg[i]" to one label and "reg" to the whole register.
func (p *parser) operand(regs map[string][]string, arg string) ([]string, error) {
	m := operandRegex.FindStringSubmatch(strings.TrimSpace(arg))
	if m == nil {
		return nil, p.fail("bad operand %q", arg)
	}
	reg, ok := regs[m[1]]
	if !ok {
		return nil, p.fail("undeclared register %s", m[1])
	}
	if m[2] == "" {
		return reg, nil
	}
	i, err := strconv.Atoi(m[2])
	if err != nil || i >= len(reg) {
		return nil, p.fail("index %s out of range for %s[%d]", m[2], m[1], len(reg))
	}
	return []string{reg[i]}, nil
}

// gate builds a possibly modified gate and broadcasts it over whole-register
// operands.
func (p *parser) gate(modifiers, name, params, args string) ([]circuit.Step, error) {
	var pattern []int
	inverse := false
	for _, mod := range modifierRegex.FindAllStringSubmatch(modifiers, -1) {
		n := 1
		if mod[2] != "" {
			n, _ = strconv.Atoi(mod[2])
		}
		switch mod[1] {
		case "ctrl":
			for range n {
				pattern = append(pattern, 1)
			}
		case "negctrl":
			for range n {
				pattern = append(pattern, 0)
			}
		case "inv":
			inverse = !inverse
		default:
			return nil, p.unsupported("modifier "+mod[1], "only ctrl, negctrl and inv are supported")
		}
	}

	mnemonic := strings.ToLower(name)
	if sh, ok := shorthands[mnemonic]; ok {
		for range sh.controls {
			pattern = append(pattern, 1)
		}
		mnemonic = sh.base
	}
	if !circuit.IsGate(mnemonic) {
		return nil, p.unsupported("gate "+name, "no elementary equivalent")
	}

	var ps []circuit.Param
	if strings.TrimSpace(params) != "" {
		for _, expr := range strings.Split(params, ",") {
			prm, err := p.param(expr)
			if err != nil {
				return nil, err
			}
			ps = append(ps, prm)
		}
	}
	g, err := circuit.NewGate(mnemonic, ps...)
	if err != nil {
		return nil, p.fail("%v", err)
	}
	var op circuit.Operation = g
	if inverse {
		if op, err = g.Inverse(); err != nil {
			return nil, p.fail("%v", err)
		}
	}
	if len(pattern) > 0 {
		if op, err = circuit.NewControlled(op, pattern...); err != nil {
			return nil, p.fail("%v", err)
		}
	}

	var operands [][]string
	width := 1
	for _, arg := range strings.Split(args, ",") {
		labels, err := p.operand(p.qregs, arg)
		if err != nil {
			return nil, err
		}
		if len(labels) > 1 {
			if width > 1 && len(labels) != width {
				return nil, p.fail("registers of different sizes in one gate")
			}
			width = len(labels)
		}
		operands = append(operands, labels)
	}
	if len(operands) != op.NumQubits() {
		return nil, p.fail("%s takes %d qubits, got %d", name, op.NumQubits(), len(operands))
	}
	steps := make([]circuit.Step, width)
	for i := range width {
		qs := make([]string, len(operands))
		for j, labels := range operands {
			if len(labels) == 1 {
				qs[j] = labels[0]
			} else {
				qs[j] = labels[i]
			}
		}
		steps[i] = circuit.On(op, qs...)
	}
	return steps, nil
}

// param parses a literal angle or a scaled reference to a declared input,
// such as "theta", "-theta/2" or "0.5*theta".
func (p *parser) param(expr string) (circuit.Param, error) {
	expr = strings.TrimSpace(expr)
	if v, err := circuit.ParseAngle(expr); err == nil {
		return circuit.Angle(v), nil
	}
	m := namedRegex.FindStringSubmatch(expr)
	if m == nil {
		return circuit.Param{}, p.unsupported("expression "+expr, "only pi expressions and scaled inputs are supported")
	}
	if !p.inputs[m[3]] {
		return circuit.Param{}, p.fail("undeclared parameter %s", m[3])
	}
	prm := circuit.Named(m[3])
	if m[2] != "" {
		f, _ := strconv.ParseFloat(m[2], 64)
		prm = prm.Scaled(f)
	}
	if m[4] != "" {
		d, _ := strconv.ParseFloat(m[4], 64)
		if d == 0 {
			return circuit.Param{}, p.fail("division by zero")
		}
		prm = prm.Scaled(1 / d)
	}
	if m[1] == "-" {
		prm = prm.Scaled(-1)
	}
	return prm, nil
}

// conditional parses "if (cond && ...) stmt". A whole-register condition
// compares the register as an integer with reg[0] as the low bit.
func (p *parser) conditional(cond, body string) error {
	var (
		bits   []string
		values []int
	)
	for _, c := range strings.Split(cond, "&&") {
		m := condRegex.FindStringSubmatch(strings.TrimSpace(c))
		if m == nil {
			return p.unsupported("condition "+strings.TrimSpace(c), "only equality tests on bits are supported")
		}
		reg, ok := p.cregs[m[1]]
		if !ok {
			return p.fail("undeclared register %s", m[1])
		}
		var v uint64
		switch m[3] {
		case "true":
			v = 1
		case "false":
			v = 0
		default:
			v, _ = strconv.ParseUint(m[3], 10, 64)
		}
		if m[2] != "" {
			labels, err := p.operand(p.cregs, m[1]+"["+m[2]+"]")
			if err != nil {
				return err
			}
			if v > 1 {
				return p.fail("bit compared with %d", v)
			}
			bits = append(bits, labels[0])
			values = append(values, int(v))
			continue
		}
		if len(reg) < 64 && v>>len(reg) != 0 {
			return p.fail("value %d does not fit %s[%d]", v, m[1], len(reg))
		}
		for j, l := range reg {
			bits = append(bits, l)
			values = append(values, int(v>>j&1))
		}
	}

	steps, err := p.operation(strings.TrimSpace(body))
	if err != nil {
		return err
	}
	for _, st := range steps {
		if st.Op.Kind() == circuit.KindBarrier {
			p.steps = append(p.steps, st)
			continue
		}
		for _, b := range st.Bits {
			if slices.Contains(bits, b) {
				return p.unsupported("if ("+strings.TrimSpace(cond)+") "+strings.TrimSpace(body),
					"the guarded statement writes bit "+b+" that the condition reads")
			}
		}
		op, err := circuit.NewClassical(st.Op, values...)
		if err != nil {
			return p.fail("%v", err)
		}
		p.steps = append(p.steps, circuit.Step{
			Op:     op,
			Qubits: st.Qubits,
			Bits:   append(append([]string(nil), bits...), st.Bits...),
		})
	}
	return nil
}
