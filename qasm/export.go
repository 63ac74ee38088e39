package qasm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qdeck/circuit"
)

// daggers maps adjoint gates with their own stdgates.inc name.
var daggers = map[string]string{
	"s":  "sdg",
	"t":  "tdg",
	"sx": "sxdg",
}

// controlledNames are the single-control stdgates.inc shorthands.
var controlledNames = map[string]string{
	"x":    "cx",
	"y":    "cy",
	"z":    "cz",
	"h":    "ch",
	"sx":   "csx",
	"p":    "cp",
	"rx":   "crx",
	"ry":   "cry",
	"rz":   "crz",
	"swap": "cswap",
}

// identifiers turns parameter names into valid, distinct OpenQASM
// identifiers, in order of first use.
type identifiers struct {
	byName map[string]string
	taken  map[string]bool
	order  []string
}

func newIdentifiers() *identifiers {
	return &identifiers{byName: make(map[string]string), taken: map[string]bool{"q": true, "c": true, "pi": true}}
}

func (ids *identifiers) get(name string) string {
	if id, ok := ids.byName[name]; ok {
		return id
	}
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	base := b.String()
	if base == "" || unicode.IsDigit(rune(base[0])) {
		base = "p_" + base
	}
	id := base
	for n := 2; ids.taken[id]; n++ {
		id = base + "_" + strconv.Itoa(n)
	}
	ids.taken[id] = true
	ids.byName[name] = id
	ids.order = append(ids.order, id)
	return id
}

// Export writes op as an OpenQASM 3 program over one qubit register q and
// one bit register c. Ancillas follow the interface qubits. Named
// parameters become float inputs; their names are rewritten to valid
// identifiers where needed.
func Export(op circuit.Operation) (string, error) {
	if op == nil {
		return "", errors.New("qasm: export of nil operation")
	}
	nq, nb := op.NumQubits(), op.NumBits()
	na := circuit.AncillaCount(op)

	ids := newIdentifiers()
	var body strings.Builder
	for leaf, err := range circuit.Walk(op, span(0, nq), span(0, nb), span(nq, na)) {
		if err != nil {
			return "", errors.Wrap(err, "qasm: export")
		}
		lines, err := leafLines(leaf, ids)
		if err != nil {
			return "", err
		}
		for _, l := range lines {
			body.WriteString(l)
			body.WriteByte('\n')
		}
	}

	var b strings.Builder
	b.WriteString("OPENQASM 3.0;\n")
	b.WriteString("include \"stdgates.inc\";\n")
	for _, id := range ids.order {
		fmt.Fprintf(&b, "input float[64] %s;\n", id)
	}
	fmt.Fprintf(&b, "qubit[%d] q;\n", nq+na)
	if nb > 0 {
		fmt.Fprintf(&b, "bit[%d] c;\n", nb)
	}
	if na > 0 {
		fmt.Fprintf(&b, "// ancillas: q[%d]..q[%d]\n", nq, nq+na-1)
	}
	b.WriteString(body.String())
	return b.String(), nil
}

func span(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}

func leafLines(leaf circuit.Leaf, ids *identifiers) ([]string, error) {
	op, bits := leaf.Op, leaf.Bits
	prefix := ""
	if cl, ok := op.(*circuit.Classical); ok {
		k := cl.Conditions()
		conds := make([]string, k)
		for i, v := range cl.Values() {
			conds[i] = fmt.Sprintf("c[%d] == %d", bits[i], boolInt(v))
		}
		prefix = "if (" + strings.Join(conds, " && ") + ") "
		op, bits = cl.Base(), bits[k:]
	}

	switch op.Kind() {
	case circuit.KindMeasure:
		lines := make([]string, len(bits))
		for j, b := range bits {
			lines[j] = fmt.Sprintf("%sc[%d] = measure q[%d];", prefix, b, leaf.Qubits[j])
		}
		return lines, nil
	case circuit.KindReset:
		lines := make([]string, len(leaf.Qubits))
		for j, q := range leaf.Qubits {
			lines[j] = fmt.Sprintf("%sreset q[%d];", prefix, q)
		}
		return lines, nil
	case circuit.KindBarrier:
		return []string{"barrier " + qubitList(leaf.Qubits) + ";"}, nil
	}

	stmt, err := gateStatement(op, ids)
	if err != nil {
		return nil, err
	}
	return []string{prefix + stmt + " " + qubitList(leaf.Qubits) + ";"}, nil
}

func gateStatement(op circuit.Operation, ids *identifiers) (string, error) {
	var pattern []bool
	if c, ok := op.(*circuit.Controlled); ok {
		pattern = c.Pattern()
		op = c.Base()
	}
	g, ok := op.(*circuit.Gate)
	if !ok {
		return "", &UnsupportedConstructError{Construct: op.Name(), Reason: "not an elementary gate"}
	}
	mnemonic := g.Mnemonic()
	switch mnemonic {
	case "custom":
		return "", &UnsupportedConstructError{Construct: "custom gate " + g.CustomName(), Reason: "matrix-only gates have no OpenQASM equivalent"}
	case "permute":
		return "", &UnsupportedConstructError{Construct: g.Name(), Reason: "no elementary equivalent"}
	}

	params := ""
	if ps := g.Params(); len(ps) > 0 {
		args := make([]string, len(ps))
		for i, p := range ps {
			args[i] = paramExpr(p, ids)
		}
		params = "(" + strings.Join(args, ", ") + ")"
	}

	name := mnemonic
	inv := ""
	if g.Dagger() {
		if d, ok := daggers[mnemonic]; ok {
			name = d
		} else {
			inv = "inv @ "
		}
	}

	switch {
	case len(pattern) == 1 && pattern[0] && inv == "" && controlledNames[name] != "":
		return controlledNames[name] + params, nil
	case len(pattern) == 2 && pattern[0] && pattern[1] && name == "x":
		return "ccx", nil
	}
	var mods strings.Builder
	for _, on := range pattern {
		if on {
			mods.WriteString("ctrl @ ")
		} else {
			mods.WriteString("negctrl @ ")
		}
	}
	return mods.String() + inv + name + params, nil
}

func paramExpr(p circuit.Param, ids *identifiers) string {
	if !p.IsNamed() {
		return circuit.FormatAngle(p.Value)
	}
	id := ids.get(p.Name)
	switch p.Value {
	case 1:
		return id
	case -1:
		return "-" + id
	}
	s := strconv.FormatFloat(p.Value, 'f', -1, 64)
	return s + "*" + id
}

func qubitList(qs []int) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.Join(parts, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
