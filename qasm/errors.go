package qasm

import "fmt"

// UnsupportedConstructError reports OpenQASM that has no equivalent in the
// circuit model, or a circuit construct that has no OpenQASM equivalent.
type UnsupportedConstructError struct {
	Line      int // 0 when exporting
	Construct string
	Reason    string
}

func (e *UnsupportedConstructError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("qasm: line %d: unsupported %s: %s", e.Line, e.Construct, e.Reason)
	}
	return fmt.Sprintf("qasm: unsupported %s: %s", e.Construct, e.Reason)
}

// ParseError reports malformed input, such as an undeclared register.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("qasm: line %d: %s: %q", e.Line, e.Msg, e.Text)
}
