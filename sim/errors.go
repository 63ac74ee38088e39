package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// WireArityError reports a wire mapping whose length does not match the
// operation, or that names a wire twice.
type WireArityError struct {
	Op         string
	WantQubits int
	GotQubits  int
	WantBits   int
	GotBits    int
	Detail     string
}

func (e *WireArityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("sim: %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("sim: %s takes %d qubits and %d bits, got %d and %d",
		e.Op, e.WantQubits, e.WantBits, e.GotQubits, e.GotBits)
}

// DimensionError reports an operation that does not fit the simulator.
type DimensionError struct {
	Op     string
	Qubits int
	Bits   int
	Detail string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("sim: %s does not fit a %d-qubit, %d-bit simulator: %s", e.Op, e.Qubits, e.Bits, e.Detail)
}

// UnsupportedOperationError reports a leaf the backend cannot represent.
// The simulator state is unchanged by the failing leaf.
type UnsupportedOperationError struct {
	Op      string
	Backend Kind
	Err     error
}

func (e *UnsupportedOperationError) Error() string {
	msg := fmt.Sprintf("sim: %s backend cannot apply %s", e.Backend, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnsupportedOperationError) Unwrap() error { return e.Err }

var (
	// ErrAmbiguousBits is returned when enumerated branches disagree on the
	// classical register.
	ErrAmbiguousBits = errors.New("sim: classical bits differ between measurement branches")

	// ErrWrongBackend is returned by accessors the backend kind does not
	// provide.
	ErrWrongBackend = errors.New("sim: query not supported by this backend")
)
