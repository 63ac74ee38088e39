package circuit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAngle(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		// Plain numbers
		{"1.5707", 1.5707, true},
		{"-0.5", -0.5, true},
		{"0", 0, true},
		{"42", 42, true},

		// Pi constant
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},
		{"π", math.Pi, true},

		// Pi fractions and coefficients
		{"pi/2", math.Pi / 2, true},
		{"pi/8", math.Pi / 8, true},
		{"2pi", 2 * math.Pi, true},
		{"3*pi/4", 3 * math.Pi / 4, true},
		{"2*pi/3", 2 * math.Pi / 3, true},

		// Negative
		{"-pi", -math.Pi, true},
		{"-3*pi/4", -3 * math.Pi / 4, true},

		// Whitespace
		{" pi / 2 ", math.Pi / 2, true},
		{" 3 * pi / 4 ", 3 * math.Pi / 4, true},

		// Invalid
		{"", 0, false},
		{"abc", 0, false},
		{"pi/0", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseAngle(tt.input)
		if !tt.ok {
			assert.Error(t, err, "ParseAngle(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "ParseAngle(%q)", tt.input)
		assert.InDelta(t, tt.want, got, 1e-10, "ParseAngle(%q)", tt.input)
	}
}

func TestFormatAngle(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{math.Pi, "pi"},
		{math.Pi / 2, "pi/2"},
		{math.Pi / 3, "pi/3"},
		{3 * math.Pi / 4, "3*pi/4"},
		{-math.Pi / 2, "-pi/2"},
		{2 * math.Pi, "2*pi"},
		{math.Pi / 16, "pi/16"},
		{1.5, "1.5"},
		{0, "0"},
		{0.01, "0.01"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAngle(tt.input), "FormatAngle(%g)", tt.input)
	}
}

func TestParamResolve(t *testing.T) {
	table := NewTable()
	table.Set("theta", math.Pi/8)

	v, err := Named("theta").Scaled(2).Resolve(table)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, v, 1e-15)

	v, err = Angle(0.25).Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	_, err = Named("phi").Resolve(table)
	var unbound *UnboundParameterError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "phi", unbound.Name)

	assert.Equal(t, "ns.theta", Named("theta").Prefixed("ns.").Name)
	assert.Equal(t, "", Angle(1).Prefixed("ns.").Name)
}

func TestParamString(t *testing.T) {
	assert.Equal(t, "theta", Named("theta").String())
	assert.Equal(t, "-theta", Named("theta").Scaled(-1).String())
	assert.Equal(t, "0.5*theta", Named("theta").Scaled(0.5).String())
	assert.Equal(t, "pi/4", Angle(math.Pi/4).String())
}
