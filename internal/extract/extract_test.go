package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solverOutput = `
 SIMULATION TIME : 0.0
 L_2       :    1.0000000000E-01   2.0000000000E-01
 L_inf     :    3.0000000000E-01   4.0000000000E-01
 ...
 L_2       :    1.2345678900E-04   2.5000000000E-05
 L_inf     :    3.5000000000E-04   4.0000000000D-05
 CALCULATION TIME PER TSTEP/DOF: [ 1.50000E-06 sec ]
 FLUXO FINISHED!
`

func TestLastLineTakesLastOccurrence(t *testing.T) {
	values, err := LastLine{Name: "L2", Prefix: " L_2"}.Extract(solverOutput)
	require.NoError(t, err)

	assert.Equal(t, []Value{
		{Name: "L2(1)", Value: 1.23456789e-04},
		{Name: "L2(2)", Value: 2.5e-05},
	}, values)
}

func TestLastLineFortranExponent(t *testing.T) {
	values, err := LastLine{Name: "Linf", Prefix: " L_inf"}.Extract(solverOutput)
	require.NoError(t, err)

	assert.Equal(t, []float64{3.5e-04, 4.0e-05}, Floats(values))
}

func TestLastLineNotFound(t *testing.T) {
	_, err := LastLine{Name: "L2", Prefix: " L_2"}.Extract("nothing to see\n")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLastLineGarbage(t *testing.T) {
	_, err := LastLine{Name: "L2", Prefix: " L_2"}.Extract(" L_2 : 1.0E-03 NaNx\n")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLastLineEmptyValues(t *testing.T) {
	_, err := LastLine{Name: "L2", Prefix: " L_2"}.Extract(" L_2 :   \n")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBracketed(t *testing.T) {
	values, err := DefaultSet().Cost.Extract(solverOutput)
	require.NoError(t, err)

	assert.Equal(t, []Value{{Name: "CostPerDOF", Value: 1.5e-06}}, values)
}

func TestBracketedMissingUnit(t *testing.T) {
	_, err := DefaultSet().Cost.Extract(" CALCULATION TIME PER TSTEP/DOF: [ 1.0E-06 ]\n")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.5E-03", 1.5e-03},
		{"1.5D-03", 1.5e-03},
		{"1.5d+02", 150},
		{" 42 ", 42},
	}
	for _, tt := range tests {
		got, err := ParseFloat(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-15, tt.in)
	}

	_, err := ParseFloat("abc")
	require.Error(t, err)
}

func TestSetApply(t *testing.T) {
	m, err := DefaultSet().Apply(solverOutput)
	require.NoError(t, err)

	assert.Equal(t, 2, m.NVar())
	assert.Equal(t, []float64{1.23456789e-04, 2.5e-05}, m.L2)
	assert.Equal(t, []float64{3.5e-04, 4.0e-05}, m.Linf)
	assert.Equal(t, 1.5e-06, m.CostPerDOF)
}

func TestSetApplyShapeMismatch(t *testing.T) {
	out := " L_2 : 1.0 2.0\n L_inf : 1.0\n CALCULATION TIME PER TSTEP/DOF: [ 1.0 sec ]\n"

	_, err := DefaultSet().Apply(out)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSetApplyMissingCost(t *testing.T) {
	out := " L_2 : 1.0\n L_inf : 1.0\n"

	_, err := DefaultSet().Apply(out)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "CostPerDOF")
}

func TestSetApplyMalformedCost(t *testing.T) {
	out := " L_2 : 1.0\n L_inf : 1.0\n CALCULATION TIME PER TSTEP/DOF: [ fast sec ]\n"

	_, err := DefaultSet().Apply(out)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "CostPerDOF: "), err.Error())
}

func TestFuncAdapter(t *testing.T) {
	set := DefaultSet()
	set.Cost = Func(func(string) ([]Value, error) {
		return []Value{{Name: "CostPerDOF", Value: 7}}, nil
	})

	m, err := set.Apply(" L_2 : 1.0\n L_inf : 2.0\n")
	require.NoError(t, err)
	assert.Equal(t, 7.0, m.CostPerDOF)
}
