package sequence

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/aristath/latticefold/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Accepts(t *testing.T) {
	v := NewValidator(0)

	seq, err := v.Validate("  gy ")
	require.NoError(t, err)
	assert.Equal(t, Sequence("GY"), seq)
	assert.Equal(t, 2, seq.Len())
}

func TestValidate_Rejections(t *testing.T) {
	v := NewValidator(DefaultMaxSimulated)

	tests := []struct {
		name  string
		input string
		kind  domain.Kind
	}{
		{"empty", "", domain.KindInvalidInput},
		{"whitespace only", "   ", domain.KindInvalidInput},
		{"bad residue", "ACBX", domain.KindInvalidInput},
		{"digits", "AC1", domain.KindInvalidInput},
		{"length 21", strings.Repeat("A", 21), domain.KindInvalidInput},
		{"length 11", strings.Repeat("A", 11), domain.KindResourceInfeasible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestValidate_InvalidResidueBeforeLength(t *testing.T) {
	v := NewValidator(0)
	_, err := v.Validate(strings.Repeat("A", 25) + "Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amino acid")
}

func TestValidate_ResourceEstimateIsComputed(t *testing.T) {
	v := NewValidator(10)
	_, err := v.Validate("ACDEFGHIKLM")
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrResourceInfeasible))

	gb, ok := domain.MemoryEstimateOf(err)
	require.True(t, ok)
	assert.InDelta(t, math.Pow(2, 20)*16/math.Pow(2, 30), gb, 1e-15)
	assert.InDelta(t, 0.015625, gb, 1e-12)
}

func TestNewValidator_Limits(t *testing.T) {
	assert.Equal(t, DefaultMaxSimulated, NewValidator(-1).MaxSimulated())
	assert.Equal(t, MaxLength, NewValidator(99).MaxSimulated())

	_, err := NewValidator(20).Validate(strings.Repeat("G", 20))
	assert.NoError(t, err)
}

func TestQubitCount(t *testing.T) {
	assert.Equal(t, 0, QubitCount(1))
	for l := 2; l <= MaxLength; l++ {
		q := QubitCount(l)
		assert.Equal(t, (l-1)*2, q)
		assert.Zero(t, q%2)
	}
}

func TestTables(t *testing.T) {
	assert.Equal(t, 1.8, Hydrophobicity('I'))
	assert.Equal(t, 0.0, Hydrophobicity('X'))
	assert.Equal(t, "TYR", ThreeLetter('Y'))
	assert.Equal(t, "UNK", ThreeLetter('B'))
	for i := 0; i < len(Alphabet); i++ {
		assert.True(t, IsResidue(Alphabet[i]))
		assert.NotEqual(t, "UNK", ThreeLetter(Alphabet[i]))
	}
}
