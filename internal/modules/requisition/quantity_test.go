package requisition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"6 pieces", 6},
		{"100 kg", 100},
		{"42", 42},
		{"  15 boxes ", 15},
		{"2.5 tonnes", 2},
		{"7.", 7},
		{"10x20 sheets", 10},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuantityRejectsNonNumeric(t *testing.T) {
	for _, in := range []string{"", "a few", "pieces 6", ".5 kg", "-3 units",
		"9999999999999999999999999 pieces"} {
		t.Run(in, func(t *testing.T) {
			_, err := parseQuantity(in)
			assert.Error(t, err)
		})
	}
}
