package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1.234,56", 123456},
		{"-588,74", -58874},
		{"10,00", 1000},
		{"1,234.56", 123456},
		{"-1234.56", -123456},
		{"1234", 123400},
		{"1,234", 123400},
		{"0,5", 50},
		{"€ 12,50", 1250},
		{"(45.00)", -4500},
		{"0,00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmountCents(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmountCents_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "--5"} {
		_, err := parseAmountCents(in)
		assert.Error(t, err, "input %q", in)
	}
}
