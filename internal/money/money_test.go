package money_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/receivables/internal/money"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1,234.56", want: 123456},
		{in: "1.234,56", want: 123456},
		{in: "2,500,000", want: 250000000},
		{in: "2.500.000", want: 250000000},
		{in: "1,234", want: 123400},
		{in: "12,50", want: 1250},
		{in: "35000", want: 3500000},
		{in: "35000.5", want: 3500050},
		{in: "₱ 1,500.00", want: 150000},
		{in: "PHP 900", want: 90000},
		{in: "-588,74", want: -58874},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "92233720368547758.07", want: math.MaxInt64},
		{in: "92233720368547758.08", wantErr: true},
		{in: "100000000000000000000", wantErr: true},
		{in: "-92233720368547758.09", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := money.Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, money.ErrInvalidAmount)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	tests := map[int64]string{
		0:         "₱0.00",
		5:         "₱0.05",
		123456:    "₱1,234.56",
		3500000:   "₱35,000.00",
		250000000: "₱2,500,000.00",
		-58874:    "-₱588.74",
		100000000: "₱1,000,000.00",
		99999:     "₱999.99",
	}

	for in, want := range tests {
		assert.Equal(t, want, money.Format(in), in)
	}
}
