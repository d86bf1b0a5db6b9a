package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Currency
		wantErr bool
	}{
		{name: "upper case", input: "EUR", want: EUR},
		{name: "lower case with spaces", input: "  usd ", want: USD},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown code", input: "XYZ1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddress_ValueScanRoundTrip(t *testing.T) {
	addr := Address{Line1: " 1 Main St ", City: "Springfield", Country: "us"}.Normalize()

	v, err := addr.Value()
	require.NoError(t, err)

	var scanned Address
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, "1 Main St", scanned.Line1)
	assert.Equal(t, "US", scanned.Country)

	empty, err := Address{}.Value()
	require.NoError(t, err)
	assert.Nil(t, empty)
}
