package normalize_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"marketquotes/internal/normalize"
)

func TestAsFiniteNumber(t *testing.T) {
	t.Parallel()

	require.Equal(t, null.FloatFrom(1.5), normalize.AsFiniteNumber(1.5))
	require.Equal(t, null.FloatFrom(3), normalize.AsFiniteNumber(3))
	require.False(t, normalize.AsFiniteNumber("1.5").Valid)
	require.False(t, normalize.AsFiniteNumber(math.NaN()).Valid)
	require.False(t, normalize.AsFiniteNumber(math.Inf(1)).Valid)
	require.False(t, normalize.AsFiniteNumber(nil).Valid)
}

func TestToNumber(t *testing.T) {
	t.Parallel()

	require.Equal(t, null.FloatFrom(12.25), normalize.ToNumber(" 12.25 "))
	require.Equal(t, null.FloatFrom(7), normalize.ToNumber(json.Number("7")))
	require.Equal(t, null.FloatFrom(0.42), normalize.ToNumber(map[string]any{"raw": 0.42, "fmt": "0.42"}))
	require.False(t, normalize.ToNumber("").Valid)
	require.False(t, normalize.ToNumber("abc").Valid)
	require.False(t, normalize.ToNumber("Infinity").Valid)
	require.False(t, normalize.ToNumber(map[string]any{}).Valid)
}

func TestStringAndName(t *testing.T) {
	t.Parallel()

	require.Equal(t, null.StringFrom("Apple Inc."), normalize.String("  Apple Inc. "))
	require.False(t, normalize.String("   ").Valid)
	require.False(t, normalize.String(42).Valid)

	require.False(t, normalize.Name("aapl", "AAPL").Valid)
	require.Equal(t, null.StringFrom("Apple Inc."), normalize.Name("Apple Inc.", "AAPL"))
}

func TestUniqueSymbols(t *testing.T) {
	t.Parallel()

	got := normalize.UniqueSymbols([]string{" aapl", "MSFT", "AAPL", "", "  ", "msft", "brk-b"})
	require.Equal(t, []string{"AAPL", "MSFT", "BRK-B"}, got)
}

func TestPE(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price null.Float
		eps   null.Float
		want  null.Float
	}{
		{"derives ratio", null.FloatFrom(150), null.FloatFrom(10), null.FloatFrom(15)},
		{"zero eps", null.FloatFrom(150), null.FloatFrom(0), null.Float{}},
		{"negative eps", null.FloatFrom(150), null.FloatFrom(-2), null.Float{}},
		{"missing price", null.Float{}, null.FloatFrom(10), null.Float{}},
		{"nan price", null.FloatFrom(math.NaN()), null.FloatFrom(10), null.Float{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, normalize.PE(tt.price, tt.eps))
		})
	}
}

func TestPreferPE(t *testing.T) {
	t.Parallel()

	// Assert: a reported positive ratio wins over derivation
	require.Equal(t, null.FloatFrom(20), normalize.PreferPE(null.FloatFrom(20), null.FloatFrom(150), null.FloatFrom(10)))

	// Assert: a non-positive reported ratio falls back to price / eps
	require.Equal(t, null.FloatFrom(15), normalize.PreferPE(null.FloatFrom(-3), null.FloatFrom(150), null.FloatFrom(10)))

	// Assert: nothing usable leaves it null
	require.False(t, normalize.PreferPE(null.Float{}, null.FloatFrom(150), null.FloatFrom(0)).Valid)
}
