package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse("1250.50")
	require.NoError(t, err)
	require.Equal(t, Cents(125050), c)

	c, err = Parse("0.01")
	require.NoError(t, err)
	require.Equal(t, Cents(1), c)

	c, err = Parse("100")
	require.NoError(t, err)
	require.Equal(t, Cents(10000), c)
}

func TestParseRejectsSubCent(t *testing.T) {
	_, err := Parse("10.005")
	require.ErrorIs(t, err, ErrPrecision)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("ten rupees")
	require.Error(t, err)
}

func TestFromDecimal(t *testing.T) {
	c, err := FromDecimal(decimal.NewFromFloat(99.99))
	require.NoError(t, err)
	require.Equal(t, Cents(9999), c)
}

func TestString(t *testing.T) {
	require.Equal(t, "1250.50", Cents(125050).String())
	require.Equal(t, "0.05", Cents(5).String())
	require.Equal(t, "-3.20", Cents(-320).String())
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Cents(125050))
	require.NoError(t, err)
	require.Equal(t, `"1250.50"`, string(data))

	var c Cents
	require.NoError(t, json.Unmarshal([]byte(`"1250.50"`), &c))
	require.Equal(t, Cents(125050), c)

	// plain JSON numbers are accepted too
	require.NoError(t, json.Unmarshal([]byte(`99.95`), &c))
	require.Equal(t, Cents(9995), c)
}

func TestUnmarshalRejectsSubCent(t *testing.T) {
	var c Cents
	require.Error(t, json.Unmarshal([]byte(`10.005`), &c))
}

func TestDisplay(t *testing.T) {
	require.Equal(t, "12,500.50", Cents(1250050).Display())
	require.Equal(t, "0.05", Cents(5).Display())
}
