package pricing

import (
	"testing"

	"mercaplaza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"exact cents", 12.34, 12.34},
		{"half rounds up", 12.345, 12.35},
		{"below half rounds down", 12.344, 12.34},
		{"whole number", 100, 100},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Round2(tt.input), 0.0001)
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		price        float64
		category     string
		expectedBase float64
		expectedVAT  float64
	}{
		{"general 19 percent", 119.0, models.VATCategoryGeneral, 100.0, 19.0},
		{"reduced 5 percent", 105.0, models.VATCategoryReduced, 100.0, 5.0},
		{"exempt keeps full price", 59.99, models.VATCategoryExempt, 59.99, 0},
		{"excluded keeps full price", 42.50, models.VATCategoryExcluded, 42.50, 0},
		{"general with rounding", 99.99, models.VATCategoryGeneral, 84.03, 15.96},
		{"large general price", 100000.0, models.VATCategoryGeneral, 84033.61, 15966.39},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, vat, err := Split(tt.price, tt.category)
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedBase, base, 0.001)
			assert.InDelta(t, tt.expectedVAT, vat, 0.001)
		})
	}
}

// Splitting any price must reassemble to the original within one cent.
func TestSplitRoundTrip(t *testing.T) {
	prices := []float64{0.01, 0.99, 1.00, 2.37, 19.99, 2549.99, 84033.61, 100000.00, 999999.99}
	categories := []string{
		models.VATCategoryExcluded,
		models.VATCategoryExempt,
		models.VATCategoryReduced,
		models.VATCategoryGeneral,
	}

	for _, category := range categories {
		for _, price := range prices {
			base, vat, err := Split(price, category)
			require.NoError(t, err)
			assert.InDelta(t, price, base+vat, 0.011,
				"category %s price %.2f: base %.2f + vat %.2f", category, price, base, vat)
		}
	}
}

func TestSplitRejectsBadInput(t *testing.T) {
	_, _, err := Split(0, models.VATCategoryGeneral)
	assert.Error(t, err)

	_, _, err = Split(-10, models.VATCategoryGeneral)
	assert.Error(t, err)

	_, _, err = Split(100, "luxury")
	assert.Error(t, err)
}

func TestRateFor(t *testing.T) {
	rate, err := RateFor(models.VATCategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, 19.0, rate)

	rate, err = RateFor(models.VATCategoryReduced)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rate)

	_, err = RateFor("unknown")
	assert.Error(t, err)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(models.VATCategoryExempt))
	assert.True(t, ValidCategory(models.VATCategoryGeneral))
	assert.False(t, ValidCategory(""))
	assert.False(t, ValidCategory("standard"))
}

func TestPercentage(t *testing.T) {
	assert.InDelta(t, 2700.0, Percentage(90000, 3), 0.001)
	assert.InDelta(t, 6300.0, Percentage(90000, 7), 0.001)
	assert.InDelta(t, 484.50, Percentage(2549.99, 19), 0.001)
	assert.InDelta(t, 0.0, Percentage(0, 7), 0.001)
	assert.InDelta(t, 0.0, Percentage(90000, 0), 0.001)
}
