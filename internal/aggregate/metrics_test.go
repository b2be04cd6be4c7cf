package aggregate

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeriveMetrics(t *testing.T) {
	t.Parallel()

	m := DeriveMetrics(750)

	if !almostEqual(m.TotalVolumeML, 750) {
		t.Errorf("TotalVolumeML = %v, want 750", m.TotalVolumeML)
	}
	if !almostEqual(m.Liters, 0.75) {
		t.Errorf("Liters = %v, want 0.75", m.Liters)
	}
	if !almostEqual(m.BottlesSaved, 1.5) {
		t.Errorf("BottlesSaved = %v, want 1.5", m.BottlesSaved)
	}
	if !almostEqual(m.PlasticSavedKG, 0.03) {
		t.Errorf("PlasticSavedKG = %v, want 0.03", m.PlasticSavedKG)
	}
	if !almostEqual(m.SocialCostEUR, 0.00066) {
		t.Errorf("SocialCostEUR = %v, want 0.00066", m.SocialCostEUR)
	}
}

func TestDeriveMetricsZero(t *testing.T) {
	t.Parallel()

	m := DeriveMetrics(0)
	if m.Liters != 0 || m.BottlesSaved != 0 || m.PlasticSavedKG != 0 || m.SocialCostEUR != 0 {
		t.Errorf("zero volume should derive all-zero metrics, got %+v", m)
	}
}
