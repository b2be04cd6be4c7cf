package aggregate

// Fixed conversion factors behind the sustainability KPIs: two 500 ml
// bottles per liter, 20 g of plastic per bottle, €0.022 social carbon cost
// per kg of plastic. These are part of the platform's published methodology
// and are not configurable.
const (
	bottlesPerLiter    = 2.0
	plasticKgPerBottle = 0.02
	eurPerPlasticKg    = 0.022
)

// Metrics are the sustainability figures derived from a dispensed volume.
// They are pure functions of the grand total and are recomputed on every
// aggregation, never stored.
type Metrics struct {
	TotalVolumeML  float64 `json:"total_volume_ml"`
	Liters         float64 `json:"liters"`
	BottlesSaved   float64 `json:"bottles_saved"`
	PlasticSavedKG float64 `json:"plastic_saved_kg"`
	SocialCostEUR  float64 `json:"social_cost_eur"`
}

// DeriveMetrics computes the KPI set for a total volume in milliliters.
func DeriveMetrics(totalML float64) Metrics {
	liters := totalML / 1000
	bottles := liters * bottlesPerLiter
	plastic := bottles * plasticKgPerBottle
	return Metrics{
		TotalVolumeML:  totalML,
		Liters:         liters,
		BottlesSaved:   bottles,
		PlasticSavedKG: plastic,
		SocialCostEUR:  plastic * eurPerPlasticKg,
	}
}
