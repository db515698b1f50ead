// Package property models the assessor dataset and resolves typed
// addresses to records.
package property

import "github.com/yourorg/homely-api/internal/geo"

// Property is one assessed parcel. Field keys mirror the dataset exactly,
// including the spreadsheet-style names the valuation model was trained on.
// Numeric attributes are pointers because the dataset leaves some blank.
type Property struct {
	Address        string   `json:"address"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	TotalValue     float64  `json:"total_value"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`

	Bedrooms      *float64 `json:"bedrooms"`
	Bathrooms     *float64 `json:"bathrooms"`
	YearBuilt     *float64 `json:"year"`
	SquareFootage *float64 `json:"square_footage"`
	Units         *float64 `json:"units"`

	TaxRateArea   Code     `json:"City Tax Rate Area"`
	RollYear      Code     `json:"Roll Year"`
	UseType       Code     `json:"Property Use Type"`
	BuildingCount *float64 `json:"Number of Buildings"`
	EffectiveYear Code     `json:"Effective Year"`
	ZipCode       Code     `json:"Zip Code.1"`

	NearbyArtsAndRec       *float64 `json:"num_nearby_arts_and_rec"`
	NearbyFireStations     *float64 `json:"num_nearby_fire_stations"`
	NearbyHospitals        *float64 `json:"num_nearby_hospitals"`
	NearbyPhysicalFeatures *float64 `json:"num_nearby_physical_features"`
	NearbyTransportation   *float64 `json:"num_nearby_transportation"`
	NearbySchools          *float64 `json:"num_nearby_schools"`
}

func (p Property) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: p.Latitude, Lon: p.Longitude}
}

// Float returns a pointer to v, for building records in code and tests.
func Float(v float64) *float64 { return &v }
