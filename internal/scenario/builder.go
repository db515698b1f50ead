// Package scenario turns a selected property plus user edits into the
// payload the valuation model expects.
package scenario

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yourorg/homely-api/internal/property"
)

// Overrides carries the raw text of the five editable inputs. An empty or
// non-numeric value means "keep the property's own value".
type Overrides struct {
	YearBuilt     Input `json:"year_built"`
	SquareFootage Input `json:"square_footage"`
	Bedrooms      Input `json:"bedrooms"`
	Bathrooms     Input `json:"bathrooms"`
	Units         Input `json:"units"`
}

// Input is the text of one override field. JSON strings and numbers both
// decode to their text; null and any other JSON value decode to "" so a
// malformed field falls back instead of failing the request.
type Input string

func (in *Input) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*in = Input(t)
	case json.Number:
		*in = Input(t.String())
	default:
		*in = ""
	}
	return nil
}

// Request is the valuation payload. Keys are the model's feature names.
type Request struct {
	TaxRateArea   property.Code `json:"City Tax Rate Area"`
	RollYear      property.Code `json:"Roll Year"`
	UseType       property.Code `json:"Property Use Type"`
	BuildingCount *float64      `json:"Number of Buildings"`
	YearBuilt     *float64      `json:"Year Built"`
	EffectiveYear property.Code `json:"Effective Year"`
	SquareFootage *float64      `json:"Square Footage"`
	Bedrooms      *float64      `json:"Number of Bedrooms"`
	Bathrooms     *float64      `json:"Number of Bathrooms"`
	Units         *float64      `json:"Number of Units"`
	ZipCode       property.Code `json:"Zip Code.1"`

	NearbyArtsAndRec       *float64 `json:"num_nearby_arts_and_rec"`
	NearbyFireStations     *float64 `json:"num_nearby_fire_stations"`
	NearbyHospitals        *float64 `json:"num_nearby_hospitals"`
	NearbyPhysicalFeatures *float64 `json:"num_nearby_physical_features"`
	NearbyTransportation   *float64 `json:"num_nearby_transportation"`
	NearbySchools          *float64 `json:"num_nearby_schools"`
}

// Build merges overrides into the selected property. Only year built,
// square footage, bedrooms, bathrooms and units are editable; every other
// field is copied from p unchanged.
func Build(p property.Property, o Overrides) Request {
	return Request{
		TaxRateArea:   p.TaxRateArea,
		RollYear:      p.RollYear,
		UseType:       p.UseType,
		BuildingCount: p.BuildingCount,
		YearBuilt:     pick(o.YearBuilt, p.YearBuilt),
		EffectiveYear: p.EffectiveYear,
		SquareFootage: pick(o.SquareFootage, p.SquareFootage),
		Bedrooms:      pick(o.Bedrooms, p.Bedrooms),
		Bathrooms:     pick(o.Bathrooms, p.Bathrooms),
		Units:         pick(o.Units, p.Units),
		ZipCode:       p.ZipCode,

		NearbyArtsAndRec:       p.NearbyArtsAndRec,
		NearbyFireStations:     p.NearbyFireStations,
		NearbyHospitals:        p.NearbyHospitals,
		NearbyPhysicalFeatures: p.NearbyPhysicalFeatures,
		NearbyTransportation:   p.NearbyTransportation,
		NearbySchools:          p.NearbySchools,
	}
}

// ParseOverride accepts a base-10 integer, surrounding space allowed. A
// decimal such as "3.5" is truncated toward zero to its integer part.
func ParseOverride(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '.'); i > 0 && allDigits(raw[i+1:]) {
		raw = raw[:i]
	}
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pick(raw Input, base *float64) *float64 {
	if v, ok := ParseOverride(string(raw)); ok {
		return &v
	}
	return base
}

// Key is a stable digest of the request, used to cache predictions.
func (r Request) Key() string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
