// Package amenity indexes the civic amenity datasets and answers
// "what is near this point" per category.
package amenity

import (
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/yourorg/homely-api/internal/geo"
)

// DefaultRadiusMiles is the fixed proximity radius for nearby amenities.
const DefaultRadiusMiles = 20.0

type Amenity struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"latitude"`
	Lon  float64 `json:"longitude"`
}

func (a Amenity) Coordinate() geo.Coordinate { return geo.Coordinate{Lat: a.Lat, Lon: a.Lon} }

// DisplayName is what marker popups show; unnamed amenities read "N/A".
func (a Amenity) DisplayName() string {
	if a.Name == "" {
		return "N/A"
	}
	return a.Name
}

// Group is one marker layer: the amenities of a category near a point.
type Group struct {
	Category  Category  `json:"category"`
	Label     string    `json:"label"`
	IconURL   string    `json:"icon_url"`
	Amenities []Amenity `json:"amenities"`
}

// Index holds the loaded amenity lists by category. Each category is
// installed once by Set; readers see either nothing or the full list.
type Index struct {
	mu      sync.RWMutex
	sources map[Category]Source
	data    map[Category][]Amenity
	trees   map[Category]*rtreego.Rtree
}

// spot is an amenity's position in the load order, as stored in the tree.
type spot struct {
	pos  int
	rect rtreego.Rect
}

func (s spot) Bounds() rtreego.Rect { return s.rect }

func NewIndex(sources []Source) *Index {
	ix := &Index{
		sources: make(map[Category]Source, len(sources)),
		data:    make(map[Category][]Amenity, len(Categories)),
		trees:   make(map[Category]*rtreego.Rtree, len(Categories)),
	}
	for _, s := range sources {
		ix.sources[s.Category] = s
	}
	return ix
}

func (ix *Index) Set(c Category, amenities []Amenity) {
	cp := append([]Amenity(nil), amenities...)
	objs := make([]rtreego.Spatial, 0, len(cp))
	for i, a := range cp {
		objs = append(objs, spot{pos: i, rect: rtreego.Point{a.Lat, a.Lon}.ToRect(1e-9)})
	}
	tree := rtreego.NewTree(2, 25, 50, objs...)

	ix.mu.Lock()
	ix.data[c] = cp
	ix.trees[c] = tree
	ix.mu.Unlock()
}

func (ix *Index) Loaded(c Category) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.data[c]
	return ok
}

// Complete reports whether every category has been installed.
func (ix *Index) Complete() bool {
	for _, c := range Categories {
		if !ix.Loaded(c) {
			return false
		}
	}
	return true
}

func (ix *Index) Len(c Category) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.data[c])
}

// Nearby returns, in load order, every amenity of the category whose
// distance to center is at most radiusMiles. A category that has not been
// loaded yields nothing.
func (ix *Index) Nearby(c Category, center geo.Coordinate, radiusMiles float64) []Amenity {
	ix.mu.RLock()
	list := ix.data[c]
	tree := ix.trees[c]
	ix.mu.RUnlock()

	out := make([]Amenity, 0)
	for _, i := range candidates(list, tree, center, radiusMiles) {
		if center.DistanceTo(list[i].Coordinate()) <= radiusMiles {
			out = append(out, list[i])
		}
	}
	return out
}

// candidates returns, in ascending order, the positions worth an exact
// distance check: those inside the lat/lon box around the search circle.
// Boxes touching a pole or the antimeridian fall back to every position.
func candidates(list []Amenity, tree *rtreego.Rtree, center geo.Coordinate, radiusMiles float64) []int {
	all := func() []int {
		out := make([]int, len(list))
		for i := range out {
			out[i] = i
		}
		return out
	}
	box, ok := boundingBox(center, radiusMiles)
	if tree == nil || !ok {
		return all()
	}
	hits := tree.SearchIntersect(box)
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(spot).pos)
	}
	sort.Ints(out)
	return out
}

// boundingBox brackets every point within radiusMiles of center, padded
// slightly so points on the circle stay inside.
func boundingBox(center geo.Coordinate, radiusMiles float64) (rtreego.Rect, bool) {
	if !center.Valid() || radiusMiles < 0 || math.IsNaN(radiusMiles) {
		return rtreego.Rect{}, false
	}
	ang := radiusMiles / geo.EarthRadiusMiles * 1.001
	dLat := ang*180/math.Pi + 1e-9
	minLat, maxLat := center.Lat-dLat, center.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return rtreego.Rect{}, false
	}
	x := math.Sin(ang) / math.Cos(center.Lat*math.Pi/180)
	if x >= 1 {
		return rtreego.Rect{}, false
	}
	dLon := math.Asin(x)*180/math.Pi + 1e-9
	minLon, maxLon := center.Lon-dLon, center.Lon+dLon
	if minLon <= -180 || maxLon >= 180 {
		return rtreego.Rect{}, false
	}
	box, err := rtreego.NewRectFromPoints(rtreego.Point{minLat, minLon}, rtreego.Point{maxLat, maxLon})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return box, true
}

// NearbyAll builds one group per category, in category order.
func (ix *Index) NearbyAll(center geo.Coordinate, radiusMiles float64) []Group {
	groups := make([]Group, 0, len(Categories))
	for _, c := range Categories {
		src, ok := ix.sources[c]
		if !ok {
			src = Source{Category: c, Label: c.Label()}
		}
		groups = append(groups, Group{
			Category:  c,
			Label:     src.Label,
			IconURL:   src.IconURL,
			Amenities: ix.Nearby(c, center, radiusMiles),
		})
	}
	return groups
}

// Sources returns the category configuration in category order.
func (ix *Index) Sources() []Source {
	out := make([]Source, 0, len(Categories))
	for _, c := range Categories {
		if s, ok := ix.sources[c]; ok {
			out = append(out, s)
		}
	}
	return out
}
