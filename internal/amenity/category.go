package amenity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Category int

const (
	Hospitals Category = iota
	FireStations
	Schools
	Recreation
	Transportation
	PhysicalFeatures
)

// Categories lists every category in display order.
var Categories = []Category{Hospitals, FireStations, Schools, Recreation, Transportation, PhysicalFeatures}

var categoryKeys = map[Category]string{
	Hospitals:        "hospitals",
	FireStations:     "fire_stations",
	Schools:          "schools",
	Recreation:       "arts_and_rec",
	Transportation:   "transportation",
	PhysicalFeatures: "physical_features",
}

var categoryLabels = map[Category]string{
	Hospitals:        "Hospitals",
	FireStations:     "Fire Stations",
	Schools:          "Schools",
	Recreation:       "Recreation",
	Transportation:   "Transportation",
	PhysicalFeatures: "Physical Features",
}

// Key is the stable identifier used in dataset names and URLs.
func (c Category) Key() string { return categoryKeys[c] }

func (c Category) Label() string { return categoryLabels[c] }

func (c Category) String() string { return c.Label() }

func (c Category) Valid() bool {
	_, ok := categoryKeys[c]
	return ok
}

// ParseCategory accepts either the key ("fire_stations") or the label
// ("Fire Stations"), case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, c.Key()) || strings.EqualFold(s, c.Label()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown amenity category %q", s)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.Key()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Source is the fixed configuration of one category: where its dataset
// lives and which marker icon the map draws for it.
type Source struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Location string   `json:"-"`
	IconURL  string   `json:"icon_url"`
}

var defaultIcons = map[Category]string{
	Hospitals:        "images/hospitals.png",
	FireStations:     "images/firestations.png",
	Schools:          "images/schools.png",
	Recreation:       "images/art.png",
	Transportation:   "images/bus.png",
	PhysicalFeatures: "images/park.png",
}

// DefaultSources returns one source per category with datasets under dataDir.
func DefaultSources(dataDir string) []Source {
	if dataDir == "" {
		dataDir = "data"
	}
	out := make([]Source, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, Source{
			Category: c,
			Label:    c.Label(),
			Location: filepath.Join(dataDir, c.Key()+".json"),
			IconURL:  defaultIcons[c],
		})
	}
	return out
}

// LoadSources reads location and icon overrides from a YAML file of the form
//
//	sources:
//	  - category: hospitals
//	    location: https://example.org/hospitals.json
//	    icon_url: /static/h.png
//
// Categories missing from the file keep their defaults.
func LoadSources(path, dataDir string) ([]Source, error) {
	sources := DefaultSources(dataDir)
	if path == "" {
		return sources, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read amenity sources: %w", err)
	}
	var doc struct {
		Sources []struct {
			Category string `yaml:"category"`
			Location string `yaml:"location"`
			IconURL  string `yaml:"icon_url"`
		} `yaml:"sources"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse amenity sources: %w", err)
	}
	for _, o := range doc.Sources {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s := &sources[c]
		if o.Location != "" {
			s.Location = o.Location
		}
		if o.IconURL != "" {
			s.IconURL = o.IconURL
		}
	}
	return sources, nil
}
