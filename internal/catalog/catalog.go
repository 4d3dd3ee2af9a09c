// Package catalog exposes the static reference data used by forms and filters.
package catalog

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"huellas/internal/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

// BBox is a bounding box as [min_lng, min_lat, max_lng, max_lat].
type BBox [4]float64

// Valid reports whether the box has positive extent and sane coordinates.
func (b BBox) Valid() bool {
	return b[0] < b[2] && b[1] < b[3] &&
		b[0] >= -180 && b[2] <= 180 && b[1] >= -90 && b[3] <= 90
}

// String renders the box the way geocoding providers expect it.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b[0], b[1], b[2], b[3])
}

// Province is a first-level subdivision of a country.
type Province struct {
	Name string `yaml:"name" json:"name"`
	BBox *BBox  `yaml:"bbox" json:"bbox,omitempty"`
}

// Country is a supported country with its provinces.
type Country struct {
	Name      string     `yaml:"name" json:"name"`
	BBox      *BBox      `yaml:"bbox" json:"bbox,omitempty"`
	Provinces []Province `yaml:"provinces" json:"provinces"`
}

// Option is a value with its display label.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is the parsed reference data.
type Catalog struct {
	Breeds        map[models.Species][]string `json:"breeds"`
	Colors        []string                    `json:"colors"`
	Categories    []Option                    `json:"categories"`
	ReportReasons []Option                    `json:"report_reasons"`
	Countries     []Country                   `json:"countries"`
}

type labelsFile struct {
	Categories    []Option `yaml:"categories"`
	ReportReasons []Option `yaml:"report_reasons"`
}

type regionsFile struct {
	Countries []Country `yaml:"countries"`
}

// Load parses the embedded YAML files and checks them against the domain enums.
func Load() (*Catalog, error) {
	c := &Catalog{}

	var breeds map[string][]string
	if err := decode("data/breeds.yaml", &breeds); err != nil {
		return nil, err
	}
	c.Breeds = make(map[models.Species][]string, len(breeds))
	for name, list := range breeds {
		sp, err := models.ParseSpecies(name)
		if err != nil || sp == "" {
			return nil, fmt.Errorf("catalog: breeds.yaml: unknown species %q", name)
		}
		c.Breeds[sp] = list
	}

	if err := decode("data/colors.yaml", &c.Colors); err != nil {
		return nil, err
	}

	var labels labelsFile
	if err := decode("data/labels.yaml", &labels); err != nil {
		return nil, err
	}
	for _, o := range labels.Categories {
		if _, err := models.ParseCategory(o.Value); err != nil {
			return nil, fmt.Errorf("catalog: labels.yaml: %w", err)
		}
	}
	for _, o := range labels.ReportReasons {
		if _, err := models.ParseReportReason(o.Value); err != nil {
			return nil, fmt.Errorf("catalog: labels.yaml: %w", err)
		}
	}
	c.Categories = labels.Categories
	c.ReportReasons = labels.ReportReasons

	var regions regionsFile
	if err := decode("data/regions.yaml", &regions); err != nil {
		return nil, err
	}
	for _, country := range regions.Countries {
		if country.BBox != nil && !country.BBox.Valid() {
			return nil, fmt.Errorf("catalog: regions.yaml: bad bbox for %s", country.Name)
		}
		for _, p := range country.Provinces {
			if p.BBox != nil && !p.BBox.Valid() {
				return nil, fmt.Errorf("catalog: regions.yaml: bad bbox for %s/%s", country.Name, p.Name)
			}
		}
	}
	c.Countries = regions.Countries

	return c, nil
}

func decode(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", name, err)
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded data is broken,
// which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

// BreedsFor returns the breeds for a species, or nil for an unknown one.
func (c *Catalog) BreedsFor(sp models.Species) []string {
	return c.Breeds[sp]
}

// Country looks a country up by name, ignoring case.
func (c *Catalog) Country(name string) (Country, bool) {
	name = strings.TrimSpace(name)
	for _, country := range c.Countries {
		if strings.EqualFold(country.Name, name) {
			return country, true
		}
	}
	return Country{}, false
}

// HasProvince reports whether province belongs to country.
func (c *Catalog) HasProvince(country, province string) bool {
	ct, ok := c.Country(country)
	if !ok {
		return false
	}
	_, ok = ct.province(province)
	return ok
}

func (ct Country) province(name string) (Province, bool) {
	name = strings.TrimSpace(name)
	for _, p := range ct.Provinces {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Province{}, false
}

// Bounds returns the most specific known bounding box for a region. An empty
// province asks for the country box.
func (c *Catalog) Bounds(country, province string) (BBox, bool) {
	ct, ok := c.Country(country)
	if !ok {
		return BBox{}, false
	}
	if strings.TrimSpace(province) == "" {
		if ct.BBox == nil {
			return BBox{}, false
		}
		return *ct.BBox, true
	}
	p, ok := ct.province(province)
	if !ok || p.BBox == nil {
		return BBox{}, false
	}
	return *p.BBox, true
}
