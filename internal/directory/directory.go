// Package directory resolves free-text locations and complaint descriptions
// to police stations and platform grievance channels.
package directory

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed directory.yaml
var defaultTables []byte

// ErrEmptyTables is returned when a tables file defines no fallback entries.
var ErrEmptyTables = errors.New("directory: fallback entries required")

// Station is a police station a citizen can call.
type Station struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

type stationEntry struct {
	Keyword string `yaml:"keyword"`
	Station `yaml:",inline"`
}

type grievanceEntry struct {
	Keywords []string `yaml:"keywords"`
	Text     string   `yaml:"text"`
}

// Tables is the on-disk shape of the routing tables.
type Tables struct {
	Stations          []stationEntry   `yaml:"stations"`
	StationFallback   Station          `yaml:"station_fallback"`
	Grievances        []grievanceEntry `yaml:"grievances"`
	GrievanceFallback string           `yaml:"grievance_fallback"`
}

// Parse decodes YAML tables and normalizes keywords to lower case.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("directory: decode tables: %w", err)
	}
	if t.StationFallback.Name == "" || strings.TrimSpace(t.GrievanceFallback) == "" {
		return nil, ErrEmptyTables
	}
	for i := range t.Stations {
		t.Stations[i].Keyword = strings.ToLower(strings.TrimSpace(t.Stations[i].Keyword))
	}
	for i := range t.Grievances {
		for j, kw := range t.Grievances[i].Keywords {
			t.Grievances[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &t, nil
}

// Default returns the tables compiled into the binary.
func Default() *Tables {
	t, err := Parse(defaultTables)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads tables from path, or returns the defaults when path is empty.
func Load(path string) (*Tables, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	return Parse(data)
}

// StationDirectory maps location hints to the nearest police station.
type StationDirectory struct {
	entries  []stationEntry
	fallback Station
}

// NewStationDirectory builds a resolver from t, using the defaults when t is nil.
func NewStationDirectory(t *Tables) *StationDirectory {
	if t == nil {
		t = Default()
	}
	return &StationDirectory{entries: t.Stations, fallback: t.StationFallback}
}

// Resolve returns the first station whose keyword occurs in hint.
func (d *StationDirectory) Resolve(hint string) Station {
	key := strings.ToLower(strings.TrimSpace(hint))
	for _, e := range d.entries {
		if e.Keyword != "" && strings.Contains(key, e.Keyword) {
			return e.Station
		}
	}
	return d.fallback
}

// GrievanceDirectory maps complaint text to a platform grievance advisory.
type GrievanceDirectory struct {
	entries  []grievanceEntry
	fallback string
}

// NewGrievanceDirectory builds a resolver from t, using the defaults when t is nil.
func NewGrievanceDirectory(t *Tables) *GrievanceDirectory {
	if t == nil {
		t = Default()
	}
	return &GrievanceDirectory{entries: t.Grievances, fallback: t.GrievanceFallback}
}

// Resolve returns the advisory of the first entry with a keyword in hint.
func (d *GrievanceDirectory) Resolve(hint string) string {
	text := strings.ToLower(hint)
	for _, e := range d.entries {
		for _, kw := range e.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return e.Text
			}
		}
	}
	return d.fallback
}
