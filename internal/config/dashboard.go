package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dashboard holds presentation settings read from DASHBOARD_CONFIG.
// Values are validated against the pipeline's keys by the events service.
type Dashboard struct {
	Title            string   `yaml:"title"`
	DefaultSort      string   `yaml:"default_sort"`
	DefaultOrder     string   `yaml:"default_order"`
	DateWindowMonths int      `yaml:"date_window_months"`
	Charts           []string `yaml:"charts"`
}

func DefaultDashboard() Dashboard {
	return Dashboard{
		Title:            "Seattle Events",
		DefaultSort:      "date",
		DefaultOrder:     "asc",
		DateWindowMonths: 6,
		Charts:           []string{"category", "month", "weekday", "location"},
	}
}

// LoadDashboard reads a YAML file and fills unset fields from DefaultDashboard.
func LoadDashboard(path string) (Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dashboard{}, fmt.Errorf("DASHBOARD_CONFIG %q: %w", path, err)
	}
	return parseDashboard(data)
}

func parseDashboard(data []byte) (Dashboard, error) {
	var d Dashboard
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Dashboard{}, fmt.Errorf("parse dashboard config: %w", err)
	}

	def := DefaultDashboard()
	if d.Title == "" {
		d.Title = def.Title
	}
	if d.DefaultSort == "" {
		d.DefaultSort = def.DefaultSort
	}
	if d.DefaultOrder == "" {
		d.DefaultOrder = def.DefaultOrder
	}
	if d.DateWindowMonths == 0 {
		d.DateWindowMonths = def.DateWindowMonths
	}
	if d.DateWindowMonths < 0 {
		return Dashboard{}, fmt.Errorf("invalid date_window_months %d (must be positive)", d.DateWindowMonths)
	}
	if len(d.Charts) == 0 {
		d.Charts = def.Charts
	}
	return d, nil
}
