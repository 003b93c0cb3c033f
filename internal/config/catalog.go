package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"velora/internal/models"
)

// CenterConfig describes one spa center and its lanes.
type CenterConfig struct {
	ID      int64        `yaml:"id"`
	Name    string       `yaml:"name"`
	Address string       `yaml:"address"`
	Lanes   []LaneConfig `yaml:"lanes"`
}

// LaneConfig describes a bookable lane of a center.
type LaneConfig struct {
	ID            int64   `yaml:"id"`
	Name          string  `yaml:"name"`
	Capacity      int     `yaml:"capacity"`
	AllowedGroups []int64 `yaml:"allowed_groups,omitempty"`
	Position      int     `yaml:"position"`
	IsActive      bool    `yaml:"is_active"`
}

// ServiceConfig describes a bookable treatment.
type ServiceConfig struct {
	ID              int64  `yaml:"id"`
	Name            string `yaml:"name"`
	DurationMinutes int    `yaml:"duration_minutes"`
	PriceCents      int64  `yaml:"price_cents"`
	TreatmentGroup  string `yaml:"treatment_group,omitempty"`
	GroupID         *int64 `yaml:"group_id,omitempty"`
	IsActive        bool   `yaml:"is_active"`
}

// CatalogConfig is the root configuration for catalog.yaml: the reference
// data the scheduling engine works against.
type CatalogConfig struct {
	Centers  []CenterConfig  `yaml:"centers"`
	Services []ServiceConfig `yaml:"services"`
}

// LoadCatalog loads and validates the reference data from a YAML file.
func LoadCatalog(path string) (*CatalogConfig, error) {
	if path == "" {
		path = "configs/catalog.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog config: %w", err)
	}

	var cfg CatalogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *CatalogConfig) Validate() error {
	if len(c.Centers) == 0 {
		return fmt.Errorf("no centers defined")
	}

	centerIDs := make(map[int64]bool)
	laneIDs := make(map[int64]bool)

	for i, center := range c.Centers {
		if center.ID <= 0 {
			return fmt.Errorf("center[%d]: id must be positive, got %d", i, center.ID)
		}
		if centerIDs[center.ID] {
			return fmt.Errorf("center[%d]: duplicate id %d", i, center.ID)
		}
		centerIDs[center.ID] = true

		if center.Name == "" {
			return fmt.Errorf("center[%d]: name is required", i)
		}
		if len(center.Lanes) == 0 {
			return fmt.Errorf("center[%d]: no lanes defined", i)
		}

		for j, lane := range center.Lanes {
			if lane.ID <= 0 {
				return fmt.Errorf("center[%d].lane[%d]: id must be positive, got %d", i, j, lane.ID)
			}
			if laneIDs[lane.ID] {
				return fmt.Errorf("center[%d].lane[%d]: duplicate id %d", i, j, lane.ID)
			}
			laneIDs[lane.ID] = true

			if lane.Name == "" {
				return fmt.Errorf("center[%d].lane[%d]: name is required", i, j)
			}
			if lane.Capacity < 0 {
				return fmt.Errorf("center[%d].lane[%d]: capacity cannot be negative", i, j)
			}
		}
	}

	serviceIDs := make(map[int64]bool)
	for i, svc := range c.Services {
		if svc.ID <= 0 {
			return fmt.Errorf("service[%d]: id must be positive, got %d", i, svc.ID)
		}
		if serviceIDs[svc.ID] {
			return fmt.Errorf("service[%d]: duplicate id %d", i, svc.ID)
		}
		serviceIDs[svc.ID] = true

		if svc.Name == "" {
			return fmt.Errorf("service[%d]: name is required", i)
		}
		if svc.DurationMinutes <= 0 {
			return fmt.Errorf("service[%d]: duration_minutes must be positive", i)
		}
		if svc.PriceCents < 0 {
			return fmt.Errorf("service[%d]: price_cents cannot be negative", i)
		}
	}

	return nil
}

// applyDefaults fills in values the YAML left at zero.
func (c *CatalogConfig) applyDefaults() {
	for i := range c.Centers {
		for j := range c.Centers[i].Lanes {
			if c.Centers[i].Lanes[j].Capacity == 0 {
				c.Centers[i].Lanes[j].Capacity = 1
			}
		}
	}
}

// ModelCenters converts the configured centers to store records.
func (c *CatalogConfig) ModelCenters() []models.Center {
	out := make([]models.Center, 0, len(c.Centers))
	for _, center := range c.Centers {
		out = append(out, models.Center{
			ID:      center.ID,
			Name:    center.Name,
			Address: center.Address,
		})
	}
	return out
}

// ModelLanes converts the configured lanes to store records.
func (c *CatalogConfig) ModelLanes() []models.Lane {
	var out []models.Lane
	for _, center := range c.Centers {
		for _, lane := range center.Lanes {
			out = append(out, models.Lane{
				ID:            lane.ID,
				CenterID:      center.ID,
				Name:          lane.Name,
				Capacity:      lane.Capacity,
				AllowedGroups: lane.AllowedGroups,
				Position:      lane.Position,
				IsActive:      lane.IsActive,
			})
		}
	}
	return out
}

// ModelServices converts the configured services to store records.
func (c *CatalogConfig) ModelServices() []models.Service {
	out := make([]models.Service, 0, len(c.Services))
	for _, svc := range c.Services {
		out = append(out, models.Service{
			ID:              svc.ID,
			Name:            svc.Name,
			DurationMinutes: svc.DurationMinutes,
			PriceCents:      svc.PriceCents,
			TreatmentGroup:  svc.TreatmentGroup,
			GroupID:         svc.GroupID,
			IsActive:        svc.IsActive,
		})
	}
	return out
}

// String returns a summary of the configuration.
func (c *CatalogConfig) String() string {
	lanes := 0
	for _, center := range c.Centers {
		lanes += len(center.Lanes)
	}
	return fmt.Sprintf("CatalogConfig: %d centers, %d lanes, %d services",
		len(c.Centers), lanes, len(c.Services))
}
