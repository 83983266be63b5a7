package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// SeedCatalog is the YAML layout accepted by Seed: a store's seating plan and
// menu catalog in one document.
type SeedCatalog struct {
	StoreID string `yaml:"store_id"`
	Places  []struct {
		Name   string `yaml:"name"`
		Floor  int    `yaml:"floor"`
		Tables []struct {
			Name     string `yaml:"name"`
			Capacity int    `yaml:"capacity"`
		} `yaml:"tables"`
	} `yaml:"places"`
	Categories []struct {
		Name  string `yaml:"name"`
		Menus []struct {
			Name  string  `yaml:"name"`
			Price float64 `yaml:"price"`
		} `yaml:"menus"`
	} `yaml:"categories"`
}

// SeedStats reports what a Seed call inserted.
type SeedStats struct {
	Places     int
	Tables     int
	Categories int
	Menus      int
}

// ParseCatalog decodes and validates a seed document.
func ParseCatalog(r io.Reader) (*SeedCatalog, error) {
	var catalog SeedCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	catalog.StoreID = strings.TrimSpace(catalog.StoreID)
	if catalog.StoreID == "" {
		return nil, errors.New("catalog: store_id is required")
	}
	for i, p := range catalog.Places {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog: places[%d]: name is required", i)
		}
		for j, t := range p.Tables {
			if strings.TrimSpace(t.Name) == "" {
				return nil, fmt.Errorf("catalog: places[%d].tables[%d]: name is required", i, j)
			}
		}
	}
	for i, c := range catalog.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("catalog: categories[%d]: name is required", i)
		}
		for j, m := range c.Menus {
			if strings.TrimSpace(m.Name) == "" {
				return nil, fmt.Errorf("catalog: categories[%d].menus[%d]: name is required", i, j)
			}
			if m.Price < 0 {
				return nil, fmt.Errorf("catalog: categories[%d].menus[%d]: price must be non-negative", i, j)
			}
		}
	}
	return &catalog, nil
}

// Seed inserts the catalog in a single transaction. Existing rows with the
// same store and name are left alone, so re-running a seed file is safe.
func Seed(ctx context.Context, orm *gorm.DB, catalog *SeedCatalog) (SeedStats, error) {
	if orm == nil {
		return SeedStats{}, errors.New("orm is required")
	}
	if catalog == nil {
		return SeedStats{}, errors.New("catalog is required")
	}

	var stats SeedStats
	err := orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := nowUTC()

		for _, p := range catalog.Places {
			place := placeModel{StoreID: catalog.StoreID, Name: p.Name}
			err := tx.Where(&place).First(&place).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				place = placeModel{
					ID: uuid.New(), StoreID: catalog.StoreID, Name: p.Name,
					Floor: p.Floor, CreatedAt: now, UpdatedAt: now,
				}
				if err := tx.Create(&place).Error; err != nil {
					return fmt.Errorf("seed place %q: %w", p.Name, err)
				}
				stats.Places++
			case err != nil:
				return err
			}

			for _, t := range p.Tables {
				capacity := t.Capacity
				if capacity <= 0 {
					capacity = 4
				}

				var existing tableModel
				err := tx.Where("store_id = ? AND name = ?", catalog.StoreID, t.Name).First(&existing).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					table := tableModel{
						ID: uuid.New(), StoreID: catalog.StoreID, PlaceID: &place.ID,
						Name: t.Name, Status: TableStatusEmpty, Capacity: capacity,
						CreatedAt: now, UpdatedAt: now,
					}
					if err := tx.Create(&table).Error; err != nil {
						return fmt.Errorf("seed table %q: %w", t.Name, err)
					}
					stats.Tables++
				case err != nil:
					return err
				}
			}
		}

		for _, c := range catalog.Categories {
			category := categoryModel{StoreID: catalog.StoreID, Name: c.Name}
			err := tx.Where(&category).First(&category).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				category = categoryModel{
					ID: uuid.New(), StoreID: catalog.StoreID, Name: c.Name,
					CreatedAt: now, UpdatedAt: now,
				}
				if err := tx.Create(&category).Error; err != nil {
					return fmt.Errorf("seed category %q: %w", c.Name, err)
				}
				stats.Categories++
			case err != nil:
				return err
			}

			for _, m := range c.Menus {
				var existing menuModel
				err := tx.Where("store_id = ? AND name = ?", catalog.StoreID, m.Name).First(&existing).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					menu := menuModel{
						ID: uuid.New(), StoreID: catalog.StoreID, CategoryID: &category.ID,
						Name: m.Name, Price: m.Price, Available: true,
						CreatedAt: now, UpdatedAt: now,
					}
					if err := tx.Create(&menu).Error; err != nil {
						return fmt.Errorf("seed menu %q: %w", m.Name, err)
					}
					stats.Menus++
				case err != nil:
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	return stats, nil
}
