package admin

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const seedDoc = `
store_id: demo
places:
  - name: Main floor
    floor: 1
    tables:
      - name: T1
        capacity: 4
      - name: T2
        capacity: 2
  - name: Patio
    floor: 0
    tables:
      - name: P1
categories:
  - name: Drinks
    menus:
      - name: Espresso
        price: 3.5
      - name: Flat white
        price: 4.5
  - name: Food
    menus:
      - name: Toastie
        price: 8
`

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&placeModel{}, &tableModel{}, &categoryModel{}, &menuModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog(strings.NewReader(seedDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if catalog.StoreID != "demo" {
		t.Fatalf("store_id = %q", catalog.StoreID)
	}
	if len(catalog.Places) != 2 || len(catalog.Categories) != 2 {
		t.Fatalf("places=%d categories=%d", len(catalog.Places), len(catalog.Categories))
	}
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing store", "places: []\n"},
		{"unnamed place", "store_id: s1\nplaces:\n  - floor: 1\n"},
		{"negative price", "store_id: s1\ncategories:\n  - name: Drinks\n    menus:\n      - name: Tea\n        price: -1\n"},
		{"unknown field", "store_id: s1\nwarehouses: []\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCatalog(strings.NewReader(tc.doc)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := newSeedDB(t)
	catalog, err := ParseCatalog(strings.NewReader(seedDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	stats, err := Seed(context.Background(), db, catalog)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	want := SeedStats{Places: 2, Tables: 3, Categories: 2, Menus: 3}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	stats, err = Seed(context.Background(), db, catalog)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if stats != (SeedStats{}) {
		t.Fatalf("second seed inserted rows: %+v", stats)
	}

	var tables int64
	db.Model(&tableModel{}).Count(&tables)
	if tables != 3 {
		t.Fatalf("tables = %d, want 3", tables)
	}

	var menu menuModel
	if err := db.Where("name = ?", "Espresso").First(&menu).Error; err != nil {
		t.Fatalf("espresso missing: %v", err)
	}
	if !menu.Available || menu.Price != 3.5 || menu.CategoryID == nil {
		t.Fatalf("espresso seeded wrong: %+v", menu)
	}
}
