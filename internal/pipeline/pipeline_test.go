// internal/pipeline/pipeline_test.go - Pipeline orchestration tests
package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/twpayne/go-geos"

	"parceldash/internal/config"
	"parceldash/pkg/overlay"
)

func testConfig(outDir string) *config.Config {
	return &config.Config{
		CRS: config.CRSConfig{
			GeographicEPSG: 4326,
			GeographicDef:  "+proj=longlat +datum=WGS84 +no_defs",
			ProjectedEPSG:  26914,
			ProjectedDef:   "+proj=utm +zone=14 +datum=NAD83 +units=m +no_defs",
		},
		Area: config.AreaConfig{Unit: "acres", SquareMetersPerUnit: 4046.8564224},
		Columns: config.ColumnsConfig{
			ParcelIDCandidates: []string{"parcel_id"},
			ParcelIDFallback:   "objectid",
			ZoningCodeColumn:   "zoneclass",
			ZoningDescColumn:   "zonedesc",
			JurisdictionColumn: "jurisdiction",
			LabelCandidates:    []string{"name"},
		},
		Resolver: config.ResolverConfig{Workers: 2},
		Output:   config.OutputConfig{Directory: outDir},
	}
}

func mustGeom(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		t.Fatalf("parsing %q: %v", wkt, err)
	}
	return g
}

func intPtr(v int) *int { return &v }

// Two adjacent districts near 96W 41N; parcels P1 and P2 sit inside A and B,
// P3 straddles the shared boundary with most of its area in A.
func coreLayers(t *testing.T) (*overlay.Layer, *overlay.Layer) {
	t.Helper()
	parcels := &overlay.Layer{Features: []overlay.Feature{
		{ID: "P1", Geom: mustGeom(t, "POLYGON((-96.0018 41.0002, -96.0014 41.0002, -96.0014 41.0006, -96.0018 41.0006, -96.0018 41.0002))")},
		{ID: "P2", Geom: mustGeom(t, "POLYGON((-96.0008 41.0002, -96.0004 41.0002, -96.0004 41.0006, -96.0008 41.0006, -96.0008 41.0002))")},
		{ID: "P3", Geom: mustGeom(t, "POLYGON((-96.0017 41.0002, -96.0007 41.0002, -96.0007 41.0006, -96.0017 41.0006, -96.0017 41.0002))")},
	}}
	zoning := &overlay.Layer{Features: []overlay.Feature{
		{ID: "10", CategoryCode: "A", CategoryDesc: "Agricultural", Jurisdiction: intPtr(1),
			Geom: mustGeom(t, "POLYGON((-96.0020 41.0000, -96.0010 41.0000, -96.0010 41.0010, -96.0020 41.0010, -96.0020 41.0000))")},
		{ID: "11", CategoryCode: "B", CategoryDesc: "Business", Jurisdiction: intPtr(2),
			Geom: mustGeom(t, "POLYGON((-96.0010 41.0000, -96.0000 41.0000, -96.0000 41.0010, -96.0010 41.0010, -96.0010 41.0000))")},
	}}
	return parcels, zoning
}

func TestRunCore(t *testing.T) {
	parcels, zoning := coreLayers(t)
	r := NewRunner(testConfig(t.TempDir()), nil)

	artifacts, err := r.RunCore(parcels, zoning, nil)
	if err != nil {
		t.Fatalf("RunCore failed: %v", err)
	}

	if len(artifacts.Resolved) != 3 {
		t.Fatalf("expected 3 resolved rows, got %d", len(artifacts.Resolved))
	}
	want := map[string]string{"P1": "A", "P2": "B", "P3": "A"}
	for _, row := range artifacts.Resolved {
		if !row.Matched || row.CategoryCode != want[row.ParcelID] {
			t.Errorf("parcel %s: expected %s, got %q (matched=%v)",
				row.ParcelID, want[row.ParcelID], row.CategoryCode, row.Matched)
		}
	}

	if len(artifacts.Dissolved) != 2 {
		t.Fatalf("expected 2 dissolved categories, got %d", len(artifacts.Dissolved))
	}

	counts := map[string]int{}
	for _, rec := range artifacts.Rollups {
		counts[rec.Label] = rec.ParcelCount
	}
	if counts["A"] != 2 || counts["B"] != 1 {
		t.Errorf("unexpected rollup counts: %v", counts)
	}

	if got := len(r.Stats().Stages); got != 5 {
		t.Errorf("expected 5 recorded stages, got %d", got)
	}
}

func TestRunCoreJurisdictionScoping(t *testing.T) {
	parcels, zoning := coreLayers(t)
	r := NewRunner(testConfig(t.TempDir()), nil)

	artifacts, err := r.RunCore(parcels, zoning, []int{1})
	if err != nil {
		t.Fatalf("RunCore failed: %v", err)
	}

	// The mapping stays complete; only the dissolve and rollup are scoped.
	if len(artifacts.Resolved) != 3 {
		t.Errorf("filter must not shrink the resolved mapping: %d rows", len(artifacts.Resolved))
	}
	if len(artifacts.Dissolved) != 1 || artifacts.Dissolved[0].Label != "A" {
		t.Fatalf("expected only category A dissolved, got %v", artifacts.Dissolved)
	}
	for _, rec := range artifacts.Rollups {
		if rec.Label == "B" {
			t.Error("out-of-scope category leaked into the rollup")
		}
	}
}

const parcelsSource = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "properties": {"OBJECTID": 1, "PARCEL_ID": "P1"},
		 "geometry": {"type": "Polygon", "coordinates": [[[-96.0018,41.0002],[-96.0014,41.0002],[-96.0014,41.0006],[-96.0018,41.0006],[-96.0018,41.0002]]]}},
		{"type": "Feature", "properties": {"OBJECTID": 2, "PARCEL_ID": "P2"},
		 "geometry": {"type": "Polygon", "coordinates": [[[-96.0008,41.0002],[-96.0004,41.0002],[-96.0004,41.0006],[-96.0008,41.0006],[-96.0008,41.0002]]]}}
	]
}`

const zoningSource = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "properties": {"OBJECTID": 10, "ZONECLASS": "A", "ZONEDESC": "Agricultural", "NAME": "West", "JURISDICTION": 1},
		 "geometry": {"type": "Polygon", "coordinates": [[[-96.0020,41.0000],[-96.0010,41.0000],[-96.0010,41.0010],[-96.0020,41.0010],[-96.0020,41.0000]]]}},
		{"type": "Feature", "properties": {"OBJECTID": 11, "ZONECLASS": "B", "ZONEDESC": "Business", "NAME": "East", "JURISDICTION": 2},
		 "geometry": {"type": "Polygon", "coordinates": [[[-96.0010,41.0000],[-96.0000,41.0000],[-96.0000,41.0010],[-96.0010,41.0010],[-96.0010,41.0000]]]}}
	]
}`

func TestRunWritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	parcelsPath := filepath.Join(dir, "parcels.geojson")
	zoningPath := filepath.Join(dir, "zoning.geojson")
	if err := os.WriteFile(parcelsPath, []byte(parcelsSource), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(zoningPath, []byte(zoningSource), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	r := NewRunner(testConfig(outDir), nil)
	if err := r.Run(parcelsPath, zoningPath, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, name := range []string{ResolvedFile, DissolvedFile, RollupsFile, LookupFile} {
		info, err := os.Stat(filepath.Join(outDir, name))
		if err != nil {
			t.Errorf("missing output %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("output %s is empty", name)
		}
	}

	lookup, err := os.ReadFile(filepath.Join(outDir, LookupFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(lookup), "West") {
		t.Errorf("lookup missing display name: %s", lookup)
	}
}

func TestRollupTableColumns(t *testing.T) {
	table := RollupTable([]overlay.RollupRecord{
		{Label: "A", Desc: "Agricultural", ParcelCount: 2, TotalArea: 1.5},
	}, "acres")

	joined := strings.Join(table.Columns, ",")
	for _, col := range []string{"total_area_acres", "median_area_acres", "category_area_acres", "parcels_per_acres"} {
		if !strings.Contains(joined, col) {
			t.Errorf("missing unit-qualified column %s in %s", col, joined)
		}
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "A" || table.Rows[0][2] != "2" {
		t.Errorf("unexpected rows: %v", table.Rows)
	}
}

func TestScopeResolved(t *testing.T) {
	resolved := []overlay.Resolved{
		{ParcelID: "P1", CategoryCode: "A", Matched: true},
		{ParcelID: "P2", CategoryCode: "B", Matched: true},
		{ParcelID: "P3", Matched: false},
	}
	scoped := &overlay.Layer{Features: []overlay.Feature{{ID: "10", CategoryCode: "A"}}}

	// No filter: everything passes through, unmatched included.
	got := scopeResolved(resolved, scoped, false)
	if len(got) != 3 {
		t.Errorf("unfiltered scope dropped rows: %d", len(got))
	}

	// Filter active: only matched rows in scoped categories.
	got = scopeResolved(resolved, scoped, true)
	if len(got) != 1 || got[0].ParcelID != "P1" {
		t.Errorf("expected only P1 in scope, got %v", got)
	}
}
