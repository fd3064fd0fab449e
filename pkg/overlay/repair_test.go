// pkg/overlay/repair_test.go - Unit tests for geometry repair
package overlay

import (
	"testing"
)

// bowtie is the classic self-intersecting polygon: two triangles meeting at
// a point, drawn as one crossing ring.
const bowtie = "POLYGON((0 0, 2 2, 2 0, 0 2, 0 0))"

func TestRepairLayerDropsNullAndEmpty(t *testing.T) {
	l := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "keep", Geom: mustGeom(t, square(0, 0, 1))},
		{ID: "null", Geom: nil},
		{ID: "empty", Geom: mustGeom(t, "POLYGON EMPTY")},
	}}

	repaired, report := RepairLayer(l, nil)

	if len(repaired.Features) != 1 {
		t.Fatalf("expected 1 surviving feature, got %d", len(repaired.Features))
	}
	if repaired.Features[0].ID != "keep" {
		t.Errorf("wrong feature survived: %s", repaired.Features[0].ID)
	}
	if len(report.Dropped) != 2 {
		t.Errorf("expected 2 dropped rows, got %v", report.Dropped)
	}
}

func TestRepairLayerValidityPostcondition(t *testing.T) {
	tests := []struct {
		name string
		wkt  string
	}{
		{name: "bowtie", wkt: bowtie},
		{name: "self touching ring", wkt: "POLYGON((0 0, 4 0, 4 4, 2 4, 2 2, 2 4, 0 4, 0 0))"},
		{name: "already valid", wkt: square(0, 0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Layer{CRS: testGeographic, Features: []Feature{{ID: "g", Geom: mustGeom(t, tt.wkt)}}}
			repaired, _ := RepairLayer(l, nil)

			if len(repaired.Features) != 1 {
				t.Fatalf("expected 1 feature, got %d", len(repaired.Features))
			}
			if !repaired.Features[0].Geom.IsValid() {
				t.Errorf("geometry still invalid after repair: %s",
					repaired.Features[0].Geom.IsValidReason())
			}
		})
	}
}

func TestRepairLayerPreservesArea(t *testing.T) {
	// Repairing a bowtie splits it into two triangles; the covered area (2)
	// must survive the rewrite.
	l := &Layer{CRS: testGeographic, Features: []Feature{{ID: "b", Geom: mustGeom(t, bowtie)}}}
	repaired, _ := RepairLayer(l, nil)

	area := repaired.Features[0].Geom.Area()
	if abs(area-2.0) > 1e-9 {
		t.Errorf("expected repaired area 2.0, got %f", area)
	}
}

func TestRepairLayerIdempotent(t *testing.T) {
	l := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "a", Geom: mustGeom(t, square(0, 0, 1))},
		{ID: "b", Geom: mustGeom(t, square(5, 5, 2))},
	}}

	once, _ := RepairLayer(l, nil)
	twice, _ := RepairLayer(once, nil)

	if len(once.Features) != len(twice.Features) {
		t.Fatalf("row count changed on second repair: %d vs %d",
			len(once.Features), len(twice.Features))
	}
	for i := range once.Features {
		a, b := once.Features[i].Geom, twice.Features[i].Geom
		if abs(a.Area()-b.Area()) > 1e-12 {
			t.Errorf("feature %s area changed on second repair: %f vs %f",
				once.Features[i].ID, a.Area(), b.Area())
		}
	}
}

func TestRepairLayerDoesNotMutateInput(t *testing.T) {
	g := mustGeom(t, bowtie)
	l := &Layer{CRS: testGeographic, Features: []Feature{{ID: "b", Geom: g}}}

	RepairLayer(l, nil)

	if l.Features[0].Geom != g {
		t.Error("input layer geometry was replaced")
	}
	if g.IsValid() {
		t.Error("input geometry was repaired in place")
	}
}
