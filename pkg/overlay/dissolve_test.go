// pkg/overlay/dissolve_test.go - Unit tests for the category dissolve
package overlay

import (
	"testing"
)

func dissolveOptions() DissolveOptions {
	return DissolveOptions{Geographic: testGeographic, Projected: testProjected}
}

// projectedArea measures a geographic geometry in the projected test
// reference, in square meters.
func projectedArea(t *testing.T, d DissolvedCategory) float64 {
	t.Helper()
	rp, err := NewReprojector(testGeographic, testProjected)
	if err != nil {
		t.Fatalf("building transform: %v", err)
	}
	pg, err := rp.Reproject(d.Geom)
	if err != nil {
		t.Fatalf("reprojecting %q: %v", d.Label, err)
	}
	defer pg.Destroy()
	return pg.Area()
}

func TestDissolveGroupsByLabel(t *testing.T) {
	zoning := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "1", CategoryCode: "A", CategoryDesc: "Agricultural", Geom: mustGeom(t, square(-96.0020, 41.0000, 0.0004))},
		{ID: "2", CategoryCode: "B", Geom: mustGeom(t, square(-96.0010, 41.0000, 0.0004))},
		{ID: "3", CategoryCode: "A", Geom: mustGeom(t, square(-96.0020, 41.0010, 0.0004))},
	}}

	dissolved, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("dissolve failed: %v", err)
	}

	if len(dissolved) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(dissolved))
	}
	if dissolved[0].Label != "A" || dissolved[1].Label != "B" {
		t.Errorf("labels out of order: %s, %s", dissolved[0].Label, dissolved[1].Label)
	}
	if dissolved[0].Desc != "Agricultural" {
		t.Errorf("description lost in dissolve: %q", dissolved[0].Desc)
	}
}

func TestDissolveDisjointAreaIsSum(t *testing.T) {
	// Two disjoint same-label squares: the dissolved area equals the sum of
	// member areas.
	a1 := square(-96.0020, 41.0000, 0.0004)
	a2 := square(-96.0010, 41.0010, 0.0004)
	zoning := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "1", CategoryCode: "A", Geom: mustGeom(t, a1)},
		{ID: "2", CategoryCode: "A", Geom: mustGeom(t, a2)},
	}}

	dissolved, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("dissolve failed: %v", err)
	}
	if len(dissolved) != 1 {
		t.Fatalf("expected 1 category, got %d", len(dissolved))
	}

	rp, err := NewReprojector(testGeographic, testProjected)
	if err != nil {
		t.Fatalf("building transform: %v", err)
	}
	sum := 0.0
	for _, wkt := range []string{a1, a2} {
		pg, err := rp.Reproject(mustGeom(t, wkt))
		if err != nil {
			t.Fatalf("reprojecting member: %v", err)
		}
		sum += pg.Area()
		pg.Destroy()
	}

	got := projectedArea(t, dissolved[0])
	if abs(got-sum)/sum > 1e-6 {
		t.Errorf("dissolved area %f differs from member sum %f", got, sum)
	}
}

func TestDissolveOverlapNotDoubleCounted(t *testing.T) {
	// Two same-label squares sharing half their footprint: the union covers
	// less than the sum of the parts.
	zoning := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "1", CategoryCode: "A", Geom: mustGeom(t, wktPolygon(-96.0020, 41.0000, -96.0012, 41.0004))},
		{ID: "2", CategoryCode: "A", Geom: mustGeom(t, wktPolygon(-96.0016, 41.0000, -96.0008, 41.0004))},
	}}

	dissolved, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("dissolve failed: %v", err)
	}

	rp, err := NewReprojector(testGeographic, testProjected)
	if err != nil {
		t.Fatalf("building transform: %v", err)
	}
	one, err := rp.Reproject(mustGeom(t, wktPolygon(-96.0020, 41.0000, -96.0012, 41.0004)))
	if err != nil {
		t.Fatalf("reprojecting member: %v", err)
	}
	defer one.Destroy()

	got := projectedArea(t, dissolved[0])
	// Each member is congruent and they overlap by half, so the union is 1.5
	// members, not 2.
	want := one.Area() * 1.5
	if abs(got-want)/want > 1e-4 {
		t.Errorf("dissolved area %f, expected about %f", got, want)
	}
}

func TestDissolveRepairsInvalidMembers(t *testing.T) {
	// A bowtie member must not poison the union.
	zoning := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "1", CategoryCode: "A", Geom: mustGeom(t, square(-96.0020, 41.0000, 0.0004))},
		{ID: "2", CategoryCode: "A", Geom: mustGeom(t,
			"POLYGON((-96.0010 41.0000, -96.0006 41.0004, -96.0006 41.0000, -96.0010 41.0004, -96.0010 41.0000))")},
	}}

	dissolved, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("dissolve failed on invalid member: %v", err)
	}
	if len(dissolved) != 1 {
		t.Fatalf("expected 1 category, got %d", len(dissolved))
	}
	if !dissolved[0].Geom.IsValid() {
		t.Error("dissolved geometry is invalid")
	}
}

func TestDissolveSkipsUnlabeledRows(t *testing.T) {
	zoning := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "1", CategoryCode: "A", Geom: mustGeom(t, square(-96.0020, 41.0000, 0.0004))},
		{ID: "2", CategoryCode: "", Geom: mustGeom(t, square(-96.0010, 41.0000, 0.0004))},
	}}

	dissolved, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("dissolve failed: %v", err)
	}
	if len(dissolved) != 1 || dissolved[0].Label != "A" {
		t.Errorf("expected only category A, got %v", dissolved)
	}
}

func TestDissolveDoesNotConsumeInput(t *testing.T) {
	// The union clones its leaves; dissolving the same layer twice must work
	// and give identical results.
	zoning := &Layer{CRS: testGeographic, Features: []Feature{
		{ID: "1", CategoryCode: "A", Geom: mustGeom(t, square(-96.0020, 41.0000, 0.0004))},
		{ID: "2", CategoryCode: "A", Geom: mustGeom(t, square(-96.0010, 41.0010, 0.0004))},
	}}

	once, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("first dissolve failed: %v", err)
	}
	twice, err := Dissolve(zoning, dissolveOptions())
	if err != nil {
		t.Fatalf("second dissolve failed: %v", err)
	}

	a, b := projectedArea(t, once[0]), projectedArea(t, twice[0])
	if abs(a-b)/a > 1e-9 {
		t.Errorf("second dissolve differs: %f vs %f", a, b)
	}
	for _, f := range zoning.Features {
		if f.Geom.IsEmpty() {
			t.Errorf("input geometry %s was consumed", f.ID)
		}
	}
}

func TestDissolveEmptyLayer(t *testing.T) {
	dissolved, err := Dissolve(&Layer{CRS: testGeographic}, dissolveOptions())
	if err != nil {
		t.Fatalf("dissolve failed on empty layer: %v", err)
	}
	if len(dissolved) != 0 {
		t.Errorf("expected no categories, got %d", len(dissolved))
	}
}
