package pdfsource

import (
	"testing"

	"github.com/local/pdfextract/internal/reader"
)

func TestScanPlacementsSimpleDo(t *testing.T) {
	stream := []byte("q 200 0 0 100 50 600 cm /Im1 Do Q")

	got := scanPlacements(stream)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	if got[0].name != "Im1" {
		t.Errorf("name = %q, want Im1", got[0].name)
	}
	want := reader.Bounds{Top: 700, Left: 50, Bottom: 600, Right: 250}
	if got[0].rect != want {
		t.Errorf("rect = %+v, want %+v", got[0].rect, want)
	}
}

func TestScanPlacementsRestoresStateAfterQ(t *testing.T) {
	stream := []byte(`
q 100 0 0 100 0 0 cm
  q 2 0 0 2 0 0 cm Q
  /ImA Do
Q
q 50 0 0 50 300 300 cm /ImB Do Q
`)

	got := scanPlacements(stream)
	if len(got) != 2 {
		t.Fatalf("placements = %d, want 2", len(got))
	}
	if got[0].rect != (reader.Bounds{Top: 100, Left: 0, Bottom: 0, Right: 100}) {
		t.Errorf("ImA rect = %+v", got[0].rect)
	}
	if got[1].rect != (reader.Bounds{Top: 350, Left: 300, Bottom: 300, Right: 350}) {
		t.Errorf("ImB rect = %+v", got[1].rect)
	}
}

func TestScanPlacementsNestedTransformsCompose(t *testing.T) {
	stream := []byte("q 2 0 0 2 10 10 cm q 1 0 0 1 5 5 cm /Im1 Do Q Q")

	got := scanPlacements(stream)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	// Inner translate (5,5) scaled by the outer 2x then shifted by (10,10).
	want := reader.Bounds{Top: 22, Left: 20, Bottom: 20, Right: 22}
	if got[0].rect != want {
		t.Errorf("rect = %+v, want %+v", got[0].rect, want)
	}
}

func TestScanPlacementsIgnoresTextAndStrings(t *testing.T) {
	stream := []byte(`
BT /F1 12 Tf 72 700 Td (Do not trip on )Do( inside strings) Tj ET
q 10 0 0 10 0 0 cm /Im1 Do Q
`)

	got := scanPlacements(stream)
	if len(got) != 1 || got[0].name != "Im1" {
		t.Fatalf("placements = %+v, want single Im1", got)
	}
}

func TestScanPlacementsSkipsInlineImage(t *testing.T) {
	stream := []byte("BI /W 2 /H 2 /BPC 8 /CS /RGB ID \x00\x01Do\x02\x03 EI q 10 0 0 10 0 0 cm /Im1 Do Q")

	got := scanPlacements(stream)
	if len(got) != 1 || got[0].name != "Im1" {
		t.Fatalf("placements = %+v, want single Im1", got)
	}
}

func TestScanPlacementsRotation(t *testing.T) {
	// 90 degree rotation of a 100x50 image placed at the origin.
	stream := []byte("q 0 100 -50 0 0 0 cm /Im1 Do Q")

	got := scanPlacements(stream)
	if len(got) != 1 {
		t.Fatalf("placements = %d, want 1", len(got))
	}
	want := reader.Bounds{Top: 100, Left: -50, Bottom: 0, Right: 0}
	if got[0].rect != want {
		t.Errorf("rect = %+v, want %+v", got[0].rect, want)
	}
}

func TestMatrixMul(t *testing.T) {
	scale := matrix{2, 0, 0, 2, 0, 0}
	translate := matrix{1, 0, 0, 1, 10, 20}

	// Apply translate first, then scale: the point lands at (2x+20, 2y+40).
	m := translate.mul(scale)
	if m != (matrix{2, 0, 0, 2, 20, 40}) {
		t.Fatalf("composed matrix = %v", m)
	}
}
