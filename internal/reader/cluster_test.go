package reader

import (
	"testing"
)

func tops(objs []Object) []float64 {
	out := make([]float64, len(objs))
	for i, o := range objs {
		b, _ := o.Bounds()
		out[i] = b.Top
	}
	return out
}

func lefts(objs []Object) []float64 {
	out := make([]float64, len(objs))
	for i, o := range objs {
		b, _ := o.Bounds()
		out[i] = b.Left
	}
	return out
}

func TestSortReadingOrderTopToBottom(t *testing.T) {
	objs := []Object{
		textObj("bottom", 20, 0),
		textObj("top", 200, 0),
		textObj("middle", 110, 0),
	}

	sorted := sortReadingOrder(objs)

	want := []float64{200, 110, 20}
	got := tops(sorted)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tops = %v, want %v", got, want)
		}
	}
}

func TestSortReadingOrderWithinLineBand(t *testing.T) {
	// All four objects lie within the tolerance band; original enumeration
	// order is scrambled on purpose.
	objs := []Object{
		textObj("c", 101, 200),
		textObj("a", 100, 0),
		textObj("d", 99, 300),
		textObj("b", 102, 100),
	}

	sorted := sortReadingOrder(objs)

	want := []float64{0, 100, 200, 300}
	got := lefts(sorted)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lefts = %v, want %v", got, want)
		}
	}
}

func TestSortReadingOrderSeparateBandsKeepLeftInterleaving(t *testing.T) {
	// Two distinct lines: the lower line's small left value must not bubble
	// above the upper line's larger left value.
	objs := []Object{
		textObj("lower-left", 50, 0),
		textObj("upper-right", 100, 500),
		textObj("upper-left", 100, 10),
	}

	sorted := sortReadingOrder(objs)

	wantText := []string{"upper-left", "upper-right", "lower-left"}
	for i, o := range sorted {
		txt, _ := o.Text()
		if txt != wantText[i] {
			t.Fatalf("order[%d] = %q, want %q", i, txt, wantText[i])
		}
	}
}

func TestSortReadingOrderStableOnBoundsFailure(t *testing.T) {
	broken1 := &fakeObject{kind: KindText, text: "broken1", bErr: errFake}
	broken2 := &fakeObject{kind: KindText, text: "broken2", bErr: errFake}
	objs := []Object{broken1, textObj("positioned", 100, 0), broken2}

	sorted := sortReadingOrder(objs)

	// Comparisons involving a failed bounds accessor are treated as equal,
	// so the stable sort preserves the original relative order.
	wantText := []string{"broken1", "positioned", "broken2"}
	for i, o := range sorted {
		txt, _ := o.Text()
		if txt != wantText[i] {
			t.Fatalf("order[%d] = %q, want %q", i, txt, wantText[i])
		}
	}
}

func TestLineGroups(t *testing.T) {
	tests := []struct {
		name string
		tops []float64
		want []lineGroup
	}{
		{
			name: "single band within tolerance",
			tops: []float64{100, 98, 96},
			want: []lineGroup{{0, 3}},
		},
		{
			name: "split at exactly tolerance",
			tops: []float64{100, 95},
			want: []lineGroup{{0, 1}, {1, 2}},
		},
		{
			name: "reference top is the band's first object",
			// 97 is within 5 of 100, 94 is not: drift accumulates against
			// the reference, not the previous object.
			tops: []float64{100, 97, 94},
			want: []lineGroup{{0, 2}, {2, 3}},
		},
		{
			name: "empty",
			tops: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objs := make([]Object, len(tt.tops))
			for i, top := range tt.tops {
				objs[i] = textObj("x", top, 0)
			}
			got := lineGroups(objs)
			if len(got) != len(tt.want) {
				t.Fatalf("lineGroups = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("lineGroups[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLineGroupsBoundsFailureIsSingleton(t *testing.T) {
	objs := []Object{
		textObj("a", 100, 0),
		&fakeObject{kind: KindText, text: "broken", bErr: errFake},
		textObj("b", 99, 0),
	}

	got := lineGroups(objs)
	want := []lineGroup{{0, 1}, {1, 2}, {2, 3}}
	if len(got) != len(want) {
		t.Fatalf("lineGroups = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("lineGroups[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
