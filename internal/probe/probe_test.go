package probe

import (
	"errors"
	"strings"
	"testing"
)

type fakeDoc struct {
	pages   []string
	pageErr map[int]error
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) Page(i int) (Page, error) {
	if err, ok := d.pageErr[i]; ok {
		return nil, err
	}
	return &fakePage{text: d.pages[i]}, nil
}

func (d *fakeDoc) Close() error { return nil }

type fakePage struct{ text string }

func (p *fakePage) Text() (string, error) { return p.text, nil }
func (p *fakePage) Close()                {}

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o *fakeOpener) Open(path string) (Doc, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

func withOpener(t *testing.T, o Opener) {
	t.Helper()
	prev := defaultOpener
	setDefaultOpener(o)
	t.Cleanup(func() { setDefaultOpener(prev) })
}

func TestHasExtractableTextAboveThreshold(t *testing.T) {
	withOpener(t, &fakeOpener{doc: &fakeDoc{pages: []string{
		strings.Repeat("lorem ipsum ", 30),
		"short",
	}}})

	ok, diag, err := HasExtractableText("/tmp/doc.pdf", 100)
	if err != nil {
		t.Fatalf("HasExtractableText: %v", err)
	}
	if !ok {
		t.Fatalf("want extractable, diag = %+v", diag)
	}
	if diag.TotalPages != 2 {
		t.Fatalf("TotalPages = %d", diag.TotalPages)
	}
}

func TestHasExtractableTextScannedDocument(t *testing.T) {
	// Scans typically yield no text at all.
	withOpener(t, &fakeOpener{doc: &fakeDoc{pages: []string{"", "", ""}}})

	ok, diag, err := HasExtractableText("/tmp/scan.pdf", 0)
	if err != nil {
		t.Fatalf("HasExtractableText: %v", err)
	}
	if ok {
		t.Fatal("scan reported as extractable")
	}
	if diag.Threshold != DefaultThreshold {
		t.Fatalf("Threshold = %d, want default %d", diag.Threshold, DefaultThreshold)
	}
	if diag.TotalCharsInSample != 0 {
		t.Fatalf("TotalCharsInSample = %d", diag.TotalCharsInSample)
	}
}

func TestHasExtractableTextWhitespaceOnlyDoesNotCount(t *testing.T) {
	withOpener(t, &fakeOpener{doc: &fakeDoc{pages: []string{"   \n\t  \n  "}}})

	ok, diag, err := HasExtractableText("/tmp/doc.pdf", 1)
	if err != nil {
		t.Fatalf("HasExtractableText: %v", err)
	}
	if ok || diag.TotalCharsInSample != 0 {
		t.Fatalf("whitespace counted: %+v", diag)
	}
}

func TestHasExtractableTextPageErrorIsRecorded(t *testing.T) {
	withOpener(t, &fakeOpener{doc: &fakeDoc{
		pages:   []string{"", ""},
		pageErr: map[int]error{0: errors.New("broken page")},
	}})

	_, diag, err := HasExtractableText("/tmp/doc.pdf", 10)
	if err != nil {
		t.Fatalf("HasExtractableText: %v", err)
	}
	if diag.Probes[0].Err != "broken page" {
		t.Fatalf("probes = %+v", diag.Probes)
	}
}

func TestHasExtractableTextOpenFailure(t *testing.T) {
	withOpener(t, &fakeOpener{err: errors.New("no such file")})

	if _, _, err := HasExtractableText("/tmp/missing.pdf", 10); err == nil {
		t.Fatal("want error for open failure")
	}
}

func TestHasExtractableTextWithExplicitPages(t *testing.T) {
	withOpener(t, &fakeOpener{doc: &fakeDoc{pages: []string{"aaaa", "bbbb", "cccc"}}})

	ok, diag, err := HasExtractableTextWithPages("/tmp/doc.pdf", 8, []int{1, 2, 99, -1, 2})
	if err != nil {
		t.Fatalf("HasExtractableTextWithPages: %v", err)
	}
	if !ok {
		t.Fatalf("want extractable, diag = %+v", diag)
	}
	if len(diag.SampledPages) != 2 || diag.SampledPages[0] != 1 || diag.SampledPages[1] != 2 {
		t.Fatalf("SampledPages = %v", diag.SampledPages)
	}
}

func TestSampleIndicesSmallAndLarge(t *testing.T) {
	if got := sampleIndices(3); len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Fatalf("sampleIndices(3) = %v", got)
	}
	got := sampleIndices(100)
	if len(got) != 5 {
		t.Fatalf("sampleIndices(100) = %v, want 5 indices", got)
	}
	seen := map[int]bool{}
	for _, i := range got {
		if i < 0 || i >= 100 || seen[i] {
			t.Fatalf("bad index set %v", got)
		}
		seen[i] = true
	}
	if !seen[0] || !seen[50] || !seen[99] {
		t.Fatalf("first/mid/last missing from %v", got)
	}
}
