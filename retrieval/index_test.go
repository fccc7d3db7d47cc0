package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const faqText = `How do I reset my password?
Open settings and choose reset password.

Billing happens on the first day of each month.

To cancel your plan, contact support.

How do I reset my password?
Open settings and choose reset password.`

func TestIndexAddDeduplicates(t *testing.T) {
	x := NewIndex()
	if n := x.Add("", "faq", faqText); n != 3 {
		t.Fatalf("expected 3 distinct chunks, got %d", n)
	}
	if n := x.Add("", "faq", "Billing happens on the first day of each month."); n != 0 {
		t.Fatalf("expected duplicate paragraph to be skipped, got %d", n)
	}
}

func TestIndexSearchRanksByTermCoverage(t *testing.T) {
	x := NewIndex()
	x.Add("", "faq", faqText)

	got, err := x.Search(context.Background(), "Reset password billing", Options{Threshold: 0.3})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %+v", got)
	}
	if got[0].Position != 0 || got[0].Similarity < 0.66 || got[0].Similarity > 0.67 {
		t.Errorf("first hit = %+v, want the password paragraph at 2/3", got[0])
	}
	if got[1].Position != 1 || got[1].Similarity < 0.33 || got[1].Similarity > 0.34 {
		t.Errorf("second hit = %+v, want the billing paragraph at 1/3", got[1])
	}
	if got[0].SourceID != "faq" || got[0].ID == "" {
		t.Errorf("chunk metadata missing: %+v", got[0])
	}
}

func TestIndexSearchThresholdAndTopK(t *testing.T) {
	x := NewIndex()
	x.Add("", "faq", faqText)
	ctx := context.Background()

	got, _ := x.Search(ctx, "reset password billing", Options{Threshold: 0.7})
	if len(got) != 0 {
		t.Fatalf("expected nothing above 0.7, got %+v", got)
	}

	got, _ = x.Search(ctx, "the", Options{Threshold: 0.1, TopK: 1})
	if len(got) != 1 {
		t.Fatalf("expected TopK to cap results, got %d", len(got))
	}

	got, _ = x.Search(ctx, "  ?! ", Options{})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result for empty query, got %v", got)
	}
}

func TestIndexTenantScoping(t *testing.T) {
	x := NewIndex()
	x.Add("", "shared", "Office hours are nine to five.")
	x.Add("acme", "private", "Acme office is in Berlin.")
	x.Add("globex", "private", "Globex office is in Springfield.")
	ctx := context.Background()

	got, _ := x.Search(ctx, "office", Options{TenantID: "acme", Threshold: 0.5})
	if len(got) != 2 {
		t.Fatalf("expected tenant and shared chunks, got %+v", got)
	}
	for _, c := range got {
		if c.Content == "Globex office is in Springfield." {
			t.Fatalf("leaked another tenant's chunk: %+v", got)
		}
	}

	got, _ = x.Search(ctx, "office", Options{TenantID: "acme", SourceIDs: []string{"private"}, Threshold: 0.5})
	if len(got) != 1 || got[0].Content != "Acme office is in Berlin." {
		t.Fatalf("expected only the private source, got %+v", got)
	}

	if ids := x.Sources("acme"); len(ids) != 2 || ids[0] != "private" || ids[1] != "shared" {
		t.Errorf("Sources(acme) = %v", ids)
	}
}

func TestIndexReindexesAfterAdd(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	x.Add("", "docs", "alpha")

	got, _ := x.Search(ctx, "beta", Options{Threshold: 0.5})
	if len(got) != 0 {
		t.Fatalf("unexpected hit: %+v", got)
	}

	x.Add("", "docs", "beta")
	got, _ = x.Search(ctx, "beta", Options{Threshold: 0.5})
	if len(got) != 1 || got[0].Content != "beta" {
		t.Fatalf("expected new chunk to be searchable, got %+v", got)
	}

	if !x.Remove("", "docs") {
		t.Fatal("Remove failed")
	}
	got, _ = x.Search(ctx, "beta", Options{Threshold: 0.5})
	if len(got) != 0 {
		t.Fatalf("removed source still searchable: %+v", got)
	}
}

func TestIndexAddPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("first paragraph\n\nsecond paragraph"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("third paragraph"), 0o644); err != nil {
		t.Fatal(err)
	}

	x := NewIndex()
	n, err := x.AddPath("", "docs", dir)
	if err != nil {
		t.Fatalf("AddPath failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}

	if _, err := x.AddPath("", "docs", filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestIndexFormatsAsToolPayload(t *testing.T) {
	x := NewIndex()
	x.Add("", "faq", faqText)

	chunks, _ := x.Search(context.Background(), "cancel plan", Options{Threshold: 0.7})
	result := Format("cancel plan", chunks)
	if len(result.Results) != 1 || result.Message != "" {
		t.Fatalf("unexpected payload: %+v", result)
	}
}
