package source

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := CreateSourceSchema(db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

func seedCompanies(t *testing.T, db *sql.DB) {
	t.Helper()
	rows := [][4]string{
		{"AMD", "Advanced Micro Devices", "CPUs and GPUs", "Semiconductors"},
		{"NVDA", "NVIDIA Corporation", "GPU maker", "Semiconductors"},
		{"TSM", "Taiwan Semiconductor", "Foundry", "Semiconductors"},
		{"ZZZZ", "", "missing name, should be filtered", ""},
	}
	for _, r := range rows {
		_, err := db.Exec(
			`INSERT INTO companies (ticker, company_name, company_desc, industry) VALUES (?, ?, ?, ?)`,
			r[0], r[1], r[2], r[3])
		if err != nil {
			t.Fatalf("failed to seed company %s: %v", r[0], err)
		}
	}
}

func TestCompanyDBFetchPage(t *testing.T) {
	db := openTestDB(t)
	seedCompanies(t, db)
	src := NewCompanyDB(db)
	ctx := context.Background()

	companies, total, err := src.FetchPage(ctx, 0, 2)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if total != 4 {
		t.Errorf("expected total 4, got %d", total)
	}
	if len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(companies))
	}
	// Ordered by ticker.
	if companies[0].Ticker != "AMD" || companies[1].Ticker != "NVDA" {
		t.Errorf("unexpected page order: %v", companies)
	}
}

func TestCompanyDBFiltersInvalidRows(t *testing.T) {
	db := openTestDB(t)
	seedCompanies(t, db)
	src := NewCompanyDB(db)

	companies, _, err := src.FetchPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	for _, c := range companies {
		if !c.IsValidRecord() {
			t.Errorf("invalid record leaked through: %+v", c)
		}
	}
	if len(companies) != 3 {
		t.Errorf("expected 3 valid companies, got %d", len(companies))
	}
}

func TestReleaseDBFetchBySymbol(t *testing.T) {
	db := openTestDB(t)
	releases := []struct {
		symbol, date, title string
	}{
		{"NVDA", "2025-06-01", "New accelerator line announced"},
		{"NVDA", "2025-05-01", "Data center partnership"},
		{"AMD", "2025-04-01", "Roadmap update"},
	}
	for _, r := range releases {
		_, err := db.Exec(
			`INSERT INTO press_releases (symbol, date, title, content, link) VALUES (?, ?, ?, 'body', 'https://example.com')`,
			r.symbol, r.date, r.title)
		if err != nil {
			t.Fatalf("failed to seed release: %v", err)
		}
	}

	src := NewReleaseDB(db)
	got, total, err := src.FetchBySymbol(context.Background(), "NVDA", 10)
	if err != nil {
		t.Fatalf("FetchBySymbol failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2 for NVDA, got %d", total)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(got))
	}
	// Newest first.
	if got[0].Date != "2025-06-01" {
		t.Errorf("expected newest release first, got %s", got[0].Date)
	}
}

func TestContentDBFetch(t *testing.T) {
	db := openTestDB(t)
	if err := CreateContentSchema(db); err != nil {
		t.Fatalf("failed to create content schema: %v", err)
	}

	_, err := db.Exec(`INSERT INTO content_summaries (product, summary) VALUES ('workers ai', 'Serverless inference at the edge')`)
	if err != nil {
		t.Fatalf("failed to seed summary: %v", err)
	}
	_, err = db.Exec(`INSERT INTO posts (products, text) VALUES ('workers ai', 'used workers ai for a side project, latency is great')`)
	if err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}

	src := NewContentDB(db)
	ctx := context.Background()

	marketing, err := src.FetchMarketing(ctx, "Workers AI")
	if err != nil {
		t.Fatalf("FetchMarketing failed: %v", err)
	}
	if len(marketing) != 1 {
		t.Errorf("expected 1 marketing text, got %d", len(marketing))
	}

	social, err := src.FetchSocial(ctx, "Workers AI", 10)
	if err != nil {
		t.Fatalf("FetchSocial failed: %v", err)
	}
	if len(social) != 1 {
		t.Errorf("expected 1 social text, got %d", len(social))
	}
}
