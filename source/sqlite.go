// SQLite-backed sources.
//
// Schema mirrors the production datasets: a companies table ordered by
// ticker and a press_releases table keyed by symbol. Invalid rows
// (missing ticker/name or symbol/title) are filtered at ingestion via the
// record predicates, not propagated for later checks.
package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/themescout/model"
)

// DB opens a SQLite database for the sources. Shared by CompanyDB and
// ReleaseDB so one file can hold both tables.
func DB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	return db, nil
}

// CompanyDB implements CompanyPager over a SQL companies table.
type CompanyDB struct {
	db *sql.DB
}

// NewCompanyDB creates a company source over db.
func NewCompanyDB(db *sql.DB) *CompanyDB {
	return &CompanyDB{db: db}
}

// FetchPage returns one page of companies ordered by ticker plus the
// total count. Rows failing validation are dropped from the page.
func (s *CompanyDB) FetchPage(ctx context.Context, offset, limit int) ([]model.Company, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count companies: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, company_name, COALESCE(company_desc, ''), COALESCE(industry, '')
		FROM companies
		ORDER BY ticker
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.Ticker, &c.CompanyName, &c.CompanyDesc, &c.Industry); err != nil {
			return nil, 0, err
		}
		if c.IsValidRecord() {
			companies = append(companies, c)
		}
	}
	return companies, total, rows.Err()
}

// ReleaseDB implements ReleaseFetcher over a SQL press_releases table.
type ReleaseDB struct {
	db *sql.DB
}

// NewReleaseDB creates a press-release source over db.
func NewReleaseDB(db *sql.DB) *ReleaseDB {
	return &ReleaseDB{db: db}
}

// FetchBySymbol returns up to limit releases for one symbol, newest
// first, plus the total available for that symbol.
func (s *ReleaseDB) FetchBySymbol(ctx context.Context, symbol string, limit int) ([]model.PressRelease, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM press_releases WHERE symbol = ?`, symbol).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count press releases for %s: %w", symbol, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COALESCE(date, ''), title, COALESCE(content, ''), COALESCE(link, '')
		FROM press_releases
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query press releases for %s: %w", symbol, err)
	}
	defer rows.Close()

	var releases []model.PressRelease
	for rows.Next() {
		var r model.PressRelease
		if err := rows.Scan(&r.Symbol, &r.Date, &r.Title, &r.Content, &r.Link); err != nil {
			return nil, 0, err
		}
		if r.IsValidRecord() {
			releases = append(releases, r)
		}
	}
	return releases, total, rows.Err()
}

// CreateSourceSchema creates the source tables if they don't exist.
// Used by tests and local fixtures; production databases are provisioned
// externally.
func CreateSourceSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS companies (
			ticker TEXT PRIMARY KEY,
			company_name TEXT NOT NULL,
			company_desc TEXT,
			industry TEXT
		);

		CREATE TABLE IF NOT EXISTS press_releases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			date TEXT,
			title TEXT NOT NULL,
			content TEXT,
			link TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_press_releases_symbol
		ON press_releases(symbol, date DESC);
	`
	_, err := db.Exec(schema)
	return err
}
