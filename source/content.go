// Content sources for the narrative-comparison pipeline: first-party
// marketing summaries and user-generated social posts, both filtered by
// product name.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ContentDB fetches product-related texts for narrative analysis.
type ContentDB struct {
	db *sql.DB
}

// NewContentDB creates a content source over db.
func NewContentDB(db *sql.DB) *ContentDB {
	return &ContentDB{db: db}
}

// FetchMarketing returns marketing content summaries mentioning product.
func (s *ContentDB) FetchMarketing(ctx context.Context, product string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT summary FROM content_summaries
		WHERE product LIKE ?
	`, "%"+strings.ToLower(product)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query marketing content: %w", err)
	}
	defer rows.Close()
	return collectTexts(rows)
}

// FetchSocial returns up to limit social-media posts mentioning product,
// sampled randomly so repeated runs see different slices of a large corpus.
func (s *ContentDB) FetchSocial(ctx context.Context, product string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text FROM posts
		WHERE products LIKE ?
		ORDER BY RANDOM()
		LIMIT ?
	`, "%"+strings.ToLower(product)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query social posts: %w", err)
	}
	defer rows.Close()
	return collectTexts(rows)
}

func collectTexts(rows *sql.Rows) ([]string, error) {
	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return texts, rows.Err()
}

// CreateContentSchema creates the narrative source tables if absent.
func CreateContentSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS content_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product TEXT NOT NULL,
			summary TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			products TEXT NOT NULL,
			text TEXT NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}
