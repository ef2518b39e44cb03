// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// DocumentFilter selects papers by download state.
type DocumentFilter int

const (
	AnyDocument DocumentFilter = iota
	WithDocument
	WithoutDocument
)

const defaultListLimit = 50

// ListOptions holds filters for ListPapers. Zero values disable a filter.
type ListOptions struct {
	// Category keeps papers carrying this category code.
	Category string

	// Since keeps papers published at or after this time.
	Since time.Time

	// Query keeps papers whose title or abstract contains the text.
	Query string

	// Document filters on whether the document has been downloaded.
	Document DocumentFilter

	// Limit caps the result count. Zero uses 50; negative means no cap.
	Limit int
}

// ListPapers returns stored papers, newest first.
func (s *Store) ListPapers(ctx context.Context, opts ListOptions) ([]types.Paper, error) {
	qb := sq.Select(paperColumns).
		From("papers p").
		OrderBy("p.published_at DESC", "p.external_id ASC")

	if opts.Category != "" {
		qb = qb.Where(sq.Expr(`EXISTS (SELECT 1 FROM json_each(p.categories) WHERE json_each.value = ?)`, opts.Category))
	}
	if !opts.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"p.published_at": formatTime(opts.Since)})
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		qb = qb.Where(sq.Or{
			sq.Expr(`p.title LIKE ? ESCAPE '\'`, like),
			sq.Expr(`p.abstract LIKE ? ESCAPE '\'`, like),
		})
	}
	switch opts.Document {
	case WithDocument:
		qb = qb.Where(sq.NotEq{"p.local_document_path": nil})
	case WithoutDocument:
		qb = qb.Where(sq.Eq{"p.local_document_path": nil})
	}

	limit := opts.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: building list query: %w", types.ErrStore, err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing papers: %w", types.ErrStore, err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning paper: %w", types.ErrStore, err)
		}
		papers = append(papers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing papers: %w", types.ErrStore, err)
	}
	return papers, nil
}

// Previews returns the preview rows stored for a paper, oldest first.
func (s *Store) Previews(ctx context.Context, paperID int64) ([]types.ExtractedContent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, paper_id, kind, payload, created_at FROM extracted_content
		 WHERE paper_id = ? AND kind = ? ORDER BY id`,
		paperID, string(types.ContentPreview))
	if err != nil {
		return nil, fmt.Errorf("%w: reading previews for paper %d: %w", types.ErrStore, paperID, err)
	}
	defer rows.Close()

	var out []types.ExtractedContent
	for rows.Next() {
		var (
			c         types.ExtractedContent
			kind      string
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.PaperID, &kind, &c.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning preview: %w", types.ErrStore, err)
		}
		c.Kind = types.ContentKind(kind)
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrStore, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading previews: %w", types.ErrStore, err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
