package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// PageSnapshot is the per-page subset of an audit kept for trend queries.
// Timing and coverage fields are nil when the page was not profiled.
type PageSnapshot struct {
	AuditedAt       time.Time `json:"audited_at"`
	URL             string    `json:"url"`
	TitleStatus     string    `json:"title_status"`
	MetaStatus      string    `json:"meta_status"`
	H1Count         int       `json:"h1_count"`
	WordCount       int       `json:"word_count"`
	MissingAlt      int       `json:"missing_alt"`
	FCP             *int64    `json:"fcp_ms"`
	FullLoad        *int64    `json:"full_load_ms"`
	UnusedJSPercent *int64    `json:"unused_js_percent"`
	JSErrors        int       `json:"js_errors"`
}

func snapshotOf(audit *model.Audit, p model.PageResult) PageSnapshot {
	s := PageSnapshot{
		AuditedAt:   audit.StartedAt,
		URL:         p.Analysis.URL,
		TitleStatus: p.Analysis.Title.Status.String(),
		MetaStatus:  p.Analysis.MetaDescription.Status.String(),
		H1Count:     p.Analysis.Headings.H1.Count,
		WordCount:   p.Analysis.WordCount,
		MissingAlt:  p.Analysis.Images.MissingAlt,
		JSErrors:    len(p.Technical.JSErrors),
	}
	if perf := p.Technical.Performance; perf != nil {
		fcp, full := perf.FCP, perf.FullLoad
		s.FCP = &fcp
		s.FullLoad = &full
	}
	if cov := p.Technical.Coverage; cov != nil {
		unused := int64(cov.JS.UnusedPercent)
		s.UnusedJSPercent = &unused
	}
	return s
}

// PageTrend returns the snapshots of pageURL across audits, newest first.
// A limit of zero or less returns every snapshot.
func (adb *AuditDB) PageTrend(ctx context.Context, pageURL string, limit int) ([]PageSnapshot, error) {
	query := `
	SELECT a.started_at, p.url, p.title_status, p.meta_status, p.h1_count,
		p.word_count, p.missing_alt, p.fcp_ms, p.full_load_ms,
		p.unused_js_percent, p.js_errors
	FROM page_snapshots p
	JOIN audits a ON a.id = p.audit_id
	WHERE p.url = ?
	ORDER BY a.started_at DESC`
	args := []any{pageURL}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get page trend: %w", err)
	}
	defer rows.Close()

	snapshots := []PageSnapshot{}
	for rows.Next() {
		var (
			s                   PageSnapshot
			auditedAt           string
			fcp, full, unusedJS sql.NullInt64
		)
		if err := rows.Scan(
			&auditedAt, &s.URL, &s.TitleStatus, &s.MetaStatus, &s.H1Count,
			&s.WordCount, &s.MissingAlt, &fcp, &full, &unusedJS, &s.JSErrors,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page snapshot: %w", err)
		}
		s.AuditedAt = parseTime(auditedAt)
		s.FCP = int64Ptr(fcp)
		s.FullLoad = int64Ptr(full)
		s.UnusedJSPercent = int64Ptr(unusedJS)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
