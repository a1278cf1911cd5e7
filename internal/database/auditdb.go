package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seoaudit/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "seoaudit.db"

// timeLayout is used for every stored timestamp so that lexical order
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNotFound is returned when no audit matches a lookup.
	ErrNotFound = errors.New("audit not found")

	// ErrAmbiguousID is returned when an ID prefix matches more than one audit.
	ErrAmbiguousID = errors.New("audit id prefix is ambiguous")
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// AuditDB stores completed audits and per-page snapshots in SQLite.
// Each audit is kept as a JSON document next to the columns that history
// listings and trend queries need.
type AuditDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that the server can read
	// history while an audit is being saved.
	EnableWAL bool

	// Logger receives migration progress. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the audit database in dbDir and applies pending
// schema migrations.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	return OpenContext(context.Background(), dbDir, opts)
}

// OpenContext is Open with a context for the migration run.
func OpenContext(ctx context.Context, dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := migrate(ctx, db, opts.Logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &AuditDB{db: db, dbPath: dbPath}, nil
}

// migrate brings the schema up to date with the embedded migrations.
func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if logger != nil {
		for _, r := range results {
			logger.Debug("applied migration",
				"version", r.Source.Version,
				"duration", r.Duration,
			)
		}
	}
	return nil
}

// Path returns the path of the database file.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// SaveAudit stores audit and its page snapshots. Saving an audit with an
// existing ID replaces the previous record.
func (adb *AuditDB) SaveAudit(ctx context.Context, audit *model.Audit) error {
	if audit == nil {
		return errors.New("cannot save nil audit")
	}

	auditJSON, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("failed to serialize audit: %w", err)
	}

	brief := audit.Brief()
	id := audit.ID.String()

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_snapshots WHERE audit_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear page snapshots: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO audits (
		id, host, start_url, started_at, finished_at,
		scored, overall, metadata, content, technical,
		pages_count, failed_count, error, audit_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		id,
		brief.Host,
		brief.StartURL,
		formatTime(brief.StartedAt),
		nullTime(brief.FinishedAt),
		brief.Scored,
		brief.Overall,
		brief.Categories.Metadata,
		brief.Categories.Content,
		brief.Categories.Technical,
		brief.PagesCount,
		brief.FailedCount,
		nullString(brief.Error),
		string(auditJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO page_snapshots (
		audit_id, url, title_status, meta_status, h1_count, word_count,
		missing_alt, fcp_ms, full_load_ms, unused_js_percent, js_errors
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range audit.Pages {
		s := snapshotOf(audit, p)
		_, err := stmt.ExecContext(ctx,
			id,
			s.URL,
			s.TitleStatus,
			s.MetaStatus,
			s.H1Count,
			s.WordCount,
			s.MissingAlt,
			nullInt(s.FCP),
			nullInt(s.FullLoad),
			nullInt(s.UnusedJSPercent),
			s.JSErrors,
		)
		if err != nil {
			return fmt.Errorf("failed to save page snapshot for %s: %w", p.Analysis.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit: %w", err)
	}
	return nil
}

// GetAudit retrieves an audit by its ID.
func (adb *AuditDB) GetAudit(ctx context.Context, id uuid.UUID) (*model.Audit, error) {
	var auditJSON string
	err := adb.db.QueryRowContext(ctx,
		`SELECT audit_json FROM audits WHERE id = ?`, id.String(),
	).Scan(&auditJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	return decodeAudit(auditJSON)
}

// FindAudit resolves a full ID or a unique ID prefix, as printed by the
// history listing, to an audit.
func (adb *AuditDB) FindAudit(ctx context.Context, idOrPrefix string) (*model.Audit, error) {
	prefix := strings.ToLower(strings.TrimSpace(idOrPrefix))
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if id, err := uuid.Parse(prefix); err == nil {
		return adb.GetAudit(ctx, id)
	}

	rows, err := adb.db.QueryContext(ctx,
		`SELECT audit_json FROM audits WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var auditJSON string
		if err := rows.Scan(&auditJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		matches = append(matches, auditJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find audit: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return decodeAudit(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
}

// LatestAudit retrieves the most recent audit of host.
func (adb *AuditDB) LatestAudit(ctx context.Context, host string) (*model.Audit, error) {
	var auditJSON string
	err := adb.db.QueryRowContext(ctx, `
	SELECT audit_json FROM audits
	WHERE host = ?
	ORDER BY started_at DESC
	LIMIT 1
	`, host).Scan(&auditJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no audits for %s", ErrNotFound, host)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest audit: %w", err)
	}
	return decodeAudit(auditJSON)
}

// ListHosts returns every audited host in alphabetical order.
func (adb *AuditDB) ListHosts(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT host FROM audits ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	hosts := []string{}
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// History returns audit briefs, newest first. An empty host lists every
// host. A limit of zero or less returns all matching audits.
func (adb *AuditDB) History(ctx context.Context, host string, limit int) ([]model.AuditBrief, error) {
	query := `
	SELECT id, host, start_url, started_at, finished_at, scored, overall,
		metadata, content, technical, pages_count, failed_count, error
	FROM audits`
	var args []any
	if host != "" {
		query += ` WHERE host = ?`
		args = append(args, host)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	briefs := []model.AuditBrief{}
	for rows.Next() {
		var (
			b          model.AuditBrief
			id         string
			startedAt  string
			finishedAt sql.NullString
			errMsg     sql.NullString
		)
		if err := rows.Scan(
			&id, &b.Host, &b.StartURL, &startedAt, &finishedAt, &b.Scored, &b.Overall,
			&b.Categories.Metadata, &b.Categories.Content, &b.Categories.Technical,
			&b.PagesCount, &b.FailedCount, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit brief: %w", err)
		}

		b.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid audit id %q: %w", id, err)
		}
		b.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			b.FinishedAt = parseTime(finishedAt.String)
		}
		b.Error = errMsg.String
		briefs = append(briefs, b)
	}
	return briefs, rows.Err()
}

// DeleteAudit removes an audit and its page snapshots.
func (adb *AuditDB) DeleteAudit(ctx context.Context, id uuid.UUID) error {
	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_snapshots WHERE audit_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete page snapshots: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete audit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func decodeAudit(auditJSON string) (*model.Audit, error) {
	var audit model.Audit
	if err := json.Unmarshal([]byte(auditJSON), &audit); err != nil {
		return nil, fmt.Errorf("failed to parse audit: %w", err)
	}
	return &audit, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// parseTime returns the zero time for values that were not written by
// formatTime.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
