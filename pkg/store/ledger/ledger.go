// Package ledger keeps a local history of validation reports in SQLite.
//
// Each recorded report is stored whole, as zstd-compressed JSON, next to the
// columns needed to list runs without decoding bodies.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Mindburn-Labs/cdmcheck/pkg/canonicalize"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/render"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown report ID.
var ErrNotFound = errors.New("ledger: report not found")

// timeLayout sorts lexicographically for UTC times.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is the listing row for one recorded report.
type Entry struct {
	ReportID   string    `json:"report_id"`
	MessageID  string    `json:"message_id"`
	ReportTime time.Time `json:"report_time_utc"`
	OK         bool      `json:"ok"`
	Pass       int       `json:"pass"`
	Warn       int       `json:"warn"`
	Fail       int       `json:"fail"`
	Digest     string    `json:"digest"`
}

// Ledger records reports in a SQL database.
type Ledger struct {
	db *sql.DB
}

// New wraps an open database. Call Init before use.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Open opens (creating if needed) the SQLite ledger at path and initialises it.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	l := New(db)
	if err := l.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init ledger %s: %w", path, err)
	}
	return l, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	report_id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	report_time TEXT NOT NULL,
	ok INTEGER NOT NULL,
	pass INTEGER NOT NULL,
	warn INTEGER NOT NULL,
	fail INTEGER NOT NULL,
	digest TEXT NOT NULL,
	body BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_by_time ON reports (report_time DESC);
`

// Init creates the schema if it does not exist.
func (l *Ledger) Init(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// Record stores report and returns its listing entry.
func (l *Ledger) Record(ctx context.Context, report *conform.Report) (*Entry, error) {
	body, err := render.JSON(report)
	if err != nil {
		return nil, err
	}
	enc, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}

	e := &Entry{
		ReportID:   report.ReportID,
		MessageID:  report.MessageID,
		ReportTime: report.ReportTime.UTC(),
		OK:         report.OK,
		Pass:       report.Summary.Pass,
		Warn:       report.Summary.Warn,
		Fail:       report.Summary.Fail,
		Digest:     canonicalize.HashBytes(body),
	}

	query := `
		INSERT INTO reports (report_id, message_id, report_time, ok, pass, warn, fail, digest, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = l.db.ExecContext(ctx, query,
		e.ReportID, e.MessageID, e.ReportTime.Format(timeLayout), e.OK,
		e.Pass, e.Warn, e.Fail, e.Digest, enc.EncodeAll(body, nil),
	)
	if err != nil {
		return nil, fmt.Errorf("record report %s: %w", e.ReportID, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit lists all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT report_id, message_id, report_time, ok, pass, warn, fail, digest
		FROM reports
		ORDER BY report_time DESC, report_id
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]Entry, 0)
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.ReportID, &e.MessageID, &ts, &e.OK, &e.Pass, &e.Warn, &e.Fail, &e.Digest); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if e.ReportTime, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("report %s time: %w", e.ReportID, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns the full report recorded under reportID.
func (l *Ledger) Get(ctx context.Context, reportID string) (*conform.Report, error) {
	var (
		body   []byte
		digest string
	)
	row := l.db.QueryRowContext(ctx, `SELECT body, digest FROM reports WHERE report_id = ?`, reportID)
	if err := row.Scan(&body, &digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report %s: %w", reportID, err)
	}

	dec, err := decoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	data, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report %s: %w", reportID, err)
	}
	if got := canonicalize.HashBytes(data); got != digest {
		return nil, fmt.Errorf("report %s: digest mismatch (stored %s, computed %s)", reportID, digest, got)
	}
	return render.DecodeJSON(data)
}
