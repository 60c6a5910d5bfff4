package ledger

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/cdmcheck/pkg/cdm/cdmtest"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform"
	"github.com/Mindburn-Labs/cdmcheck/pkg/conform/checks"
	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

func newReport(t *testing.T, id string, at time.Time, doc map[string]any) *conform.Report {
	t.Helper()
	e := checks.DefaultEngine().
		WithClock(func() time.Time { return at }).
		WithIDGenerator(func() string { return id })
	report, err := e.Evaluate(context.Background(), cdmtest.ParseLoose(t, doc), rules.Default())
	require.NoError(t, err)
	return report
}

func openMemory(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedger_RoundTrip(t *testing.T) {
	l := openMemory(t)
	ctx := context.Background()

	doc := cdmtest.Set(cdmtest.ValidDocument(), "secondary.frame", "ITRF")
	report := newReport(t, "r-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), doc)

	entry, err := l.Record(ctx, report)
	require.NoError(t, err)
	require.Equal(t, "r-1", entry.ReportID)
	require.False(t, entry.OK)
	require.Equal(t, 1, entry.Fail)
	require.Len(t, entry.Digest, 64)

	got, err := l.Get(ctx, "r-1")
	require.NoError(t, err)
	require.Equal(t, report.Summary, got.Summary)
	require.Equal(t, report.OK, got.OK)
	require.Equal(t, report.MessageID, got.MessageID)
	require.True(t, report.ReportTime.Equal(got.ReportTime))
	require.Len(t, got.Findings, len(report.Findings))
	require.Equal(t, "ITRF", got.FindingsFor(rules.CodeFrameMatch)[0].Details["secondary_frame"])
}

func TestLedger_ListNewestFirst(t *testing.T) {
	l := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := l.Record(ctx, newReport(t, id, base.Add(time.Duration(i)*time.Hour), cdmtest.ValidDocument()))
		require.NoError(t, err)
	}

	entries, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ReportID)
	assert.Equal(t, "a", entries[2].ReportID)
	assert.True(t, entries[0].ReportTime.Equal(base.Add(2*time.Hour)))
	assert.True(t, entries[0].OK)
	assert.Equal(t, 12, entries[0].Pass)

	entries, err = l.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[1].ReportID)
}

func TestLedger_DuplicateID(t *testing.T) {
	l := openMemory(t)
	ctx := context.Background()
	report := newReport(t, "dup", time.Now().UTC(), cdmtest.ValidDocument())

	_, err := l.Record(ctx, report)
	require.NoError(t, err)
	_, err = l.Record(ctx, report)
	require.Error(t, err)
}

func TestLedger_GetNotFound(t *testing.T) {
	l := openMemory(t)
	_, err := l.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_CorruptBody(t *testing.T) {
	l := openMemory(t)
	ctx := context.Background()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, message_id, report_time, ok, pass, warn, fail, digest, body) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"bad", "m", "2026-03-01T00:00:00.000000000Z", true, 0, 0, 0, "x", []byte("not zstd"))
	require.NoError(t, err)

	_, err = l.Get(ctx, "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decompress")
}

func TestLedger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	l, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = l.Record(ctx, newReport(t, "persisted", time.Now().UTC(), cdmtest.ValidDocument()))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	entries, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "persisted", entries[0].ReportID)
}

func TestLedger_InitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reports").WillReturnError(errors.New("read-only"))
	require.Error(t, New(db).Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO reports").WillReturnError(errors.New("disk full"))

	_, err = New(db).Record(context.Background(), newReport(t, "r", time.Now().UTC(), cdmtest.ValidDocument()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "record report r")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_ListErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	l := New(db)

	mock.ExpectQuery("SELECT report_id").WillReturnError(errors.New("locked"))
	_, err = l.List(context.Background(), 0)
	require.Error(t, err)

	rows := sqlmock.NewRows([]string{"report_id", "message_id", "report_time", "ok", "pass", "warn", "fail", "digest"}).
		AddRow("r", "m", "yesterday", true, 1, 0, 0, "d")
	mock.ExpectQuery("SELECT report_id").WillReturnRows(rows)
	_, err = l.List(context.Background(), 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "report r time")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_GetErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	l := New(db)

	mock.ExpectQuery("SELECT body, digest FROM reports").WithArgs("gone").WillReturnError(sql.ErrNoRows)
	_, err = l.Get(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery("SELECT body, digest FROM reports").WithArgs("broken").WillReturnError(errors.New("io"))
	_, err = l.Get(context.Background(), "broken")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
