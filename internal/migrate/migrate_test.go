package migrate

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0002_add_index.sql":     {Data: []byte("CREATE INDEX venues_live_idx ON venues (live);")},
		"0001_create_venues.sql": {Data: []byte("CREATE TABLE venues (id TEXT PRIMARY KEY);")},
		"0003_empty.sql":         {Data: []byte("  \n")},
		"README.md":              {Data: []byte("not a migration")},
	}
}

func newMockRunner(t *testing.T, files fstest.MapFS) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, files), mock
}

func TestFilesSortedAndFiltered(t *testing.T) {
	r, _ := newMockRunner(t, testFiles())
	files, err := r.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := "0001_create_venues.sql,0002_add_index.sql,0003_empty.sql"
	if got := strings.Join(files, ","); got != want {
		t.Fatalf("files = %s, want %s", got, want)
	}
}

func TestUpAppliesPendingOnly(t *testing.T) {
	r, mock := newMockRunner(t, testFiles())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(appliedSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"filename"}).AddRow("0001_create_venues.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX venues_live_idx")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(recordSQL)).
		WithArgs("0002_add_index.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := r.Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if strings.Join(res.Applied, ",") != "0002_add_index.sql" {
		t.Fatalf("applied = %v", res.Applied)
	}
	if strings.Join(res.Skipped, ",") != "0003_empty.sql" {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpRollsBackFailedMigration(t *testing.T) {
	r, mock := newMockRunner(t, testFiles())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(appliedSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"filename"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE venues")).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	res, err := r.Up(context.Background())
	if err == nil || !strings.Contains(err.Error(), "0001_create_venues.sql") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
	if len(res.Applied) != 0 {
		t.Fatalf("nothing should be applied, got %v", res.Applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpNothingPending(t *testing.T) {
	files := fstest.MapFS{"0001_create_venues.sql": {Data: []byte("SELECT 1;")}}
	r, mock := newMockRunner(t, files)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(appliedSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"filename"}).AddRow("0001_create_venues.sql"))

	res, err := r.Up(context.Background())
	if err != nil || len(res.Applied) != 0 {
		t.Fatalf("Up = %+v, %v", res, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
