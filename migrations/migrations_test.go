package migrations

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSortsByName(t *testing.T) {
	source := fstest.MapFS{
		"002_b.sql":  {Data: []byte("SELECT 2")},
		"001_a.sql":  {Data: []byte("SELECT 1")},
		"README.txt": {Data: []byte("ignored")},
	}

	migs, err := Load(source)
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, "001_a", migs[0].Version)
	assert.Equal(t, "SELECT 1", migs[0].SQL)
	assert.Equal(t, "002_b", migs[1].Version)
}

func TestEmbeddedSchema(t *testing.T) {
	migs, err := Load(files)
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, "001_init", migs[0].Version)
	assert.Contains(t, migs[0].SQL, "CHECK (is_verified = (upload_source = 'doctor'))")
	assert.Contains(t, migs[0].SQL, "token_hash  CHAR(64) NOT NULL UNIQUE")
}

func TestUpSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := &Migrator{
		db: sqlx.NewDb(db, "postgres"),
		source: fstest.MapFS{
			"001_a.sql": {Data: []byte("CREATE TABLE a (id INT)")},
			"002_b.sql": {Data: []byte("CREATE TABLE b (id INT)")},
		},
		logger: zerolog.Nop(),
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow("001_a", time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"002_b"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
