package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE scan_records (id TEXT PRIMARY KEY, bib TEXT NOT NULL, scan_time DATETIME)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "scan_records")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	colMap := make(map[string]ColumnInfo)
	for _, col := range columns {
		colMap[col.Field] = col
	}

	assert.Equal(t, "text", colMap["id"].Type)
	assert.Equal(t, "PRI", colMap["id"].Key)
	assert.Equal(t, "NO", colMap["bib"].Null)
	assert.Equal(t, "datetime", colMap["scan_time"].Type)

	// PRAGMA table_info returns nothing for a missing table
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestGetTableColumns_RejectsInjection(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	_, err = GetTableColumns(db, "runners'; DROP TABLE runners; --")
	assert.ErrorContains(t, err, "invalid table name")
}

func TestGetTableColumns_MySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("ID", "VARCHAR(36)", "NO", "PRI", nil, "").
		AddRow("Bib", "VARCHAR(32)", "NO", "", nil, "")
	mock.ExpectQuery("SHOW COLUMNS FROM `runners`").WillReturnRows(rows)

	cols, err := GetTableColumns(db, "runners")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Field)
	assert.Equal(t, "varchar(36)", cols[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE checkpoints (id TEXT, name TEXT)").Error)

	missing, err := MissingColumns(db, "checkpoints", []string{"id", "name", "cutoff_time"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cutoff_time"}, missing)
}
