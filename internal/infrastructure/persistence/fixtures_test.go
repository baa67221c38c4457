package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gadgetSpecs struct {
	Weight int      `json:"weight" validate:"gte=0"`
	Tags   []string `json:"tags,omitempty"`
}

type gadget struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"not null"`
	Color string `gorm:"default:'grey'"`
	Notes *string
	Specs JSON[gadgetSpecs]
	Parts []part `gorm:"foreignKey:GadgetID"`
	BaseMapping
}

type part struct {
	ID       uint `gorm:"primaryKey"`
	GadgetID uint
	Label    string `gorm:"not null"`
}

type membership struct {
	UserID  uint   `gorm:"primaryKey;autoIncrement:false"`
	GroupID string `gorm:"primaryKey"`
	Role    string `gorm:"not null"`
}

// newSQLite opens an in-memory database pinned to one connection.
func newSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.DB.AutoMigrate(&gadget{}, &part{}, &membership{}))
	return d.DB
}

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	d, err := Open(newMockDialector(mockDB))
	require.NoError(t, err)
	return d, mock, mockDB
}

func newMockDialector(conn *sql.DB) gorm.Dialector {
	return postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	})
}
