package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew_InMemory(t *testing.T) {
	db, err := New(":memory:", nil)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
}

func TestDB_Close(t *testing.T) {
	db, err := New(":memory:", nil)
	require.NoError(t, err)

	assert.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestDB_AutoMigrateAndQuery(t *testing.T) {
	db, err := New(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	type probeRow struct {
		ID    uint `gorm:"primarykey"`
		Value string
	}

	require.NoError(t, db.AutoMigrate(&probeRow{}))
	require.NoError(t, db.Create(&probeRow{Value: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&probeRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSlogGormLogger_LogMode(t *testing.T) {
	l := newGormLogger(nil)
	warn := l.LogMode(gormlogger.Warn)
	require.NotNil(t, warn)

	silent := l.LogMode(gormlogger.Silent)
	require.NotNil(t, silent)
}

func TestTruncateSQL(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateSQL(short))

	long := make([]byte, maxSQLLogLength+50)
	for i := range long {
		long[i] = 'x'
	}
	truncated := truncateSQL(string(long))
	assert.Contains(t, truncated, "(truncated)")
	assert.Less(t, len(truncated), len(long))
}
