package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := GormConfig(zap.NewNop())
	cfg.DisableAutomaticPing = true
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	require.NoError(t, err)
	return db, mock
}

func TestPing(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, Ping(context.Background(), db))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormConfigTranslatesErrors(t *testing.T) {
	cfg := GormConfig(zap.NewNop())
	assert.True(t, cfg.TranslateError)
	assert.NotNil(t, cfg.Logger)
}
