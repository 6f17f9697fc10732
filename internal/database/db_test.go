package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(Options{Driver: "sqlite", DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestOpenSQLite(t *testing.T) {
	m := openTestManager(t)
	assert.NotNil(t, m.DB())
	assert.NoError(t, m.Ping(context.Background()))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle", DSN: "x"}, zap.NewNop())
	assert.Error(t, err)
}

func TestManagerClose(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.Close())

	// 关闭后 Ping 失败，重复 Close 是空操作
	assert.Error(t, m.Ping(context.Background()))
	assert.NoError(t, m.Close())
}

func TestWithTransaction(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.DB().Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)").Error)

	err := m.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO kv (k, v) VALUES ('a', '1')").Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, m.DB().Raw("SELECT COUNT(*) FROM kv").Scan(&count).Error)
	assert.Equal(t, int64(1), count)

	// 回滚
	boom := errors.New("boom")
	err = m.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO kv (k, v) VALUES ('b', '2')").Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, m.DB().Raw("SELECT COUNT(*) FROM kv").Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTransactionRetry_NonRetryable(t *testing.T) {
	m := openTestManager(t)

	calls := 0
	err := m.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		calls++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithTransactionRetry_Retryable(t *testing.T) {
	m := openTestManager(t)

	calls := 0
	err := m.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		calls++
		if calls < 2 {
			return errors.New("deadlock detected")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.True(t, isRetryableError(errors.New("deadlock detected")))
	assert.True(t, isRetryableError(errors.New("serialization failure")))
	assert.True(t, isRetryableError(errors.New("SQLSTATE 40001")))
	assert.True(t, isRetryableError(errors.New("connection reset by peer")))
	assert.True(t, isRetryableError(errors.New("driver: bad connection")))
	assert.False(t, isRetryableError(errors.New("unique constraint violation")))
}
