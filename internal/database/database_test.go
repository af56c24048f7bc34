package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-alert-relay/internal/models"
)

func TestNewDatabase(t *testing.T) {
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.ThreadPost{PostID: "1", Text: "hello", Seq: 0}).Error)

	var count int64
	require.NoError(t, db.Model(&models.ThreadPost{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	t.Run("AutoMigrateEmptiesIndex", func(t *testing.T) {
		require.NoError(t, AutoMigrate(db))
		require.NoError(t, db.Model(&models.ThreadPost{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}
