// Package repotest opens throwaway sqlite databases with the full schema for tests.
package repotest

import (
	"fmt"
	"jarvis-backend/internal/config"
	"jarvis-backend/internal/models"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.MigrateAllModels(db, true))
	return db
}

func SeedUser(t testing.TB, db *gorm.DB, username string, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		Role:         models.UserRoleUser,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	if !active {
		// is_active has a column default, so false has to be written explicitly
		require.NoError(t, db.Model(user).Update("is_active", false).Error)
		user.IsActive = false
	}
	return user
}

func SeedChat(t testing.TB, db *gorm.DB, userID uint, title string, language models.Language) *models.Chat {
	t.Helper()
	chat := &models.Chat{UserID: userID, Title: title, Language: language}
	require.NoError(t, db.Create(chat).Error)
	return chat
}

func CountMessages(t testing.TB, db *gorm.DB, chatID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&n).Error)
	return n
}
