// Package testutil holds shared helpers for package tests.
package testutil

import (
	"testing"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB returns an isolated in-memory SQLite database with the Warbler schema.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		DBSQLitePath: ":memory:",
		DBSchemaMode: database.SchemaModeAuto,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser inserts a user with the given id and username. The password column
// holds a placeholder digest; tests that authenticate should go through the service.
func CreateUser(t *testing.T, db *gorm.DB, id uint, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Password: "$2a$04$placeholderplaceholderplaceholderplaceholderplaceh",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateMessage inserts a message authored by userID.
func CreateMessage(t *testing.T, db *gorm.DB, id, userID uint, text string) *models.Message {
	t.Helper()
	msg := &models.Message{ID: id, UserID: userID, Text: text}
	require.NoError(t, db.Omit("User").Create(msg).Error)
	return msg
}
