package database

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpenAndSeed(t *testing.T) {
	req := require.New(t)
	db, err := Open(filepath.Join(t.TempDir(), "pos.db"), logger.Silent)
	req.NoError(err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req.NoError(Seed(db, log))
	req.NoError(Seed(db, log), "seeding twice is a no-op")

	var users []models.User
	req.NoError(db.Find(&users).Error)
	req.Len(users, 4)

	var chef models.User
	req.NoError(db.Where("username = ?", "chef").First(&chef).Error)
	req.Equal(models.RoleKitchen, chef.Role)
	req.NoError(auth.CheckPassword(chef.Password, DemoPassword))

	var items int64
	req.NoError(db.Model(&models.InventoryItem{}).Count(&items).Error)
	req.EqualValues(3, items)
}

func TestIsNotFound(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nf.db"), logger.Silent)
	require.NoError(t, err)

	var o models.Order
	err = db.Where("id = ?", "missing").First(&o).Error
	require.True(t, IsNotFound(err))
	require.False(t, IsNotFound(gorm.ErrInvalidData))
}
