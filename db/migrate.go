package db

import (
	"fmt"

	"github.com/mementolabs/dosetrack/db/models"
	"gorm.io/gorm"
)

func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.User{},
		&models.Experience{},
		&models.Consumption{},
		&models.Drug{},
		&models.Method{},
		&models.Media{},
	)
}
