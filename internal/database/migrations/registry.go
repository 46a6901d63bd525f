package migrations

import (
	"github.com/jmylchreest/streamsift/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order.
// - 001: job history table
func AllMigrations() []Migration {
	return []Migration{
		migration001JobRecords(),
	}
}

func migration001JobRecords() Migration {
	return Migration{
		Version:     "001",
		Description: "Create job history table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.JobRecord{})
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&models.JobRecord{})
		},
	}
}
