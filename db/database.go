package db

import (
	"fmt"
	"log"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Xmanuel01/Viralclips/models"
)

// InitDB opens the Postgres connection and migrates the schema. When a Cloud
// SQL instance is configured the connection goes through the cloudsqlpostgres
// dialer instead of a direct socket.
func InitDB(dsn, cloudSQLInstance string) (*gorm.DB, error) {
	cfg := postgres.Config{DSN: dsn}
	if cloudSQLInstance != "" {
		cfg.DriverName = "cloudsqlpostgres"
		cfg.DSN = fmt.Sprintf("host=%s %s", cloudSQLInstance, dsn)
	}

	gormDB, err := gorm.Open(postgres.New(cfg), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gormDB.AutoMigrate(
		&models.Video{},
		&models.Transcript{},
		&models.Highlight{},
		&models.Clip{},
		&models.Job{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("Database connection established")
	return gormDB, nil
}
