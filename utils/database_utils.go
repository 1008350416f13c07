// Shared postgres helpers. Only connection and schema management belongs
// here, queries live with the store that owns the table.
package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Luismorlan/honeybee/model"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultMaxOpenConns = 5
	connMaxLifetime     = 30 * time.Minute
)

// GetDBConnection connects to the database named by DB_NAME.
func GetDBConnection() (*gorm.DB, error) {
	return GetCustomizedConnection(os.Getenv("DB_NAME"))
}

// GetCustomizedConnection connects to dbName on the server described by
// DB_HOST, DB_PORT, DB_USER, DB_PASS and DB_SSLMODE.
func GetCustomizedConnection(dbName string) (*gorm.DB, error) {
	if dbName == "" {
		return nil, errors.New("database name is empty, set DB_NAME")
	}
	db, err := gorm.Open(postgres.Open(postgresDsn(dbName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns())
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

func postgresDsn(dbName string) string {
	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASS"), dbName, os.Getenv("DB_PORT"), sslMode)
}

func maxOpenConns() int {
	if n, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS")); err == nil && n > 0 {
		return n
	}
	return defaultMaxOpenConns
}

// DatabaseSetupAndMigration creates the tables the collection pipeline owns.
func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(&model.CacheEntry{})
}
