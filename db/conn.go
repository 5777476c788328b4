// Package db opens the database connection used by the credential
// store and the upload ledger
package db

import (
	"clouddrop/file-api/model"
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dial gorm.Dialector

	switch viper.GetString("database.driver") {
	case "postgres":
		// The timeout bounds connection establishment so a dead
		// database fails startup instead of hanging it
		dsn := fmt.Sprintf("%s connect_timeout=%d",
			viper.GetString("database.dsn"),
			viper.GetInt("database.connect_timeout"),
		)
		dial = postgres.Open(dsn)
	default:
		dial = sqlite.Open(viper.GetString("database.path"))
	}

	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.Upload{}, model.Stats{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
