package database

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the shared Postgres connection from env. TranslateError is on
// so unique-index violations surface as gorm.ErrDuplicatedKey (the
// notification ledger relies on that).
func Connect() {
	if err := godotenv.Load(); err != nil {
		log.Printf("database: no .env file loaded: %v", err)
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Println(err)
		panic("Could not connect to database")
	}
}
