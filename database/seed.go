package database

import (
	"log"
	"os"

	"gorm.io/gorm"

	"civicdesk-backend/models"
)

// Seed inserts the baseline nomenclature and, when ADMIN_EMAIL/ADMIN_PASSWORD
// are set, a first admin account. Safe to run on every start.
func Seed(db *gorm.DB) {
	seedLookups(db)
	seedAdmin(db)
}

func seedLookups(db *gorm.DB) {
	var n int64
	db.Model(&models.RequestType{}).Count(&n)
	if n > 0 {
		return
	}
	for _, name := range []string{"Complaint", "Proposal", "Gratitude", "Inquiry"} {
		db.Create(&models.RequestType{Name: name, Active: true})
	}
	for _, name := range []string{"Housing", "Utilities", "Transport", "Healthcare", "Education", "Other"} {
		db.Create(&models.Topic{Name: name, Active: true})
	}
	for _, name := range []string{"None", "Pensioner", "Veteran", "Large family", "Disability"} {
		db.Create(&models.SocialGroup{Name: name, Active: true})
	}
	for _, name := range []string{"Personal visit", "Written", "Email", "Phone", "Web portal"} {
		db.Create(&models.IntakeForm{Name: name, Active: true})
	}
	log.Println("database: seeded nomenclature tables")
}

func seedAdmin(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	var n int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&n)
	if n > 0 {
		return
	}
	admin := models.User{
		FirstName: "System",
		LastName:  "Administrator",
		Email:     email,
		Role:      models.RoleAdmin,
		Active:    true,
	}
	admin.SetPassword(password)
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("database: could not seed admin account: %v", err)
		return
	}
	log.Printf("database: seeded admin account %s", email)
}
