package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/config"
	"github.com/rakshaapp/raksha-api/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load config
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// Common PIN for all demo users
	pin := "1234"
	hashedPin, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash PIN: %v", err)
	}

	log.Println("🌱 Seeding 5 demo users...")

	var seeded []model.User
	for i := 1; i <= 5; i++ {
		phone := fmt.Sprintf("90000000%02d", i)

		// Check if exists
		var existing model.User
		if err := db.Where("phone = ?", phone).First(&existing).Error; err == nil {
			seeded = append(seeded, existing)
			continue
		}

		now := time.Now()
		user := model.User{
			ID:              uuid.New(),
			Name:            fmt.Sprintf("Demo User %d", i),
			Phone:           phone,
			PinHash:         string(hashedPin),
			PhoneVerifiedAt: &now, // Verified immediately
			EmergencyContacts: []model.EmergencyContact{
				{Position: 0, Name: fmt.Sprintf("Contact A of %d", i), Phone: fmt.Sprintf("91000000%02d", i)},
				{Position: 1, Name: fmt.Sprintf("Contact B of %d", i), Phone: fmt.Sprintf("92000000%02d", i)},
			},
		}

		if err := db.Create(&user).Error; err != nil {
			log.Printf("❌ Failed to create user %s: %v", phone, err)
		} else {
			log.Printf("✅ Created user: %s | Phone: %s | PIN: %s", user.Name, phone, pin)
			seeded = append(seeded, user)
		}
	}

	// Arm Guardian Mode for the first demo user so the classify path works
	// out of the box
	seedGuardianMode(db, seeded)

	log.Println("🎉 Seeding completed!")
}

func seedGuardianMode(db *gorm.DB, users []model.User) {
	if len(users) == 0 {
		return
	}
	owner := users[0]

	var count int64
	db.Model(&model.GuardianLog{}).Where("user_id = ?", owner.ID).Count(&count)
	if count > 0 {
		return
	}

	now := time.Now()
	glog := model.GuardianLog{
		UserID:      owner.ID,
		IsActive:    true,
		ActivatedAt: &now,
	}
	if err := db.Create(&glog).Error; err != nil {
		log.Printf("❌ Failed to arm guardian mode: %v", err)
		return
	}
	log.Printf("🛡️ Guardian Mode armed for %s (%s)", owner.Name, owner.Phone)
}
