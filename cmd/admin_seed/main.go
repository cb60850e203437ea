package main

import (
	"context"
	"log"
	"os"

	"chamapesa/internal/config"
	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// Seeds the bootstrap admin account and, when SEED_DEMO_CHAMA is set,
// a demo chama with default policy for local development.
func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")

	if adminEmail == "" || adminPassword == "" || adminPhone == "" {
		log.Fatal("ADMIN_EMAIL, ADMIN_PASSWORD, and ADMIN_PHONE must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer func() {
		if repositories.DB != nil {
			if sqlDB, err := repositories.DB.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Printf("Failed to close PostgreSQL connection: %v", err)
				}
			}
		}
		if repositories.RedisClient != nil {
			if err := repositories.RedisClient.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	var existingAdmin models.User
	result := repositories.DB.Where("email = ?", adminEmail).First(&existingAdmin)
	if result.Error == nil {
		log.Println("Admin user already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	adminUser := models.User{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		Phone:        adminPhone,
		FirstName:    "System",
		LastName:     "Admin",
		Role:         models.RoleAdmin,
		IsVerified:   true,
		TokenVersion: 1,
	}

	if err := repositories.DB.Create(&adminUser).Error; err != nil {
		log.Fatal("Failed to create admin user:", err)
	}
	log.Println("Admin account created successfully")

	if os.Getenv("SEED_DEMO_CHAMA") == "" {
		return
	}

	demo := models.Chama{
		Name:                  "Umoja Savings Group",
		Description:           "Demo chama for local development",
		ContributionAmount:    models.MoneyFromShillings(1000),
		ContributionFrequency: models.FrequencyMonthly,
		LatePaymentPenalty:    models.MoneyFromShillings(50),
		LoanInterestRate:      models.Percent(10),
		MaxMembers:            30,
		MinGuarantors:         2,
		CompletionThreshold:   models.DefaultCompletionThreshold,
		PayoutRatio:           models.DefaultPayoutRatio,
		Status:                models.ChamaStatusActive,
		CreatedByID:           adminUser.ID,
	}
	if err := repositories.DB.Create(&demo).Error; err != nil {
		log.Fatal("Failed to create demo chama:", err)
	}

	if repositories.CacheService != nil {
		_ = repositories.CacheService.InvalidateChama(context.Background(), demo.ID)
	}

	log.Println("Demo chama seeded successfully")
}
