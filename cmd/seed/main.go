package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"institut/internal/database"
	"institut/internal/domain"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "institut.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM notification_events")
	db.Exec("DELETE FROM referrals")
	db.Exec("DELETE FROM loyalty_profiles")
	db.Exec("DELETE FROM reservations")
	db.Exec("DELETE FROM discounts")
	db.Exec("DELETE FROM gift_cards")
	db.Exec("DELETE FROM blocked_slots")
	db.Exec("DELETE FROM working_hours")
	db.Exec("DELETE FROM services")
	db.Exec("DELETE FROM users")

	// ================== USERS ==================
	log.Println("Creating users...")

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := domain.User{
		Email:         "admin@institut.fr",
		PasswordHash:  string(adminHash),
		Role:          domain.RoleAdmin,
		Name:          "Administration",
		EmailVerified: true,
	}
	db.Create(&admin)
	log.Println("Admin created: admin@institut.fr / admin123")

	clients := []domain.User{}
	clientNames := []string{"Laia", "Camille", "Nour"}
	for i, name := range clientNames {
		hash, _ := bcrypt.GenerateFromPassword([]byte("client123"), bcrypt.DefaultCost)
		client := domain.User{
			Email:         fmt.Sprintf("%s@mail.fr", name),
			PasswordHash:  string(hash),
			Role:          domain.RoleClient,
			Name:          name,
			Phone:         fmt.Sprintf("+33 6 12 34 56 %02d", 70+i),
			EmailVerified: true,
		}
		db.Create(&client)
		clients = append(clients, client)
	}

	// ================== WORKING HOURS ==================
	log.Println("Creating working hours...")

	// closed Sunday and Monday, open Tuesday-Saturday
	for weekday := 0; weekday <= 6; weekday++ {
		wh := domain.WorkingHours{
			Weekday:   weekday,
			IsOpen:    weekday >= 2,
			StartTime: "09:00",
			EndTime:   "18:00",
		}
		if weekday == 6 {
			wh.EndTime = "16:00"
		}
		db.Create(&wh)
	}

	// ================== SERVICES ==================
	log.Println("Creating service catalog...")

	services := []domain.Service{
		{Name: "Soin visage classique", Price: 55, Kind: domain.ServiceIndividual, DurationMinutes: 60, IsActive: true},
		{Name: "Soin visage premium", Price: 85, Kind: domain.ServiceIndividual, DurationMinutes: 90, IsActive: true},
		{Name: "Manucure", Price: 35, Kind: domain.ServiceIndividual, DurationMinutes: 45, IsActive: true},
		{Name: "Pedicure", Price: 40, Kind: domain.ServiceIndividual, DurationMinutes: 45, IsActive: true},
		{Name: "Epilation jambes", Price: 45, Kind: domain.ServiceIndividual, DurationMinutes: 30, IsActive: true},
		{Name: "Massage relaxant", Price: 70, Kind: domain.ServiceIndividual, DurationMinutes: 60, IsActive: true},
		{Name: "Cure 5 soins visage", Price: 240, Kind: domain.ServicePackage, DurationMinutes: 60, IsActive: true},
		{Name: "Cure 10 massages", Price: 600, Kind: domain.ServicePackage, DurationMinutes: 60, IsActive: true},
	}
	for i := range services {
		db.Create(&services[i])
	}

	// ================== GIFT CARDS ==================
	log.Println("Creating sample gift cards...")

	expiry := time.Now().AddDate(1, 0, 0)
	cards := []domain.GiftCard{
		{
			Code:          "DEMO-CARD-0100",
			InitialAmount: 100,
			Balance:       100,
			Status:        domain.GiftCardActive,
			ExpiryDate:    expiry,
			PurchaserID:   &clients[0].ID,
			PurchasedFor:  clients[1].Name,
		},
		{
			Code:          "DEMO-CARD-0050",
			InitialAmount: 50,
			Balance:       50,
			Status:        domain.GiftCardActive,
			ExpiryDate:    expiry,
			PurchaserID:   &clients[1].ID,
		},
	}
	for i := range cards {
		db.Create(&cards[i])
	}

	// ================== DISCOUNTS ==================
	log.Println("Creating sample discounts...")

	discountExpiry := time.Now().AddDate(0, 3, 0)
	discounts := []domain.Discount{
		{
			UserID:    clients[0].ID,
			Type:      domain.DiscountManual,
			Amount:    20,
			Status:    domain.DiscountAvailable,
			ExpiresAt: &discountExpiry,
		},
		{
			UserID: clients[2].ID,
			Type:   domain.DiscountReferralSponsor,
			Amount: domain.DefaultReferralReward,
			Status: domain.DiscountPending,
		},
	}
	for i := range discounts {
		db.Create(&discounts[i])
	}

	log.Println("Seed complete.")
}
