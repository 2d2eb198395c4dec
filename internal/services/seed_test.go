package services

import (
	"testing"

	"claimtrace/internal/models"
)

func TestSeedTrackedAccounts(t *testing.T) {
	db := setupTestDB(t)
	service := NewSeedService(db)

	inserted, err := service.SeedTrackedAccounts()
	if err != nil {
		t.Fatalf("SeedTrackedAccounts failed: %v", err)
	}
	if inserted == 0 {
		t.Fatal("Expected seed accounts to be inserted")
	}

	var account models.TrackedAccount
	if err := db.Where("account = ?", "OSINTdefender").First(&account).Error; err != nil {
		t.Fatalf("Expected OSINTdefender to be seeded: %v", err)
	}
	if account.Tier != models.TierOSINT {
		t.Errorf("Expected tier %s, got %s", models.TierOSINT, account.Tier)
	}
	if !account.IsActive {
		t.Error("Seeded accounts start active")
	}
}

func TestSeedTrackedAccountsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewSeedService(db)

	first, err := service.SeedTrackedAccounts()
	if err != nil {
		t.Fatalf("SeedTrackedAccounts failed: %v", err)
	}
	second, err := service.SeedTrackedAccounts()
	if err != nil {
		t.Fatalf("SeedTrackedAccounts retry failed: %v", err)
	}

	if second != 0 {
		t.Errorf("Second seeding run must insert nothing, got %d", second)
	}

	var count int64
	db.Model(&models.TrackedAccount{}).Count(&count)
	if count != int64(first) {
		t.Errorf("Expected %d tracked accounts, got %d", first, count)
	}
}
