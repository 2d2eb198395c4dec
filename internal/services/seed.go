package services

import (
	"fmt"
	"log"

	"claimtrace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedAccount is one tracked account definition for initial seeding
type SeedAccount struct {
	Account     string
	Reliability float64
	Notes       string
}

// Initial tracked accounts by tier. The tier and initial reliability feed the
// metrics row created on an account's first observed post.
var seedAccounts = map[string][]SeedAccount{
	models.TierOSINT: {
		{"OSINTdefender", 0.98, "Very fast breaking coverage"},
		{"sentdefender", 0.97, "Rapid breaking news"},
		{"Faytuks", 0.96, "Conflict specialist"},
		{"IntelDoge", 0.95, "Breaking news focus"},
		{"WarMonitors", 0.95, "War monitoring"},
	},
	models.TierOfficial: {
		{"IDF", 0.95, "Official account"},
		{"AJABreaking", 0.90, "Wire-adjacent breaking desk"},
		{"IranIntl_En", 0.82, "Regional English desk"},
	},
	models.TierAmplifier: {
		{"Joyce_Karam", 0.87, "Correspondent"},
		{"IntelCrab", 0.93, "OSINT amplifier"},
	},
}

// SeedService loads initial tracked account configuration
type SeedService struct {
	db *gorm.DB
}

// NewSeedService creates a new seed service
func NewSeedService(db *gorm.DB) *SeedService {
	return &SeedService{db: db}
}

// SeedTrackedAccounts inserts the seed accounts, skipping any that already
// exist. Returns the number of newly inserted rows.
func (s *SeedService) SeedTrackedAccounts() (int, error) {
	inserted := 0
	for tier, accounts := range seedAccounts {
		for _, a := range accounts {
			row := models.TrackedAccount{
				Account:            a.Account,
				Tier:               tier,
				InitialReliability: a.Reliability,
				AddedBy:            "seed",
				IsActive:           true,
				Notes:              a.Notes,
			}
			result := s.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account"}},
				DoNothing: true,
			}).Create(&row)
			if result.Error != nil {
				return inserted, fmt.Errorf("failed to seed account %s: %w", a.Account, result.Error)
			}
			if result.RowsAffected > 0 {
				inserted++
			}
		}
	}

	log.Printf("🌱 Seeded %d tracked accounts", inserted)
	return inserted, nil
}
