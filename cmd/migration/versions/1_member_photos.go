package versions

import (
	"log"

	"gorm.io/gorm"
)

// Adds photo storage support to existing deployments: members gain a
// photo_url column pointing at the photo download endpoint.
func Migration_1_member_photos(txn *gorm.DB) error {
	log.Println("adding photo_url column to table 'family_members'")

	type FamilyMember struct {
		PhotoUrl string
	}

	if txn.Migrator().HasColumn(&FamilyMember{}, "photo_url") {
		log.Println("column 'photo_url' already exists, skipping")
		return nil
	}

	if err := txn.Migrator().AddColumn(&FamilyMember{}, "PhotoUrl"); err != nil {
		return err
	}

	log.Println("table 'family_members' migration complete")

	return nil
}
