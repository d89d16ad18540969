package seeders

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"wushuacademy_go/models"
	"wushuacademy_go/utils"
)

// SeedAdminUsers creates the default back-office accounts when none exist.
// Passwords must be rotated after first login.
func SeedAdminUsers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.AdminUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		username string
		email    string
		role     string
		password string
	}{
		{"owner", "owner@wushusportacademy.com", "owner", "owner123!"},
		{"admin", "admin@wushusportacademy.com", "admin", "admin123!"},
	}

	for _, d := range defaults {
		hashed, err := utils.HashPassword(d.password)
		if err != nil {
			return err
		}
		user := models.AdminUser{
			Username: d.username,
			Email:    d.email,
			Role:     d.role,
			Password: hashed,
			Active:   true,
		}
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
		log.Printf("Seeded admin account %q (role=%s) - change the default password", d.username, d.role)
	}
	return nil
}
