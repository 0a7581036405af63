package config

import (
	"log"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/core/domain"
	"bibliotrack/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	if s.cfg.IsDev() {
		if err := s.seedSampleBooks(); err != nil {
			log.Printf("⚠️ Sample book seeder skipped: %v", err)
		}
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser creates the bootstrap admin when no admin exists yet.
// Credentials come from ADMIN_USERNAME / ADMIN_EMAIL / ADMIN_PASSWORD.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash(s.cfg.Admin.Password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: s.cfg.Admin.Username,
		Email:    s.cfg.Admin.Email,
		Password: hashedPassword,
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedSampleBooks fills an empty catalog with a few titles.
// Development mode only.
func (s *Seeder) seedSampleBooks() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil // Catalog already populated
	}

	books := []models.Book{
		{
			Title:           "The Go Programming Language",
			Author:          "Alan A. A. Donovan",
			ISBN:            "978-0134190440",
			Publisher:       "Addison-Wesley",
			PublicationYear: 2015,
			Category:        "Programming",
			Description:     "The authoritative resource to writing clear and idiomatic Go.",
			TotalCopies:     3,
			AvailableCopies: 3,
			IsActive:        true,
			CreatedBy:       s.cfg.Admin.Username,
		},
		{
			Title:           "Designing Data-Intensive Applications",
			Author:          "Martin Kleppmann",
			ISBN:            "978-1449373320",
			Publisher:       "O'Reilly Media",
			PublicationYear: 2017,
			Category:        "Databases",
			Description:     "The big ideas behind reliable, scalable, and maintainable systems.",
			TotalCopies:     2,
			AvailableCopies: 2,
			IsActive:        true,
			CreatedBy:       s.cfg.Admin.Username,
		},
		{
			Title:           "The Mythical Man-Month",
			Author:          "Frederick P. Brooks Jr.",
			ISBN:            "978-0201835953",
			Publisher:       "Addison-Wesley",
			PublicationYear: 1995,
			Category:        "Software Engineering",
			Description:     "Essays on software engineering and project management.",
			TotalCopies:     1,
			AvailableCopies: 1,
			IsActive:        true,
			CreatedBy:       s.cfg.Admin.Username,
		},
	}

	for _, book := range books {
		b := book
		if err := s.db.Create(&b).Error; err != nil {
			return err
		}
		log.Printf("   Created book: %s", b.Title)
	}

	return nil
}
