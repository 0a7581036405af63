package models

import (
	"time"

	"bibliotrack/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Identity & Directory Tables
// ============================================================

// User represents users table
//
// Users are never hard-deleted: deactivation flips is_active and the
// unique indexes keep the username and email reserved forever.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      string    `gorm:"size:20;default:'USER'" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a uuid primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// UserResponse DTO (public projection, never carries the password hash)
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// UserSummary DTO for directory listings
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:       u.ID,
		Username: u.Username,
	}
}

// ============================================================
// Catalog Tables
// ============================================================

// Book represents books table
//
// ISBN carries a plain index only: uniqueness is enforced in the
// application and scoped to active books, so a deactivated record
// never blocks re-registration of the same ISBN.
type Book struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Title           string    `gorm:"size:255;not null;index" json:"title"`
	Author          string    `gorm:"size:255;not null;index" json:"author"`
	ISBN            string    `gorm:"size:20;index" json:"isbn"`
	Publisher       string    `gorm:"size:255" json:"publisher"`
	PublicationYear int       `json:"publication_year"`
	Category        string    `gorm:"size:100;index" json:"category"`
	Description     string    `gorm:"type:text" json:"description"`
	TotalCopies     int       `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int       `gorm:"not null;default:1" json:"available_copies"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedBy       string    `gorm:"size:50" json:"created_by"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// BeforeCreate assigns a uuid primary key
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// IsAvailable reports whether the book can be loaned out right now
func (b *Book) IsAvailable() bool {
	return b.IsActive && b.AvailableCopies > 0
}

// ============================================================
// Loan Ledger Tables
// ============================================================

// Loan represents loans table
//
// BookTitle and BookAuthor are denormalized at creation time and never
// synced with later catalog edits, so the ledger keeps the title as it
// was when the copy left the shelf.
type Loan struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	BookID      string     `gorm:"size:36;not null;index" json:"book_id"`
	UserID      string     `gorm:"size:36;index" json:"user_id"`
	Username    string     `gorm:"size:50;not null;index" json:"username"`
	BookTitle   string     `gorm:"size:255" json:"book_title"`
	BookAuthor  string     `gorm:"size:255" json:"book_author"`
	LoanDate    time.Time  `gorm:"not null" json:"loan_date"`
	DueDate     time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnDate  *time.Time `json:"return_date"`
	Status      string     `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	Notes       string     `gorm:"type:text" json:"notes"`
	ProcessedBy string     `gorm:"size:50" json:"processed_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// BeforeCreate assigns a uuid primary key
func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// IsOutstanding reports whether the loan still holds a copy
func (l *Loan) IsOutstanding() bool {
	return domain.LoanStatus(l.Status).IsOutstanding()
}

// IsPastDue reports whether the due date has passed at the given instant
func (l *Loan) IsPastDue(now time.Time) bool {
	return now.After(l.DueDate)
}

// ============================================================
// Audit Log Tables
// ============================================================

// LogEntry represents log_entries table (append-only)
type LogEntry struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	Level      string    `gorm:"size:20;not null;index" json:"level"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Exception  string    `gorm:"type:text" json:"exception,omitempty"`
	Username   string    `gorm:"size:50;index" json:"username,omitempty"`
	Controller string    `gorm:"size:100" json:"controller,omitempty"`
	Action     string    `gorm:"size:100" json:"action,omitempty"`
}

func (LogEntry) TableName() string {
	return "log_entries"
}

// BeforeCreate assigns a uuid primary key
func (e *LogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates all application tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Book{},
		&Loan{},
		&LogEntry{},
	)
}
