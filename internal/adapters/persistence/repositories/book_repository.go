package repositories

import (
	"context"
	"strings"

	"bibliotrack/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// bookRepository implements BookRepository interface
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book
func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets an active book by ID
func (r *bookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByIDAny gets a book by ID regardless of active state
func (r *bookRepository) GetByIDAny(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update updates a book
func (r *bookRepository) Update(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

// SoftDelete deactivates a book and reports whether a row matched
func (r *bookRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return result.RowsAffected > 0, result.Error
}

// List lists all active books
func (r *bookRepository) List(ctx context.Context) ([]*models.Book, error) {
	var books []*models.Book
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("title ASC").Find(&books).Error
	return books, err
}

// Search finds active books whose title, author, ISBN or category
// contains the term, case-insensitively. An empty term lists everything.
func (r *bookRepository) Search(ctx context.Context, term string) ([]*models.Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.List(ctx)
	}

	pattern := "%" + strings.ToLower(term) + "%"
	var books []*models.Book
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND (LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ? OR LOWER(category) LIKE ?)",
			true, pattern, pattern, pattern, pattern).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// ExistsActiveByISBN checks whether another active book already carries
// the ISBN. excludeID skips the book being updated.
func (r *bookRepository) ExistsActiveByISBN(ctx context.Context, isbn, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("isbn = ? AND is_active = ?", isbn, true)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

// AdjustAvailability applies the delta to available_copies in a single
// UPDATE. The delta is not clamped: checkout and return bookkeeping is
// the caller's job, and drift is repaired by the reconciliation pass.
func (r *bookRepository) AdjustAvailability(ctx context.Context, id string, delta int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("available_copies", gorm.Expr("available_copies + ?", delta))
	return result.RowsAffected > 0, result.Error
}

// SetAvailability overwrites available_copies with a recomputed value
func (r *bookRepository) SetAvailability(ctx context.Context, id string, available int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("available_copies", available)
	return result.RowsAffected > 0, result.Error
}
