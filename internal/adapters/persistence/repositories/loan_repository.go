package repositories

import (
	"context"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/core/domain"

	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID
func (r *loanRepository) GetByID(ctx context.Context, id string) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Update updates a loan
func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// UpdateStatus overwrites the loan status unconditionally and reports
// whether a row matched. No state machine check: this is the
// administrative escape hatch.
func (r *loanRepository) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected > 0, result.Error
}

// Delete hard-deletes a loan and reports whether a row matched
func (r *loanRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Loan{})
	return result.RowsAffected > 0, result.Error
}

// List lists loans with pagination, newest first
func (r *loanRepository) List(ctx context.Context, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Loan{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).Order("loan_date DESC").
		Offset(offset).Limit(limit).Find(&loans).Error; err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

// ListByUsername lists all loans of a user, newest first
func (r *loanRepository) ListByUsername(ctx context.Context, username string) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).Where("username = ?", username).
		Order("loan_date DESC").Find(&loans).Error
	return loans, err
}

// ListActiveByUsername lists loans with status ACTIVE only. A loan
// already swept to OVERDUE does not appear here.
func (r *loanRepository) ListActiveByUsername(ctx context.Context, username string) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Where("username = ? AND status = ?", username, domain.LoanStatusActive).
		Order("due_date ASC").Find(&loans).Error
	return loans, err
}

// ListOverdue lists loans already flagged OVERDUE plus ACTIVE loans
// whose due date has passed. Pure query, no mutation.
func (r *loanRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND due_date < ?)",
			domain.LoanStatusOverdue, domain.LoanStatusActive, now).
		Order("due_date ASC").Find(&loans).Error
	return loans, err
}

// MarkOverdue flips every past-due ACTIVE loan to OVERDUE in a single
// UPDATE and returns the number of rows flipped. Idempotent.
func (r *loanRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ? AND due_date < ?", domain.LoanStatusActive, now).
		Update("status", domain.LoanStatusOverdue)
	return result.RowsAffected, result.Error
}

// CountActiveByUsername counts loans with status ACTIVE for a user
func (r *loanRepository) CountActiveByUsername(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("username = ? AND status = ?", username, domain.LoanStatusActive).
		Count(&count).Error
	return count, err
}

// ExistsActiveByUserAndBook checks for an ACTIVE loan of the book by
// the user. OVERDUE does not count: that matches the checkout rule,
// which only blocks a second copy while the first loan is ACTIVE.
func (r *loanRepository) ExistsActiveByUserAndBook(ctx context.Context, username, bookID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("username = ? AND book_id = ? AND status = ?", username, bookID, domain.LoanStatusActive).
		Count(&count).Error
	return count > 0, err
}

// CountByStatus counts loans in the given status
func (r *loanRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}

// OutstandingCountsByBook returns the number of outstanding loans
// (ACTIVE or OVERDUE) per book, for the inventory reconciliation pass
func (r *loanRepository) OutstandingCountsByBook(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		BookID string
		Total  int64
	}

	err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Select("book_id, COUNT(*) AS total").
		Where("status IN ?", []string{string(domain.LoanStatusActive), string(domain.LoanStatusOverdue)}).
		Group("book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.BookID] = row.Total
	}
	return counts, nil
}
