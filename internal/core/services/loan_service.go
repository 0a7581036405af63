package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/core/domain"

	"gorm.io/gorm"
)

// Loan service errors
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrBookNotAvailable    = errors.New("no copies available for loan")
	ErrInvalidLoanPeriod   = errors.New("loan period must be between 1 and 30 days")
	ErrLoanLimitReached    = errors.New("active loan limit reached")
	ErrBookAlreadyOnLoan   = errors.New("user already has an active loan for this book")
	ErrLoanNotReturnable   = errors.New("loan is already closed")
	ErrInvalidReturnStatus = errors.New("return status must be RETURNED or LOST")
	ErrInvalidLoanStatus   = errors.New("invalid loan status")
	ErrNotAuthorized       = errors.New("not authorized")
)

// LoanService handles the loan ledger business logic
type LoanService struct {
	loanRepo repositories.LoanRepository
	bookRepo repositories.BookRepository
	userRepo repositories.UserRepository
	audit    *AuditService
}

// NewLoanService creates a new loan service
func NewLoanService(
	loanRepo repositories.LoanRepository,
	bookRepo repositories.BookRepository,
	userRepo repositories.UserRepository,
	audit *AuditService,
) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		bookRepo: bookRepo,
		userRepo: userRepo,
		audit:    audit,
	}
}

// CreateLoanInput represents create loan input. Username names the
// borrower, which is the caller themselves on the self-service route.
type CreateLoanInput struct {
	Username string `json:"username" validate:"required"`
	BookID   string `json:"book_id" validate:"required"`
	LoanDays int    `json:"loan_days"`
	Notes    string `json:"notes,omitempty"`
}

// ReturnLoanInput represents return input
type ReturnLoanInput struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// UpdateLoanInput represents loan correction input
type UpdateLoanInput struct {
	DueDate *time.Time `json:"due_date"`
	Notes   *string    `json:"notes"`
}

// LoanStatistics summarizes the ledger by status
type LoanStatistics struct {
	TotalActive   int64 `json:"total_active"`
	TotalOverdue  int64 `json:"total_overdue"`
	TotalReturned int64 `json:"total_returned"`
	TotalLost     int64 `json:"total_lost"`
}

// InventoryCorrection records one reconciliation fix
type InventoryCorrection struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Previous  int    `json:"previous"`
	Corrected int    `json:"corrected"`
}

// CreateLoan checks out a copy of a book to a user
func (s *LoanService) CreateLoan(ctx context.Context, input *CreateLoanInput, processedBy string) (*models.Loan, error) {
	// 1. Resolve the borrower. Deactivated accounts cannot borrow.
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 2. Load the book
	book, err := s.bookRepo.GetByID(ctx, input.BookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	// 3. Check a copy is on the shelf
	if !book.IsAvailable() {
		return nil, ErrBookNotAvailable
	}

	// 4. Resolve the loan period
	loanDays := input.LoanDays
	if loanDays == 0 {
		loanDays = domain.DefaultLoanDays
	}
	if loanDays < 1 || loanDays > domain.MaxLoanDays {
		return nil, ErrInvalidLoanPeriod
	}

	// 5. Enforce the per-user active loan cap. The cap counts ACTIVE
	// rows only; loans already flagged OVERDUE do not block new
	// checkouts.
	activeCount, err := s.loanRepo.CountActiveByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if activeCount >= domain.MaxActiveLoansPerUser {
		return nil, ErrLoanLimitReached
	}

	// 6. One active loan per title per user
	onLoan, err := s.loanRepo.ExistsActiveByUserAndBook(ctx, user.Username, book.ID)
	if err != nil {
		return nil, err
	}
	if onLoan {
		return nil, ErrBookAlreadyOnLoan
	}

	// 7. Create the loan. Title and author are denormalized so history
	// survives catalog edits and deletions.
	now := time.Now()
	loan := &models.Loan{
		BookID:      book.ID,
		UserID:      user.ID,
		Username:    user.Username,
		BookTitle:   book.Title,
		BookAuthor:  book.Author,
		LoanDate:    now,
		DueDate:     now.AddDate(0, 0, loanDays),
		Status:      string(domain.LoanStatusActive),
		Notes:       input.Notes,
		ProcessedBy: processedBy,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}

	// 8. Take the copy off the shelf. The loan stands even if the
	// decrement fails; the reconciliation job squares the counts.
	if ok, err := s.bookRepo.AdjustAvailability(ctx, book.ID, -1); err != nil || !ok {
		s.audit.Record(ctx, domain.LogLevelError,
			fmt.Sprintf("Inventory decrement failed for book %s on loan %s", book.ID, loan.ID), err)
	}

	s.audit.Record(ctx, domain.LogLevelInformation,
		fmt.Sprintf("Loan created: %q to %s, due %s", loan.BookTitle, loan.Username, loan.DueDate.Format("2006-01-02")), nil)
	log.Printf("✅ Loan created: %s -> %s (due %s)", loan.BookTitle, loan.Username, loan.DueDate.Format("2006-01-02"))

	return loan, nil
}

// GetLoan gets a loan by ID. Plain users only see their own loans.
func (s *LoanService) GetLoan(ctx context.Context, id string, requester string, privileged bool) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	if !privileged && loan.Username != requester {
		return nil, ErrNotAuthorized
	}

	return loan, nil
}

// ListLoans lists one page of the ledger, newest first
func (s *LoanService) ListLoans(ctx context.Context, offset, limit int) ([]*models.Loan, int64, error) {
	return s.loanRepo.List(ctx, offset, limit)
}

// ListUserLoans lists the full loan history of one user
func (s *LoanService) ListUserLoans(ctx context.Context, username string) ([]*models.Loan, error) {
	// The username must exist, active or not; history outlives the account
	if _, err := s.userRepo.GetByUsernameAny(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.loanRepo.ListByUsername(ctx, username)
}

// ListMyLoans lists the caller's own loan history
func (s *LoanService) ListMyLoans(ctx context.Context, username string) ([]*models.Loan, error) {
	return s.loanRepo.ListByUsername(ctx, username)
}

// ListMyActiveLoans lists the caller's ACTIVE loans, nearest due first
func (s *LoanService) ListMyActiveLoans(ctx context.Context, username string) ([]*models.Loan, error) {
	return s.loanRepo.ListActiveByUsername(ctx, username)
}

// ListOverdueLoans lists every loan past its date: rows already marked
// OVERDUE plus ACTIVE rows the sweep has not caught yet
func (s *LoanService) ListOverdueLoans(ctx context.Context) ([]*models.Loan, error) {
	return s.loanRepo.ListOverdue(ctx, time.Now())
}

// SweepOverdue flips every ACTIVE loan past its due date to OVERDUE
// and returns how many rows moved
func (s *LoanService) SweepOverdue(ctx context.Context) (int64, error) {
	flipped, err := s.loanRepo.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if flipped > 0 {
		s.audit.Record(ctx, domain.LogLevelWarning,
			fmt.Sprintf("Overdue sweep flagged %d loans", flipped), nil)
	}

	return flipped, nil
}

// ReturnLoan closes an outstanding loan. The default outcome is
// RETURNED; LOST closes the loan without putting the copy back.
func (s *LoanService) ReturnLoan(ctx context.Context, id string, input *ReturnLoanInput) (*models.Loan, error) {
	// 1. Load the loan
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	// 2. Only outstanding loans can be returned
	if !loan.IsOutstanding() {
		return nil, ErrLoanNotReturnable
	}

	// 3. Resolve the closing status
	status := domain.LoanStatus(strings.ToUpper(strings.TrimSpace(input.Status)))
	if status == "" {
		status = domain.LoanStatusReturned
	}
	if status != domain.LoanStatusReturned && status != domain.LoanStatusLost {
		return nil, ErrInvalidReturnStatus
	}

	// 4. Close the loan
	now := time.Now()
	loan.ReturnDate = &now
	loan.Status = string(status)
	if input.Notes != "" {
		if loan.Notes != "" {
			loan.Notes = loan.Notes + " | " + input.Notes
		} else {
			loan.Notes = input.Notes
		}
	}

	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	// 5. Put the copy back on the shelf unless it is lost
	if status == domain.LoanStatusReturned {
		if ok, err := s.bookRepo.AdjustAvailability(ctx, loan.BookID, 1); err != nil || !ok {
			s.audit.Record(ctx, domain.LogLevelError,
				fmt.Sprintf("Inventory increment failed for book %s on loan %s", loan.BookID, loan.ID), err)
		}
	}

	s.audit.Record(ctx, domain.LogLevelInformation,
		fmt.Sprintf("Loan closed as %s: %q from %s", loan.Status, loan.BookTitle, loan.Username), nil)
	log.Printf("✅ Loan closed (%s): %s <- %s", loan.Status, loan.BookTitle, loan.Username)

	return loan, nil
}

// UpdateLoan corrects an open loan's due date or notes
func (s *LoanService) UpdateLoan(ctx context.Context, id string, input *UpdateLoanInput) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	if input.DueDate != nil {
		if input.DueDate.Before(loan.LoanDate) {
			return nil, ErrInvalidLoanPeriod
		}
		loan.DueDate = *input.DueDate
	}

	if input.Notes != nil {
		loan.Notes = *input.Notes
	}

	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "Loan updated: "+loan.ID, nil)

	return loan, nil
}

// SetLoanStatus force-sets a loan's status with no transition checks
// and no inventory side effects. Admin escape hatch for fixing bad
// rows; reconciliation squares the shelf counts afterwards.
func (s *LoanService) SetLoanStatus(ctx context.Context, id string, status string) (*models.Loan, error) {
	normalized := domain.LoanStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !domain.ValidLoanStatus(string(normalized)) {
		return nil, ErrInvalidLoanStatus
	}

	ok, err := s.loanRepo.UpdateStatus(ctx, id, string(normalized))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLoanNotFound
	}

	s.audit.Record(ctx, domain.LogLevelWarning,
		fmt.Sprintf("Loan status override: %s -> %s", id, normalized), nil)

	return s.loanRepo.GetByID(ctx, id)
}

// DeleteLoan hard-deletes a loan record. A still-outstanding loan puts
// its copy back first so the shelf count does not leak.
func (s *LoanService) DeleteLoan(ctx context.Context, id string) error {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		return err
	}

	if loan.IsOutstanding() {
		if ok, err := s.bookRepo.AdjustAvailability(ctx, loan.BookID, 1); err != nil || !ok {
			s.audit.Record(ctx, domain.LogLevelError,
				fmt.Sprintf("Inventory increment failed for book %s on loan delete %s", loan.BookID, loan.ID), err)
		}
	}

	ok, err := s.loanRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoanNotFound
	}

	s.audit.Record(ctx, domain.LogLevelWarning,
		fmt.Sprintf("Loan deleted: %s (%q, %s)", loan.ID, loan.BookTitle, loan.Username), nil)

	return nil
}

// Statistics returns ledger counts by status
func (s *LoanService) Statistics(ctx context.Context) (*LoanStatistics, error) {
	stats := &LoanStatistics{}

	var err error
	if stats.TotalActive, err = s.loanRepo.CountByStatus(ctx, string(domain.LoanStatusActive)); err != nil {
		return nil, err
	}
	if stats.TotalOverdue, err = s.loanRepo.CountByStatus(ctx, string(domain.LoanStatusOverdue)); err != nil {
		return nil, err
	}
	if stats.TotalReturned, err = s.loanRepo.CountByStatus(ctx, string(domain.LoanStatusReturned)); err != nil {
		return nil, err
	}
	if stats.TotalLost, err = s.loanRepo.CountByStatus(ctx, string(domain.LoanStatusLost)); err != nil {
		return nil, err
	}

	return stats, nil
}

// ReconcileInventory recomputes each available count from the ledger
// and fixes any drift: available = total minus outstanding, clamped
// into [0, total]. Returns the corrections applied.
func (s *LoanService) ReconcileInventory(ctx context.Context) ([]*InventoryCorrection, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	outstanding, err := s.loanRepo.OutstandingCountsByBook(ctx)
	if err != nil {
		return nil, err
	}

	corrections := make([]*InventoryCorrection, 0)
	for _, book := range books {
		expected := book.TotalCopies - int(outstanding[book.ID])
		if expected < 0 {
			expected = 0
		}
		if expected > book.TotalCopies {
			expected = book.TotalCopies
		}
		if expected == book.AvailableCopies {
			continue
		}

		ok, err := s.bookRepo.SetAvailability(ctx, book.ID, expected)
		if err != nil || !ok {
			s.audit.Record(ctx, domain.LogLevelError,
				fmt.Sprintf("Inventory correction failed for %q", book.Title), err)
			continue
		}

		corrections = append(corrections, &InventoryCorrection{
			BookID:    book.ID,
			Title:     book.Title,
			Previous:  book.AvailableCopies,
			Corrected: expected,
		})

		s.audit.Record(ctx, domain.LogLevelWarning,
			fmt.Sprintf("Inventory corrected for %q: %d -> %d", book.Title, book.AvailableCopies, expected), nil)
	}

	return corrections, nil
}
