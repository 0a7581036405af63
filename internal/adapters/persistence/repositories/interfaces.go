package repositories

import (
	"context"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface.
// The plain getters see active users only; the *Any variants also
// return deactivated records for administrative paths. The Exists
// checks always span every record ever created, so a released
// username or email can never be claimed again.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDAny(ctx context.Context, id string) (*models.User, error)
	GetByUsernameAny(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// BookRepository defines book repository interface.
// Reads are scoped to active books; AdjustAvailability applies an
// unclamped delta in a single UPDATE and reports whether a row matched.
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id string) (*models.Book, error)
	GetByIDAny(ctx context.Context, id string) (*models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	SoftDelete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*models.Book, error)
	Search(ctx context.Context, term string) ([]*models.Book, error)
	ExistsActiveByISBN(ctx context.Context, isbn, excludeID string) (bool, error)
	AdjustAvailability(ctx context.Context, id string, delta int) (bool, error)
	SetAvailability(ctx context.Context, id string, available int) (bool, error)
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id string) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	UpdateStatus(ctx context.Context, id, status string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*models.Loan, int64, error)
	ListByUsername(ctx context.Context, username string) ([]*models.Loan, error)
	ListActiveByUsername(ctx context.Context, username string) ([]*models.Loan, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Loan, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	CountActiveByUsername(ctx context.Context, username string) (int64, error)
	ExistsActiveByUserAndBook(ctx context.Context, username, bookID string) (bool, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	OutstandingCountsByBook(ctx context.Context) (map[string]int64, error)
}

// LogRepository defines audit log repository interface (append-only)
type LogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	Recent(ctx context.Context, limit int) ([]*models.LogEntry, error)
	CountByLevel(ctx context.Context, level string) (int64, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]*models.LogEntry, error)
	ListByUsername(ctx context.Context, username string) ([]*models.LogEntry, error)
	Search(ctx context.Context, term string) ([]*models.LogEntry, error)
	CountsByLevel(ctx context.Context) (map[string]int64, error)
}
