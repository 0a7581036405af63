package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/config"
	"bibliotrack/internal/core/domain"
	"bibliotrack/internal/pkg/audit"
	"bibliotrack/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repositories for service tests. Reads hand out copies so a
// field mutation only sticks after Update, the same way gorm behaves.

// ------------------------------------------------------------
// fakeUserRepo
// ------------------------------------------------------------

type fakeUserRepo struct {
	users []*models.User
}

func (r *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	clone := *user
	r.users = append(r.users, &clone)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id && u.IsActive })
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username && u.IsActive })
}

func (r *fakeUserRepo) GetByIDAny(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) GetByUsernameAny(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	for i, u := range r.users {
		if u.ID == user.ID {
			clone := *user
			r.users[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	for _, u := range r.users {
		if u.ID == id && u.IsActive {
			u.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	var active []*models.User
	for _, u := range r.users {
		if u.IsActive {
			clone := *u
			active = append(active, &clone)
		}
	}
	total := int64(len(active))
	if offset >= len(active) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], total, nil
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// stored returns the live record for assertions
func (r *fakeUserRepo) stored(id string) *models.User {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// ------------------------------------------------------------
// fakeBookRepo
// ------------------------------------------------------------

type fakeBookRepo struct {
	books []*models.Book

	// failAdjust makes AdjustAvailability report no matched row,
	// simulating a book deactivated between read and update
	failAdjust bool
}

func (r *fakeBookRepo) find(match func(*models.Book) bool) (*models.Book, error) {
	for _, b := range r.books {
		if match(b) {
			clone := *b
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookRepo) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	book.CreatedAt = time.Now()
	clone := *book
	r.books = append(r.books, &clone)
	return nil
}

func (r *fakeBookRepo) GetByID(ctx context.Context, id string) (*models.Book, error) {
	return r.find(func(b *models.Book) bool { return b.ID == id && b.IsActive })
}

func (r *fakeBookRepo) GetByIDAny(ctx context.Context, id string) (*models.Book, error) {
	return r.find(func(b *models.Book) bool { return b.ID == id })
}

func (r *fakeBookRepo) Update(ctx context.Context, book *models.Book) error {
	for i, b := range r.books {
		if b.ID == book.ID {
			clone := *book
			r.books[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeBookRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	for _, b := range r.books {
		if b.ID == id && b.IsActive {
			b.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookRepo) List(ctx context.Context) ([]*models.Book, error) {
	var active []*models.Book
	for _, b := range r.books {
		if b.IsActive {
			clone := *b
			active = append(active, &clone)
		}
	}
	return active, nil
}

func (r *fakeBookRepo) Search(ctx context.Context, term string) ([]*models.Book, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return r.List(ctx)
	}

	var matches []*models.Book
	for _, b := range r.books {
		if !b.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(b.Title), term) ||
			strings.Contains(strings.ToLower(b.Author), term) ||
			strings.Contains(strings.ToLower(b.ISBN), term) ||
			strings.Contains(strings.ToLower(b.Category), term) {
			clone := *b
			matches = append(matches, &clone)
		}
	}
	return matches, nil
}

func (r *fakeBookRepo) ExistsActiveByISBN(ctx context.Context, isbn, excludeID string) (bool, error) {
	for _, b := range r.books {
		if b.ISBN == isbn && b.IsActive && b.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookRepo) AdjustAvailability(ctx context.Context, id string, delta int) (bool, error) {
	if r.failAdjust {
		return false, nil
	}
	for _, b := range r.books {
		if b.ID == id && b.IsActive {
			b.AvailableCopies += delta
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookRepo) SetAvailability(ctx context.Context, id string, available int) (bool, error) {
	for _, b := range r.books {
		if b.ID == id && b.IsActive {
			b.AvailableCopies = available
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookRepo) stored(id string) *models.Book {
	for _, b := range r.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// ------------------------------------------------------------
// fakeLoanRepo
// ------------------------------------------------------------

type fakeLoanRepo struct {
	loans []*models.Loan
}

func (r *fakeLoanRepo) Create(ctx context.Context, loan *models.Loan) error {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	loan.CreatedAt = time.Now()
	clone := *loan
	r.loans = append(r.loans, &clone)
	return nil
}

func (r *fakeLoanRepo) GetByID(ctx context.Context, id string) (*models.Loan, error) {
	for _, l := range r.loans {
		if l.ID == id {
			clone := *l
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLoanRepo) Update(ctx context.Context, loan *models.Loan) error {
	for i, l := range r.loans {
		if l.ID == loan.ID {
			clone := *loan
			r.loans[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeLoanRepo) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	for _, l := range r.loans {
		if l.ID == id {
			l.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLoanRepo) Delete(ctx context.Context, id string) (bool, error) {
	for i, l := range r.loans {
		if l.ID == id {
			r.loans = append(r.loans[:i], r.loans[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLoanRepo) List(ctx context.Context, offset, limit int) ([]*models.Loan, int64, error) {
	all := make([]*models.Loan, 0, len(r.loans))
	for _, l := range r.loans {
		clone := *l
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LoanDate.After(all[j].LoanDate) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeLoanRepo) ListByUsername(ctx context.Context, username string) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range r.loans {
		if l.Username == username {
			clone := *l
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeLoanRepo) ListActiveByUsername(ctx context.Context, username string) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range r.loans {
		if l.Username == username && l.Status == string(domain.LoanStatusActive) {
			clone := *l
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *fakeLoanRepo) ListOverdue(ctx context.Context, now time.Time) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range r.loans {
		if l.Status == string(domain.LoanStatusOverdue) ||
			(l.Status == string(domain.LoanStatusActive) && l.DueDate.Before(now)) {
			clone := *l
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *fakeLoanRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	var flipped int64
	for _, l := range r.loans {
		if l.Status == string(domain.LoanStatusActive) && l.DueDate.Before(now) {
			l.Status = string(domain.LoanStatusOverdue)
			flipped++
		}
	}
	return flipped, nil
}

func (r *fakeLoanRepo) CountActiveByUsername(ctx context.Context, username string) (int64, error) {
	var count int64
	for _, l := range r.loans {
		if l.Username == username && l.Status == string(domain.LoanStatusActive) {
			count++
		}
	}
	return count, nil
}

func (r *fakeLoanRepo) ExistsActiveByUserAndBook(ctx context.Context, username, bookID string) (bool, error) {
	for _, l := range r.loans {
		if l.Username == username && l.BookID == bookID && l.Status == string(domain.LoanStatusActive) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLoanRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	for _, l := range r.loans {
		if l.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeLoanRepo) OutstandingCountsByBook(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, l := range r.loans {
		if l.Status == string(domain.LoanStatusActive) || l.Status == string(domain.LoanStatusOverdue) {
			counts[l.BookID]++
		}
	}
	return counts, nil
}

func (r *fakeLoanRepo) stored(id string) *models.Loan {
	for _, l := range r.loans {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// ------------------------------------------------------------
// fakeLogRepo
// ------------------------------------------------------------

type fakeLogRepo struct {
	entries   []*models.LogEntry
	appendErr error
}

func (r *fakeLogRepo) Append(ctx context.Context, entry *models.LogEntry) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *fakeLogRepo) Recent(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	var out []*models.LogEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *r.entries[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeLogRepo) CountByLevel(ctx context.Context, level string) (int64, error) {
	var count int64
	for _, e := range r.entries {
		if e.Level == level {
			count++
		}
	}
	return count, nil
}

func (r *fakeLogRepo) ListByRange(ctx context.Context, from, to time.Time) ([]*models.LogEntry, error) {
	var out []*models.LogEntry
	for _, e := range r.entries {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ListByUsername(ctx context.Context, username string) ([]*models.LogEntry, error) {
	var out []*models.LogEntry
	for _, e := range r.entries {
		if e.Username == username {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) Search(ctx context.Context, term string) ([]*models.LogEntry, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []*models.LogEntry
	for _, e := range r.entries {
		if strings.Contains(strings.ToLower(e.Message), term) {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) CountsByLevel(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, e := range r.entries {
		counts[e.Level]++
	}
	return counts, nil
}

// hasMessage reports whether any recorded entry contains the substring
func (r *fakeLogRepo) hasMessage(substr string) bool {
	for _, e := range r.entries {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ------------------------------------------------------------
// Shared fixtures
// ------------------------------------------------------------

// testAudit builds an audit service over a fake log repo, with the slog
// mirror discarded
func testAudit() (*AuditService, *fakeLogRepo) {
	logRepo := &fakeLogRepo{}
	return NewAuditService(logRepo, audit.NewLogger(io.Discard)), logRepo
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		Port:    "3000",
		JWT: config.JWTConfig{
			Secret:      "test-secret",
			Issuer:      "bibliotrack",
			Audience:    "bibliotrack-api",
			ExpiryHours: 8,
		},
	}
}

// seedUser registers a user directly in the fake repo with a real
// password hash
func seedUser(repo *fakeUserRepo, username, plain, role string, active bool) *models.User {
	hash, _ := password.Hash(plain)
	user := &models.User{
		Username: username,
		Email:    username + "@library.org",
		Password: hash,
		Role:     role,
		IsActive: active,
	}
	_ = repo.Create(context.Background(), user)
	return user
}

func seedBook(repo *fakeBookRepo, title string, total, available int) *models.Book {
	book := &models.Book{
		Title:           title,
		Author:          "Test Author",
		TotalCopies:     total,
		AvailableCopies: available,
		IsActive:        true,
	}
	_ = repo.Create(context.Background(), book)
	return book
}
