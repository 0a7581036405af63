package services

import (
	"context"
	"testing"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loanFixture struct {
	svc   *LoanService
	loans *fakeLoanRepo
	books *fakeBookRepo
	users *fakeUserRepo
	logs  *fakeLogRepo
}

func newLoanFixture() *loanFixture {
	users := &fakeUserRepo{}
	books := &fakeBookRepo{}
	loans := &fakeLoanRepo{}
	auditSvc, logs := testAudit()
	return &loanFixture{
		svc:   NewLoanService(loans, books, users, auditSvc),
		loans: loans,
		books: books,
		users: users,
		logs:  logs,
	}
}

// seedLoan plants a ledger row directly, bypassing the checkout rules
func seedLoan(loans *fakeLoanRepo, username, bookID, status string, due time.Time) *models.Loan {
	loan := &models.Loan{
		BookID:    bookID,
		Username:  username,
		BookTitle: "Seeded Title",
		LoanDate:  time.Now().AddDate(0, 0, -7),
		DueDate:   due,
		Status:    status,
	}
	_ = loans.Create(context.Background(), loan)
	return loan
}

func TestCreateLoan(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "The Hobbit", 2, 2)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai",
		BookID:   book.ID,
	}, "librarian1")
	require.NoError(t, err)

	assert.NotEmpty(t, loan.ID)
	assert.Equal(t, "somchai", loan.Username)
	assert.Equal(t, "The Hobbit", loan.BookTitle)
	assert.Equal(t, "Test Author", loan.BookAuthor)
	assert.Equal(t, string(domain.LoanStatusActive), loan.Status)
	assert.Equal(t, "librarian1", loan.ProcessedBy)
	assert.Nil(t, loan.ReturnDate)

	// Default period is 14 days
	wantDue := loan.LoanDate.AddDate(0, 0, domain.DefaultLoanDays)
	assert.WithinDuration(t, wantDue, loan.DueDate, time.Second)

	// One copy left the shelf
	assert.Equal(t, 1, f.books.stored(book.ID).AvailableCopies)

	assert.True(t, f.logs.hasMessage("Loan created"))
}

func TestCreateLoanPeriodBounds(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "The Hobbit", 10, 10)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID, LoanDays: domain.MaxLoanDays,
	}, "l")
	require.NoError(t, err)
	wantDue := loan.LoanDate.AddDate(0, 0, domain.MaxLoanDays)
	assert.WithinDuration(t, wantDue, loan.DueDate, time.Second)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID, LoanDays: domain.MaxLoanDays + 1,
	}, "l")
	assert.ErrorIs(t, err, ErrInvalidLoanPeriod)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID, LoanDays: -3,
	}, "l")
	assert.ErrorIs(t, err, ErrInvalidLoanPeriod)
}

func TestCreateLoanRefusals(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	seedUser(f.users, "ghost", "Secret123", "USER", false)
	empty := seedBook(f.books, "All Out", 1, 0)

	_, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "nobody", BookID: empty.ID,
	}, "l")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Deactivated accounts cannot borrow
	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "ghost", BookID: empty.ID,
	}, "l")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: "no-such-book",
	}, "l")
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: empty.ID,
	}, "l")
	assert.ErrorIs(t, err, ErrBookNotAvailable)

	// A refused checkout must not touch the shelf or the ledger
	assert.Equal(t, 0, f.books.stored(empty.ID).AvailableCopies)
	assert.Empty(t, f.loans.loans)
}

func TestCreateLoanActiveCap(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)

	var lastLoan *models.Loan
	for i := 0; i < domain.MaxActiveLoansPerUser; i++ {
		book := seedBook(f.books, "Volume", 1, 1)
		loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
			Username: "somchai", BookID: book.ID,
		}, "l")
		require.NoError(t, err)
		lastLoan = loan
	}

	extra := seedBook(f.books, "One Too Many", 1, 1)
	_, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: extra.ID,
	}, "l")
	assert.ErrorIs(t, err, ErrLoanLimitReached)

	// The cap counts ACTIVE rows only; an OVERDUE loan frees a slot
	f.loans.stored(lastLoan.ID).Status = string(domain.LoanStatusOverdue)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: extra.ID,
	}, "l")
	assert.NoError(t, err)
}

func TestCreateLoanDuplicateBook(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	seedUser(f.users, "malee", "Secret123", "USER", true)
	book := seedBook(f.books, "Popular", 3, 3)

	_, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	assert.ErrorIs(t, err, ErrBookAlreadyOnLoan)

	// Another reader can still take a second copy
	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "malee", BookID: book.ID,
	}, "l")
	assert.NoError(t, err)
}

func TestCreateLoanSurvivesDecrementFailure(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Flaky", 1, 1)
	f.books.failAdjust = true

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	// The loan stands; the failed decrement is recorded for reconciliation
	assert.NotNil(t, f.loans.stored(loan.ID))
	assert.True(t, f.logs.hasMessage("Inventory decrement failed"))
}

func TestSingleCopyLifecycle(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	seedUser(f.users, "malee", "Secret123", "USER", true)
	book := seedBook(f.books, "Only Copy", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)
	assert.Equal(t, 0, f.books.stored(book.ID).AvailableCopies)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "malee", BookID: book.ID,
	}, "l")
	assert.ErrorIs(t, err, ErrBookNotAvailable)

	_, err = f.svc.ReturnLoan(context.Background(), loan.ID, &ReturnLoanInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.books.stored(book.ID).AvailableCopies)

	_, err = f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "malee", BookID: book.ID,
	}, "l")
	assert.NoError(t, err)
}

func TestReturnLoan(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "The Hobbit", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID, Notes: "first edition",
	}, "l")
	require.NoError(t, err)

	returned, err := f.svc.ReturnLoan(context.Background(), loan.ID, &ReturnLoanInput{
		Notes: "slight wear",
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.LoanStatusReturned), returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, "first edition | slight wear", returned.Notes)
	assert.Equal(t, 1, f.books.stored(book.ID).AvailableCopies)

	// A closed loan cannot be returned again
	_, err = f.svc.ReturnLoan(context.Background(), loan.ID, &ReturnLoanInput{})
	assert.ErrorIs(t, err, ErrLoanNotReturnable)
}

func TestReturnLoanLost(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Unlucky", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	returned, err := f.svc.ReturnLoan(context.Background(), loan.ID, &ReturnLoanInput{
		Status: "lost",
	})
	require.NoError(t, err)

	// Status is normalized and the copy never comes back to the shelf
	assert.Equal(t, string(domain.LoanStatusLost), returned.Status)
	assert.Equal(t, 0, f.books.stored(book.ID).AvailableCopies)
}

func TestReturnLoanRejectsBadStatus(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "The Hobbit", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	_, err = f.svc.ReturnLoan(context.Background(), loan.ID, &ReturnLoanInput{Status: "ACTIVE"})
	assert.ErrorIs(t, err, ErrInvalidReturnStatus)

	_, err = f.svc.ReturnLoan(context.Background(), "no-such-loan", &ReturnLoanInput{})
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestReturnOverdueLoan(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Late", 1, 0)
	loan := seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusOverdue), time.Now().AddDate(0, 0, -3))

	// Overdue loans are still outstanding and can be returned
	returned, err := f.svc.ReturnLoan(context.Background(), loan.ID, &ReturnLoanInput{})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanStatusReturned), returned.Status)
	assert.Equal(t, 1, f.books.stored(book.ID).AvailableCopies)
}

func TestGetLoanOwnership(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Private", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	got, err := f.svc.GetLoan(context.Background(), loan.ID, "somchai", false)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)

	_, err = f.svc.GetLoan(context.Background(), loan.ID, "malee", false)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Staff see everything
	_, err = f.svc.GetLoan(context.Background(), loan.ID, "librarian1", true)
	assert.NoError(t, err)

	_, err = f.svc.GetLoan(context.Background(), "no-such-loan", "somchai", false)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestListUserLoans(t *testing.T) {
	f := newLoanFixture()
	ghost := seedUser(f.users, "ghost", "Secret123", "USER", true)
	book := seedBook(f.books, "Kept", 1, 1)

	_, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "ghost", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	_, err = f.svc.ListUserLoans(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// History survives account deactivation
	_, err = f.users.Deactivate(context.Background(), ghost.ID)
	require.NoError(t, err)

	loans, err := f.svc.ListUserLoans(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestListMyActiveLoans(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Current", 5, 5)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)
	seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusReturned), time.Now())
	seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusOverdue), time.Now().AddDate(0, 0, -1))

	active, err := f.svc.ListMyActiveLoans(context.Background(), "somchai")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, loan.ID, active[0].ID)

	all, err := f.svc.ListMyLoans(context.Background(), "somchai")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListLoans(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Ledger", 5, 5)

	seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusReturned), time.Now().AddDate(0, 0, -3))
	seedLoan(f.loans, "malee", book.ID, string(domain.LoanStatusOverdue), time.Now().AddDate(0, 0, -1))
	fresh, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)

	loans, total, err := f.svc.ListLoans(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, fresh.ID, loans[0].ID, "newest loan should lead the ledger")

	loans, total, err = f.svc.ListLoans(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
	assert.Equal(t, int64(3), total)
}

func TestSweepOverdue(t *testing.T) {
	f := newLoanFixture()
	book := seedBook(f.books, "Swept", 5, 5)
	late := seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusActive), time.Now().AddDate(0, 0, -2))
	onTime := seedLoan(f.loans, "malee", book.ID, string(domain.LoanStatusActive), time.Now().AddDate(0, 0, 5))
	closed := seedLoan(f.loans, "nui", book.ID, string(domain.LoanStatusReturned), time.Now().AddDate(0, 0, -9))

	flipped, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	assert.Equal(t, string(domain.LoanStatusOverdue), f.loans.stored(late.ID).Status)
	assert.Equal(t, string(domain.LoanStatusActive), f.loans.stored(onTime.ID).Status)
	assert.Equal(t, string(domain.LoanStatusReturned), f.loans.stored(closed.ID).Status)

	assert.True(t, f.logs.hasMessage("Overdue sweep flagged 1 loans"))

	// Idempotent: a second pass finds nothing to flip
	flipped, err = f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), flipped)
}

func TestListOverdueLoans(t *testing.T) {
	f := newLoanFixture()
	book := seedBook(f.books, "Tracked", 5, 5)
	flagged := seedLoan(f.loans, "a", book.ID, string(domain.LoanStatusOverdue), time.Now().AddDate(0, 0, -5))
	slipped := seedLoan(f.loans, "b", book.ID, string(domain.LoanStatusActive), time.Now().AddDate(0, 0, -1))
	seedLoan(f.loans, "c", book.ID, string(domain.LoanStatusActive), time.Now().AddDate(0, 0, 10))

	// The listing catches ACTIVE loans the sweep has not flipped yet
	overdue, err := f.svc.ListOverdueLoans(context.Background())
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, flagged.ID, overdue[0].ID)
	assert.Equal(t, slipped.ID, overdue[1].ID)
}

func TestUpdateLoan(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Edited", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID, Notes: "original",
	}, "l")
	require.NoError(t, err)

	extended := loan.DueDate.AddDate(0, 0, 7)
	updated, err := f.svc.UpdateLoan(context.Background(), loan.ID, &UpdateLoanInput{
		DueDate: &extended,
		Notes:   strptr("corrected"),
	})
	require.NoError(t, err)
	assert.WithinDuration(t, extended, updated.DueDate, time.Second)
	assert.Equal(t, "corrected", updated.Notes)

	tooEarly := loan.LoanDate.AddDate(0, 0, -1)
	_, err = f.svc.UpdateLoan(context.Background(), loan.ID, &UpdateLoanInput{DueDate: &tooEarly})
	assert.ErrorIs(t, err, ErrInvalidLoanPeriod)

	_, err = f.svc.UpdateLoan(context.Background(), "no-such-loan", &UpdateLoanInput{})
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestSetLoanStatus(t *testing.T) {
	f := newLoanFixture()
	book := seedBook(f.books, "Forced", 1, 0)
	loan := seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusActive), time.Now().AddDate(0, 0, 7))

	updated, err := f.svc.SetLoanStatus(context.Background(), loan.ID, "lost")
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanStatusLost), updated.Status)

	// The override never touches the shelf count
	assert.Equal(t, 0, f.books.stored(book.ID).AvailableCopies)

	// Repeating the same override is a no-op, not an error
	updated, err = f.svc.SetLoanStatus(context.Background(), loan.ID, "lost")
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanStatusLost), updated.Status)
	assert.Equal(t, 0, f.books.stored(book.ID).AvailableCopies)

	_, err = f.svc.SetLoanStatus(context.Background(), loan.ID, "MISPLACED")
	assert.ErrorIs(t, err, ErrInvalidLoanStatus)

	_, err = f.svc.SetLoanStatus(context.Background(), "no-such-loan", "ACTIVE")
	assert.ErrorIs(t, err, ErrLoanNotFound)

	assert.True(t, f.logs.hasMessage("Loan status override"))
}

func TestDeleteLoan(t *testing.T) {
	f := newLoanFixture()
	seedUser(f.users, "somchai", "Secret123", "USER", true)
	book := seedBook(f.books, "Erased", 1, 1)

	loan, err := f.svc.CreateLoan(context.Background(), &CreateLoanInput{
		Username: "somchai", BookID: book.ID,
	}, "l")
	require.NoError(t, err)
	assert.Equal(t, 0, f.books.stored(book.ID).AvailableCopies)

	// Deleting an outstanding loan puts the copy back
	require.NoError(t, f.svc.DeleteLoan(context.Background(), loan.ID))
	assert.Nil(t, f.loans.stored(loan.ID))
	assert.Equal(t, 1, f.books.stored(book.ID).AvailableCopies)

	err = f.svc.DeleteLoan(context.Background(), loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestDeleteClosedLoanKeepsShelf(t *testing.T) {
	f := newLoanFixture()
	book := seedBook(f.books, "Settled", 1, 1)
	loan := seedLoan(f.loans, "somchai", book.ID, string(domain.LoanStatusReturned), time.Now())

	require.NoError(t, f.svc.DeleteLoan(context.Background(), loan.ID))
	assert.Equal(t, 1, f.books.stored(book.ID).AvailableCopies)
}

func TestLoanStatistics(t *testing.T) {
	f := newLoanFixture()
	book := seedBook(f.books, "Counted", 9, 9)
	now := time.Now()
	seedLoan(f.loans, "a", book.ID, string(domain.LoanStatusActive), now)
	seedLoan(f.loans, "b", book.ID, string(domain.LoanStatusActive), now)
	seedLoan(f.loans, "c", book.ID, string(domain.LoanStatusOverdue), now)
	seedLoan(f.loans, "d", book.ID, string(domain.LoanStatusReturned), now)
	seedLoan(f.loans, "e", book.ID, string(domain.LoanStatusLost), now)

	stats, err := f.svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalActive)
	assert.Equal(t, int64(1), stats.TotalOverdue)
	assert.Equal(t, int64(1), stats.TotalReturned)
	assert.Equal(t, int64(1), stats.TotalLost)
}

func TestReconcileInventory(t *testing.T) {
	f := newLoanFixture()
	now := time.Now()

	// Drifted low: 2 outstanding but the shelf claims all 3 are in
	drifted := seedBook(f.books, "Drifted", 3, 3)
	seedLoan(f.loans, "a", drifted.ID, string(domain.LoanStatusActive), now)
	seedLoan(f.loans, "b", drifted.ID, string(domain.LoanStatusOverdue), now)

	// Negative count from a double decrement
	negative := seedBook(f.books, "Negative", 1, -1)

	// Consistent, must be left alone
	clean := seedBook(f.books, "Clean", 2, 1)
	seedLoan(f.loans, "c", clean.ID, string(domain.LoanStatusActive), now)

	// More outstanding rows than copies; expected clamps to zero
	swamped := seedBook(f.books, "Swamped", 1, 1)
	seedLoan(f.loans, "d", swamped.ID, string(domain.LoanStatusActive), now)
	seedLoan(f.loans, "e", swamped.ID, string(domain.LoanStatusOverdue), now)

	corrections, err := f.svc.ReconcileInventory(context.Background())
	require.NoError(t, err)
	assert.Len(t, corrections, 3)

	assert.Equal(t, 1, f.books.stored(drifted.ID).AvailableCopies)
	assert.Equal(t, 1, f.books.stored(negative.ID).AvailableCopies)
	assert.Equal(t, 1, f.books.stored(clean.ID).AvailableCopies)
	assert.Equal(t, 0, f.books.stored(swamped.ID).AvailableCopies)

	assert.True(t, f.logs.hasMessage("Inventory corrected"))

	// Second pass has nothing left to fix
	corrections, err = f.svc.ReconcileInventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, corrections)
}
