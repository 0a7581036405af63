package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/core/domain"

	"gorm.io/gorm"
)

// Book service errors
var (
	ErrBookNotFound      = errors.New("book not found")
	ErrDuplicateISBN     = errors.New("an active book with this ISBN already exists")
	ErrMissingBookFields = errors.New("title and author are required")
)

// BookService handles catalog business logic
type BookService struct {
	bookRepo repositories.BookRepository
	audit    *AuditService
}

// NewBookService creates a new book service
func NewBookService(bookRepo repositories.BookRepository, audit *AuditService) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		audit:    audit,
	}
}

// BookInput represents create/update book input
type BookInput struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	ISBN            string `json:"isbn"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publication_year"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// BookAvailability represents the lending status of one title
type BookAvailability struct {
	BookID          string `json:"book_id"`
	Available       bool   `json:"available"`
	AvailableCopies int    `json:"available_copies"`
	TotalCopies     int    `json:"total_copies"`
}

// ListBooks lists all active books
func (s *BookService) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return s.bookRepo.List(ctx)
}

// SearchBooks searches active books by title, author, ISBN or category.
// An empty term behaves like ListBooks.
func (s *BookService) SearchBooks(ctx context.Context, term string) ([]*models.Book, error) {
	return s.bookRepo.Search(ctx, strings.TrimSpace(term))
}

// GetBookByID gets an active book by ID
func (s *BookService) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// GetAvailability reports whether a title can be borrowed right now
func (s *BookService) GetAvailability(ctx context.Context, id string) (*BookAvailability, error) {
	book, err := s.GetBookByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &BookAvailability{
		BookID:          book.ID,
		Available:       book.IsAvailable(),
		AvailableCopies: book.AvailableCopies,
		TotalCopies:     book.TotalCopies,
	}, nil
}

// CreateBook adds a title to the catalog
func (s *BookService) CreateBook(ctx context.Context, input *BookInput, createdBy string) (*models.Book, error) {
	// 1. Require title and author
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.ISBN = strings.TrimSpace(input.ISBN)
	if input.Title == "" || input.Author == "" {
		return nil, ErrMissingBookFields
	}

	// 2. Reject a duplicate ISBN among active books. Deactivated books
	// free their ISBN for reuse.
	if input.ISBN != "" {
		exists, err := s.bookRepo.ExistsActiveByISBN(ctx, input.ISBN, "")
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateISBN
		}
	}

	// 3. Default copy counts
	totalCopies := input.TotalCopies
	if totalCopies <= 0 {
		totalCopies = 1
	}
	availableCopies := input.AvailableCopies
	if availableCopies <= 0 {
		availableCopies = 1
	}

	// 4. Create book
	book := &models.Book{
		Title:           input.Title,
		Author:          input.Author,
		ISBN:            input.ISBN,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Category:        input.Category,
		Description:     input.Description,
		TotalCopies:     totalCopies,
		AvailableCopies: availableCopies,
		IsActive:        true,
		CreatedBy:       createdBy,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, fmt.Sprintf("Book created: %s by %s", book.Title, book.Author), nil)
	log.Printf("✅ Book added to catalog: %s (%d copies)", book.Title, book.TotalCopies)

	return book, nil
}

// UpdateBook updates a catalog entry. Descriptive fields are replaced
// outright. Copy counts only move when the new total keeps the
// available count at zero or above, so outstanding loans are never
// wiped off the books.
func (s *BookService) UpdateBook(ctx context.Context, id string, input *BookInput) (*models.Book, error) {
	// 1. Load the book
	book, err := s.GetBookByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 2. Require title and author
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.ISBN = strings.TrimSpace(input.ISBN)
	if input.Title == "" || input.Author == "" {
		return nil, ErrMissingBookFields
	}

	// 3. Check the ISBN against other active books
	if input.ISBN != "" && input.ISBN != book.ISBN {
		exists, err := s.bookRepo.ExistsActiveByISBN(ctx, input.ISBN, book.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateISBN
		}
	}

	// 4. Replace descriptive fields
	book.Title = input.Title
	book.Author = input.Author
	book.ISBN = input.ISBN
	book.Publisher = input.Publisher
	book.PublicationYear = input.PublicationYear
	book.Category = input.Category
	book.Description = input.Description

	// 5. Shift copy counts, keeping the loaned-out difference intact
	if input.TotalCopies > 0 {
		newAvailable := book.AvailableCopies + input.TotalCopies - book.TotalCopies
		if newAvailable >= 0 {
			book.TotalCopies = input.TotalCopies
			book.AvailableCopies = newAvailable
		}
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.LogLevelInformation, "Book updated: "+book.Title, nil)

	return book, nil
}

// DeleteBook removes a title from circulation (soft delete). History
// rows keep pointing at it and its ISBN becomes reusable.
func (s *BookService) DeleteBook(ctx context.Context, id string) error {
	book, err := s.GetBookByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.bookRepo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookNotFound
	}

	s.audit.Record(ctx, domain.LogLevelWarning, "Book deactivated: "+book.Title, nil)
	log.Printf("⚠️ Book removed from circulation: %s", book.Title)

	return nil
}
