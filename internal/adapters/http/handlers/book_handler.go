package handlers

import (
	"errors"

	"bibliotrack/internal/core/services"
	"bibliotrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles catalog endpoints
type BookHandler struct {
	bookService *services.BookService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{
		bookService: bookService,
	}
}

// ListBooks lists the catalog
// @Summary List books
// @Description List all active books. Pass searchTerm to filter by title, author, ISBN or category.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param searchTerm query string false "Search term"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) ListBooks(c *fiber.Ctx) error {
	term := c.Query("searchTerm")

	var err error
	var books interface{}
	if term != "" {
		books, err = h.bookService.SearchBooks(c.UserContext(), term)
	} else {
		books, err = h.bookService.ListBooks(c.UserContext())
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", fiber.Map{
		"books": books,
	})
}

// SearchBooks searches the catalog
// @Summary Search books
// @Description Search active books by title, author, ISBN or category
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param searchTerm query string true "Search term"
// @Success 200 {object} response.Response
// @Router /books/search [get]
func (h *BookHandler) SearchBooks(c *fiber.Ctx) error {
	books, err := h.bookService.SearchBooks(c.UserContext(), c.Query("searchTerm"))
	if err != nil {
		return response.InternalServerError(c, "Failed to search books")
	}

	return response.Success(c, "Books retrieved successfully", fiber.Map{
		"books": books,
	})
}

// GetBook gets a book by ID
// @Summary Get book
// @Description Get one active book
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	book, err := h.bookService.GetBookByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", fiber.Map{
		"book": book,
	})
}

// GetAvailability reports whether a title can be borrowed
// @Summary Get book availability
// @Description Report whether copies of a title are on the shelf
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id}/availability [get]
func (h *BookHandler) GetAvailability(c *fiber.Ctx) error {
	availability, err := h.bookService.GetAvailability(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get availability")
	}

	return response.Success(c, "Availability retrieved successfully", availability)
}

// CreateBook adds a title to the catalog
// @Summary Create book
// @Description Add a title to the catalog. Staff only.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books [post]
func (h *BookHandler) CreateBook(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)

	var input services.BookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.bookService.CreateBook(c.UserContext(), &input, username)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingBookFields):
			return response.BadRequest(c, "Title and author are required")
		case errors.Is(err, services.ErrDuplicateISBN):
			return response.Conflict(c, "An active book with this ISBN already exists")
		default:
			return response.InternalServerError(c, "Failed to create book")
		}
	}

	return response.Created(c, "Book created successfully", fiber.Map{
		"book": book,
	})
}

// UpdateBook updates a catalog entry
// @Summary Update book
// @Description Update a catalog entry. Staff only.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Param body body services.BookInput true "Book data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) UpdateBook(c *fiber.Ctx) error {
	var input services.BookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.bookService.UpdateBook(c.UserContext(), c.Params("id"), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, services.ErrMissingBookFields):
			return response.BadRequest(c, "Title and author are required")
		case errors.Is(err, services.ErrDuplicateISBN):
			return response.Conflict(c, "An active book with this ISBN already exists")
		default:
			return response.InternalServerError(c, "Failed to update book")
		}
	}

	return response.Success(c, "Book updated successfully", fiber.Map{
		"book": book,
	})
}

// DeleteBook removes a title from circulation
// @Summary Delete book
// @Description Soft-delete a title. Loan history keeps its reference. Admin only.
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) DeleteBook(c *fiber.Ctx) error {
	if err := h.bookService.DeleteBook(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to delete book")
	}

	return response.Success(c, "Book deleted successfully", nil)
}
