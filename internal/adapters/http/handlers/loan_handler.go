package handlers

import (
	"errors"

	"bibliotrack/internal/core/domain"
	"bibliotrack/internal/core/services"
	"bibliotrack/internal/pkg/pagination"
	"bibliotrack/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan ledger endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
	}
}

// RequestLoanRequest represents self-service checkout request body
type RequestLoanRequest struct {
	BookID   string `json:"book_id"`
	LoanDays int    `json:"loan_days"`
	Notes    string `json:"notes"`
}

// SetLoanStatusRequest represents status override request body
type SetLoanStatusRequest struct {
	Status string `json:"status"`
}

// createLoanError maps loan creation failures onto the response envelope
func createLoanError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return response.NotFound(c, "User not found")
	case errors.Is(err, services.ErrBookNotFound):
		return response.NotFound(c, "Book not found")
	case errors.Is(err, services.ErrBookNotAvailable):
		return response.Conflict(c, "No copies available for loan")
	case errors.Is(err, services.ErrInvalidLoanPeriod):
		return response.BadRequest(c, "Loan period must be between 1 and 30 days")
	case errors.Is(err, services.ErrLoanLimitReached):
		return response.Conflict(c, "Active loan limit reached")
	case errors.Is(err, services.ErrBookAlreadyOnLoan):
		return response.Conflict(c, "User already has an active loan for this book")
	default:
		return response.InternalServerError(c, "Failed to create loan")
	}
}

// ListLoans lists all loans
// @Summary List loans
// @Description List the full ledger with pagination, newest first. Staff only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	loans, total, err := h.loanService.ListLoans(c.UserContext(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{
		"loans": loans,
		"meta":  pagination.GetMeta(params, total),
	})
}

// MyLoans lists the caller's loan history
// @Summary List own loans
// @Description List the authenticated user's full loan history
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/my-loans [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	username, ok := c.Locals("username").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanService.ListMyLoans(c.UserContext(), username)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{
		"loans": loans,
	})
}

// MyActiveLoans lists the caller's open loans
// @Summary List own active loans
// @Description List the authenticated user's ACTIVE loans, nearest due date first
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/my-active-loans [get]
func (h *LoanHandler) MyActiveLoans(c *fiber.Ctx) error {
	username, ok := c.Locals("username").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanService.ListMyActiveLoans(c.UserContext(), username)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Active loans retrieved successfully", fiber.Map{
		"loans": loans,
	})
}

// OverdueLoans lists every loan past its due date
// @Summary List overdue loans
// @Description Flag ACTIVE loans past their date as OVERDUE, then list all overdue loans. Staff only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans/overdue [get]
func (h *LoanHandler) OverdueLoans(c *fiber.Ctx) error {
	// Sweep first so the flags are persisted and the listing agrees
	// with the active views immediately after
	if _, err := h.loanService.SweepOverdue(c.UserContext()); err != nil {
		return response.InternalServerError(c, "Failed to flag overdue loans")
	}

	loans, err := h.loanService.ListOverdueLoans(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to list overdue loans")
	}

	return response.Success(c, "Overdue loans retrieved successfully", fiber.Map{
		"loans": loans,
	})
}

// Statistics summarizes the ledger
// @Summary Loan statistics
// @Description Ledger counts by status. Staff only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans/statistics [get]
func (h *LoanHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.loanService.Statistics(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to get statistics")
	}

	return response.Success(c, "Statistics retrieved successfully", stats)
}

// UserLoans lists one user's loan history
// @Summary List a user's loans
// @Description List the full loan history of the named user. Admin only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/user/{username} [get]
func (h *LoanHandler) UserLoans(c *fiber.Ctx) error {
	loans, err := h.loanService.ListUserLoans(c.UserContext(), c.Params("username"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{
		"loans": loans,
	})
}

// GetLoan gets a loan by ID
// @Summary Get loan
// @Description Get one loan. Users can only see their own loans.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c *fiber.Ctx) error {
	username, ok := c.Locals("username").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)
	privileged := domain.Role(role).IsPrivileged()

	loan, err := h.loanService.GetLoan(c.UserContext(), c.Params("id"), username, privileged)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrNotAuthorized):
			return response.Forbidden(c, "You can only view your own loans")
		default:
			return response.InternalServerError(c, "Failed to get loan")
		}
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": loan,
	})
}

// CreateLoan checks out a book on a user's behalf
// @Summary Create loan
// @Description Check a book out to the named user. Staff only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLoanInput true "Loan data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c *fiber.Ctx) error {
	processedBy, ok := c.Locals("username").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateLoanInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if input.Username == "" {
		return response.BadRequest(c, "Username is required")
	}
	if input.BookID == "" {
		return response.BadRequest(c, "Book ID is required")
	}

	loan, err := h.loanService.CreateLoan(c.UserContext(), &input, processedBy)
	if err != nil {
		return createLoanError(c, err)
	}

	return response.Created(c, "Loan created successfully", fiber.Map{
		"loan": loan,
	})
}

// RequestLoan checks out a book for the caller
// @Summary Request loan
// @Description Check a book out to the authenticated user
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RequestLoanRequest true "Loan data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/request [post]
func (h *LoanHandler) RequestLoan(c *fiber.Ctx) error {
	username, ok := c.Locals("username").(string)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RequestLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.BookID == "" {
		return response.BadRequest(c, "Book ID is required")
	}

	input := &services.CreateLoanInput{
		Username: username,
		BookID:   req.BookID,
		LoanDays: req.LoanDays,
		Notes:    req.Notes,
	}

	loan, err := h.loanService.CreateLoan(c.UserContext(), input, username)
	if err != nil {
		return createLoanError(c, err)
	}

	return response.Created(c, "Loan created successfully", fiber.Map{
		"loan": loan,
	})
}

// UpdateLoan corrects a loan's due date or notes
// @Summary Update loan
// @Description Correct a loan's due date or notes. Admin only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param body body services.UpdateLoanInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [put]
func (h *LoanHandler) UpdateLoan(c *fiber.Ctx) error {
	var input services.UpdateLoanInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loan, err := h.loanService.UpdateLoan(c.UserContext(), c.Params("id"), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrInvalidLoanPeriod):
			return response.BadRequest(c, "Due date cannot be before the loan date")
		default:
			return response.InternalServerError(c, "Failed to update loan")
		}
	}

	return response.Success(c, "Loan updated successfully", fiber.Map{
		"loan": loan,
	})
}

// ReturnLoan closes an outstanding loan
// @Summary Return loan
// @Description Close an outstanding loan as RETURNED (default) or LOST. Staff only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param body body services.ReturnLoanInput false "Return outcome"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/return [put]
func (h *LoanHandler) ReturnLoan(c *fiber.Ctx) error {
	var input services.ReturnLoanInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	loan, err := h.loanService.ReturnLoan(c.UserContext(), c.Params("id"), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotReturnable):
			return response.Conflict(c, "Loan is already closed")
		case errors.Is(err, services.ErrInvalidReturnStatus):
			return response.BadRequest(c, "Return status must be RETURNED or LOST")
		default:
			return response.InternalServerError(c, "Failed to return loan")
		}
	}

	return response.Success(c, "Loan returned successfully", fiber.Map{
		"loan": loan,
	})
}

// SetLoanStatus force-sets a loan's status
// @Summary Override loan status
// @Description Set any status with no transition checks and no inventory side effects. Admin only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param body body SetLoanStatusRequest true "New status"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id}/status [put]
func (h *LoanHandler) SetLoanStatus(c *fiber.Ctx) error {
	var req SetLoanStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loan, err := h.loanService.SetLoanStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrInvalidLoanStatus):
			return response.BadRequest(c, "Status must be ACTIVE, RETURNED, OVERDUE or LOST")
		default:
			return response.InternalServerError(c, "Failed to set loan status")
		}
	}

	return response.Success(c, "Loan status updated successfully", fiber.Map{
		"loan": loan,
	})
}

// DeleteLoan hard-deletes a loan record
// @Summary Delete loan
// @Description Remove a loan record. An outstanding loan puts its copy back first. Admin only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [delete]
func (h *LoanHandler) DeleteLoan(c *fiber.Ctx) error {
	if err := h.loanService.DeleteLoan(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, services.ErrLoanNotFound) {
			return response.NotFound(c, "Loan not found")
		}
		return response.InternalServerError(c, "Failed to delete loan")
	}

	return response.Success(c, "Loan deleted successfully", nil)
}

// Reconcile squares shelf counts against the ledger
// @Summary Reconcile inventory
// @Description Recompute every book's available count from outstanding loans and fix drift. Admin only.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans/reconcile [post]
func (h *LoanHandler) Reconcile(c *fiber.Ctx) error {
	corrections, err := h.loanService.ReconcileInventory(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to reconcile inventory")
	}

	return response.Success(c, "Inventory reconciled successfully", fiber.Map{
		"corrections": corrections,
	})
}
