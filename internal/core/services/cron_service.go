package services

import (
	"context"
	"log"
	"os"

	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/pkg/audit"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService runs the nightly maintenance jobs: the overdue sweep at
// 00:00 and the inventory reconciliation pass at 00:30.
type CronService struct {
	cron        *cron.Cron
	loanService *LoanService
}

// NewCronService wires the scheduled jobs against the database
func NewCronService(db *gorm.DB) *CronService {
	loanRepo := repositories.NewLoanRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	userRepo := repositories.NewUserRepository(db)
	logRepo := repositories.NewLogRepository(db)

	auditService := NewAuditService(logRepo, audit.NewLogger(os.Stdout))
	loanService := NewLoanService(loanRepo, bookRepo, userRepo, auditService)

	return &CronService{
		cron:        cron.New(),
		loanService: loanService,
	}
}

// Start registers and starts the scheduled jobs
func (s *CronService) Start() {
	s.cron.AddFunc("0 0 * * *", s.sweepOverdueLoans)
	s.cron.AddFunc("30 0 * * *", s.reconcileInventory)
	s.cron.Start()
	log.Println("🚀 CronService started (overdue sweep 00:00, inventory reconcile 00:30)")
}

// Stop stops the scheduler
func (s *CronService) Stop() {
	s.cron.Stop()
	log.Println("🛑 CronService stopped")
}

// jobContext builds a context carrying the system actor so the audit
// trail attributes job writes to the scheduler, not to a user
func (s *CronService) jobContext(action string) context.Context {
	return audit.WithActor(context.Background(), audit.Actor{
		Username:   "system",
		Role:       "SYSTEM",
		Controller: "CronService",
		Action:     action,
	})
}

func (s *CronService) sweepOverdueLoans() {
	ctx := s.jobContext("overdue-sweep")

	flipped, err := s.loanService.SweepOverdue(ctx)
	if err != nil {
		log.Printf("❌ Overdue sweep failed: %v", err)
		return
	}

	log.Printf("⏰ Overdue sweep done: %d loans flagged", flipped)
}

func (s *CronService) reconcileInventory() {
	ctx := s.jobContext("inventory-reconcile")

	corrections, err := s.loanService.ReconcileInventory(ctx)
	if err != nil {
		log.Printf("❌ Inventory reconciliation failed: %v", err)
		return
	}

	log.Printf("⏰ Inventory reconciliation done: %d books corrected", len(corrections))
}
