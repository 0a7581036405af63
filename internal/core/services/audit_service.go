package services

import (
	"context"
	"log/slog"
	"time"

	"bibliotrack/internal/adapters/persistence/models"
	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/core/domain"
	"bibliotrack/internal/pkg/audit"
)

const (
	defaultRecentLogs = 50
	maxRecentLogs     = 1000
)

// AuditService appends application events to the persistent audit log
// and mirrors each event to the leveled logger.
type AuditService struct {
	logRepo repositories.LogRepository
	logger  *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(logRepo repositories.LogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		logRepo: logRepo,
		logger:  logger,
	}
}

// Record persists one audit entry, stamping it with the actor carried
// by the context. The write is synchronous on the caller's path.
// Persistence failures are mirrored to the logger and swallowed:
// business flows never fail on audit trouble.
func (s *AuditService) Record(ctx context.Context, level domain.LogLevel, message string, cause error) {
	level = domain.NormalizeLogLevel(string(level))

	entry := &models.LogEntry{
		Timestamp: time.Now(),
		Level:     string(level),
		Message:   message,
	}
	if cause != nil {
		entry.Exception = cause.Error()
	}

	if actor, ok := audit.FromContext(ctx); ok {
		entry.Username = actor.Username
		entry.Controller = actor.Controller
		entry.Action = actor.Action
	}

	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "audit log append failed",
			slog.String("message", message),
			slog.String("error", err.Error()),
		)
	}

	attrs := []slog.Attr{
		slog.String("username", entry.Username),
		slog.String("controller", entry.Controller),
		slog.String("action", entry.Action),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("exception", cause.Error()))
	}
	s.logger.LogAttrs(ctx, audit.Level(level), message, attrs...)
}

// Recent returns the newest entries, clamping limit into its valid range
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	if limit < 1 {
		limit = defaultRecentLogs
	}
	if limit > maxRecentLogs {
		limit = maxRecentLogs
	}
	return s.logRepo.Recent(ctx, limit)
}

// CountByLevel counts entries at the given level. Unknown level names
// fall back to DEBUG, the same mapping used when recording.
func (s *AuditService) CountByLevel(ctx context.Context, level string) (int64, error) {
	normalized := domain.NormalizeLogLevel(level)
	return s.logRepo.CountByLevel(ctx, string(normalized))
}

// ListByRange lists entries between from and to inclusive
func (s *AuditService) ListByRange(ctx context.Context, from, to time.Time) ([]*models.LogEntry, error) {
	return s.logRepo.ListByRange(ctx, from, to)
}

// ListByUser lists entries recorded for a username
func (s *AuditService) ListByUser(ctx context.Context, username string) ([]*models.LogEntry, error) {
	return s.logRepo.ListByUsername(ctx, username)
}

// Search finds entries whose message contains the term
func (s *AuditService) Search(ctx context.Context, term string) ([]*models.LogEntry, error) {
	return s.logRepo.Search(ctx, term)
}

// LogStatistics summarizes the audit log by level
type LogStatistics struct {
	Total   int64            `json:"total"`
	ByLevel map[string]int64 `json:"by_level"`
}

// Statistics returns per-level counts plus the total.
// Every known level appears in the map, zero when absent.
func (s *AuditService) Statistics(ctx context.Context) (*LogStatistics, error) {
	counts, err := s.logRepo.CountsByLevel(ctx)
	if err != nil {
		return nil, err
	}

	stats := &LogStatistics{
		ByLevel: make(map[string]int64, 6),
	}
	for _, level := range []domain.LogLevel{
		domain.LogLevelTrace,
		domain.LogLevelDebug,
		domain.LogLevelInformation,
		domain.LogLevelWarning,
		domain.LogLevelError,
		domain.LogLevelCritical,
	} {
		stats.ByLevel[string(level)] = counts[string(level)]
		stats.Total += counts[string(level)]
	}

	return stats, nil
}
