package repositories

import (
	"context"
	"strings"
	"time"

	"bibliotrack/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// logRepository implements LogRepository interface
type logRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new audit log repository
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

// Append inserts a log entry. Entries are never updated or deleted.
func (r *logRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Recent returns the newest entries up to limit
func (r *logRepository) Recent(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	var entries []*models.LogEntry
	err := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// CountByLevel counts entries at the given level
func (r *logRepository) CountByLevel(ctx context.Context, level string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LogEntry{}).
		Where("level = ?", level).Count(&count).Error
	return count, err
}

// ListByRange lists entries between from and to inclusive, newest first
func (r *logRepository) ListByRange(ctx context.Context, from, to time.Time) ([]*models.LogEntry, error) {
	var entries []*models.LogEntry
	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from, to).
		Order("timestamp DESC").Find(&entries).Error
	return entries, err
}

// ListByUsername lists entries recorded for a user, newest first
func (r *logRepository) ListByUsername(ctx context.Context, username string) ([]*models.LogEntry, error) {
	var entries []*models.LogEntry
	err := r.db.WithContext(ctx).Where("username = ?", username).
		Order("timestamp DESC").Find(&entries).Error
	return entries, err
}

// Search finds entries whose message contains the term, case-insensitively
func (r *logRepository) Search(ctx context.Context, term string) ([]*models.LogEntry, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	var entries []*models.LogEntry
	err := r.db.WithContext(ctx).
		Where("LOWER(message) LIKE ?", pattern).
		Order("timestamp DESC").Find(&entries).Error
	return entries, err
}

// CountsByLevel returns entry counts grouped by level
func (r *logRepository) CountsByLevel(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Level string
		Total int64
	}

	err := r.db.WithContext(ctx).Model(&models.LogEntry{}).
		Select("level, COUNT(*) AS total").
		Group("level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Level] = row.Total
	}
	return counts, nil
}
