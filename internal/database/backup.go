package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eyegic/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	backupPrefix     = "eyegic_"
	backupExt        = ".db"
	fallbackSchedule = "@daily"
)

// BackupService snapshots the SQLite store into StoragePath on a cron schedule.
type BackupService struct {
	dbPath string
	config config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start takes one snapshot immediately, then follows the schedule until ctx is done.
// An unparsable schedule falls back to daily.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	c := cron.New()
	schedule := s.config.Schedule
	if _, err := c.AddFunc(schedule, s.runScheduled); err != nil {
		s.logger.Warn().Err(err).Str("schedule", schedule).Msg("Invalid backup schedule, using " + fallbackSchedule)
		schedule = fallbackSchedule
		if _, err := c.AddFunc(schedule, s.runScheduled); err != nil {
			s.logger.Error().Err(err).Msg("Failed to schedule backups")
			return
		}
	}

	s.logger.Info().Str("schedule", schedule).Msg("Backup service started")
	s.runScheduled()

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info().Msg("Backup service stopped")
}

func (s *BackupService) runScheduled() {
	if _, err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("Backup failed")
	}
	if removed := s.CleanupOldBackups(); removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Old backups pruned")
	}
}

// PerformBackup writes a consistent snapshot with VACUUM INTO and returns its path.
func (s *BackupService) PerformBackup() (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + s.now().Format("20060102_150405") + backupExt
	backupPath := filepath.Join(s.config.StoragePath, name)

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}

	s.logger.Info().Str("path", backupPath).Msg("Database backup written")
	return backupPath, nil
}

// CleanupOldBackups deletes snapshots older than RetentionDays and returns how many
// it removed. Files not named like snapshots are left alone.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		info, err := file.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.StoragePath, name)); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to delete old backup")
			continue
		}
		removed++
	}
	return removed
}
