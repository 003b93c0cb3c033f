package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupConfig configures periodic sqlite snapshots.
type BackupConfig struct {
	Enabled       bool
	Interval      time.Duration
	Dir           string
	RetentionDays int
}

// Backup copies the database file to a timestamped snapshot on a fixed
// interval and prunes snapshots past retention.
type Backup struct {
	dbPath string
	cfg    BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

// NewBackup creates a backup service for the database at dbPath.
func NewBackup(dbPath string, cfg BackupConfig, logger *zerolog.Logger) *Backup {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &Backup{dbPath: dbPath, cfg: cfg, logger: logger, now: time.Now}
}

// Run snapshots immediately and then on every interval tick until ctx is
// cancelled.
func (b *Backup) Run(ctx context.Context) {
	if !b.cfg.Enabled {
		b.logger.Info().Msg("backups disabled")
		return
	}

	b.logger.Info().Dur("interval", b.cfg.Interval).Str("dir", b.cfg.Dir).Msg("backup service started")

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	if err := b.Snapshot(); err != nil {
		b.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Snapshot(); err != nil {
				b.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			b.prune()
		}
	}
}

// Snapshot copies the database file into the backup directory.
func (b *Backup) Snapshot() error {
	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("velora_%s.db", b.now().Format("20060102_150405"))
	path := filepath.Join(b.cfg.Dir, name)

	source, err := os.Open(b.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(path)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err = io.Copy(destination, source); err != nil {
		return err
	}

	b.logger.Info().Str("path", path).Msg("backup written")
	return nil
}

func (b *Backup) prune() {
	if b.cfg.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(b.cfg.Dir)
	if err != nil {
		b.logger.Error().Err(err).Msg("read backup directory failed")
		return
	}

	cutoff := b.now().AddDate(0, 0, -b.cfg.RetentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			b.logger.Info().Str("file", file.Name()).Msg("deleting expired backup")
			os.Remove(filepath.Join(b.cfg.Dir, file.Name()))
		}
	}
}
