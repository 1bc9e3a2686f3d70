// Package gorm implements [deck.SlideService] and [deck.ChatService] on
// SQLite through GORM.
//
// Infographics are stored as one JSON column per slide and messages as one
// row per message, both in the wire format of the json package.
package gorm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/deck"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface compliance checks.
var (
	_ deck.SlideService = (*DB)(nil)
	_ deck.ChatService  = (*DB)(nil)
)

// DB is a SQLite-backed store for slides and chats.
type DB struct {
	db     *gorm.DB
	clock  deck.Clock
	logger logrus.FieldLogger
}

// Option configures a [DB].
type Option func(*DB)

// WithClock sets the clock used for CreatedAt and UpdatedAt stamps.
func WithClock(c deck.Clock) Option {
	return func(d *DB) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *DB) { d.logger = l }
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string, opts ...Option) (*DB, error) {
	d := &DB{
		clock:  deck.SystemClock(),
		logger: logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(d)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("gorm: create directory: %w", err)
	}
	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&chatRow{}, &messageRow{}, &slideRow{}); err != nil {
		return nil, fmt.Errorf("gorm: migrate: %w", err)
	}
	d.db = db
	d.logger.WithField("path", path).Debug("gorm: database opened")
	return d, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("gorm: %w", err)
	}
	return sqlDB.Close()
}

func (d *DB) now() time.Time {
	return d.clock.Now().UTC()
}
