package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/fwojciec/deck"
	deckgorm "github.com/fwojciec/deck/gorm"
	"github.com/fwojciec/deck/studio"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds what the commands share once flags and config are resolved.
type app struct {
	env    Env
	stdout io.Writer
	stderr io.Writer

	cfg     Config
	logger  *logrus.Logger
	db      *deckgorm.DB
	closers []func() error
}

// setup resolves configuration and opens the logger and the database.
// tui forces logging to a file since the terminal is taken.
func (a *app) setup(cmd *cobra.Command, tui bool) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	explicit := flags.Changed("config")
	if path == "" {
		path = defaultConfigPath(a.env.Home)
	}
	cfg, err := loadConfig(path, explicit, defaultConfig(a.env.Home))
	if err != nil {
		return err
	}
	cfg = applyFlags(cfg, flags)
	if tui && cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(configDir(a.env.Home), "deck.log")
	}
	a.cfg = cfg

	logger, sink, err := newLogger(cfg.LogLevel, cfg.LogFile, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, sink.Close)

	db, err := deckgorm.Open(cfg.DB, deckgorm.WithLogger(logger))
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	logger.WithField("db", cfg.DB).Debug("deck: database open")
	return nil
}

// studio builds the studio. withProvider is false for commands that never
// call the model.
func (a *app) studio(ctx context.Context, withProvider bool) (*studio.Studio, error) {
	opts := []studio.Option{studio.WithLogger(a.logger)}
	if a.cfg.Model != "" {
		opts = append(opts, studio.WithModel(a.cfg.Model))
	}
	if a.cfg.MaxSteps > 0 {
		opts = append(opts, studio.WithMaxSteps(a.cfg.MaxSteps))
	}
	if a.cfg.Metrics {
		w := a.logger.Writer()
		a.closers = append(a.closers, w.Close)
		meter, shutdown, err := newMeter(w)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
		opts = append(opts, studio.WithMeter(meter))
	}
	var provider deck.Provider
	if withProvider {
		p, err := resolveProvider(ctx, a.cfg, a.env, a.logger)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	return studio.New(a.db, a.db, provider, opts...), nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
