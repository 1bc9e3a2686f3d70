// Command deck builds infographic slides by chatting with a model.
//
// Usage:
//
//	ANTHROPIC_API_KEY=sk-... deck [--slide id]
//	GEMINI_API_KEY=gk-...   deck serve --addr :8080
//	deck list | chats | new [title] | import <glob>... | export <slide-id> | version
//
// Settings are read from ~/.deck/config.yaml and overridden by flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/fwojciec/deck"
	bt "github.com/fwojciec/deck/bubbletea"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{env: readEnv(), stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "deck: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	var slideID string
	root := &cobra.Command{
		Use:           "deck",
		Short:         "Build infographic slides by chatting with a model",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(a, true, func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), a, slideID)
		}),
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ~/.deck/config.yaml)")
	pf.String("db", "", "SQLite database path (default ~/.deck/deck.db)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-file", "", "write logs to a rotating file")
	pf.String("provider", "", "provider: anthropic, gemini (detected from API keys if omitted)")
	pf.String("model", "", "model id (provider default if omitted)")
	pf.String("api-key", "", "API key (overrides the provider's environment variable)")
	pf.Bool("metrics", false, "export metrics to the log")
	root.Flags().StringVar(&slideID, "slide", "", "slide to open (default: most recently updated)")

	root.AddCommand(
		newServeCommand(a),
		newListCommand(a),
		newChatsCommand(a),
		newNewCommand(a),
		newImportCommand(a),
		newExportCommand(a),
		newVersionCommand(a),
	)
	return root
}

// withApp wraps a command body with app setup and teardown.
func withApp(a *app, tui bool, fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(cmd, tui); err != nil {
			return errors.Join(err, a.close())
		}
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, args)
	}
}

func runTUI(ctx context.Context, a *app, slideID string) error {
	st, err := a.studio(ctx, true)
	if err != nil {
		return err
	}
	if slideID == "" {
		slideID, err = latestSlide(ctx, a, st.Create)
		if err != nil {
			return err
		}
	}
	sess, err := st.Open(ctx, slideID)
	if err != nil {
		return err
	}
	defer sess.Close()

	a.logger.WithField("slide_id", slideID).Info("deck: tui start")
	if err := bt.Run(ctx, bt.New(sess, deck.DefaultTheme())); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// latestSlide returns the most recently updated slide, creating one when
// there is none.
func latestSlide(ctx context.Context, a *app, create func(context.Context, string) (*deck.Slide, error)) (string, error) {
	slides, err := a.db.ListSlides(ctx)
	if err != nil {
		return "", err
	}
	if len(slides) == 0 {
		s, err := create(ctx, "")
		if err != nil {
			return "", err
		}
		return s.ID, nil
	}
	latest := slices.MaxFunc(slides, func(x, y *deck.Slide) int {
		return x.UpdatedAt.Compare(y.UpdatedAt)
	})
	return latest.ID, nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "deck %s\n", version)
		},
	}
}
