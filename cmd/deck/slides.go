package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/deck"
	deckjson "github.com/fwojciec/deck/json"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List slides",
		Args:  cobra.NoArgs,
		RunE: withApp(a, false, func(cmd *cobra.Command, _ []string) error {
			slides, err := a.db.ListSlides(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tINFOGRAPHICS\tUPDATED")
			for _, s := range slides {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Title, len(s.Infographics), s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		}),
	}
}

func newChatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats",
		Args:  cobra.NoArgs,
		RunE: withApp(a, false, func(cmd *cobra.Command, _ []string) error {
			chats, err := a.db.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
			for _, c := range chats {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Title, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		}),
	}
}

func newNewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty slide and print its id",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(a, false, func(cmd *cobra.Command, args []string) error {
			var title string
			if len(args) == 1 {
				title = args[0]
			}
			st, err := a.studio(cmd.Context(), false)
			if err != nil {
				return err
			}
			s, err := st.Create(cmd.Context(), title)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, s.ID)
			return nil
		}),
	}
}

func newImportCommand(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <glob>...",
		Short: "Import slides from JSON files",
		Long:  "Import slides from JSON files. Patterns support ** to match across directories.",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(a, false, func(cmd *cobra.Command, args []string) error {
			var paths []string
			for _, pattern := range args {
				matches, err := doublestar.FilepathGlob(pattern)
				if err != nil {
					return fmt.Errorf("import: pattern %q: %w", pattern, err)
				}
				paths = append(paths, matches...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("import: no files match %v", args)
			}
			var n int
			for _, path := range paths {
				if err := importSlide(cmd.Context(), a, path, replace); err != nil {
					if errors.Is(err, deck.ErrConflict) {
						a.logger.WithField("path", path).Warn("deck: slide exists, skipped (use --replace)")
						continue
					}
					return err
				}
				n++
			}
			fmt.Fprintf(a.stdout, "imported %d of %d slides\n", n, len(paths))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite slides that already exist")
	return cmd
}

func importSlide(ctx context.Context, a *app, path string, replace bool) error {
	slide, chat, err := deckjson.ImportSlide(path)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	err = a.db.CreateSlide(ctx, &slide)
	if errors.Is(err, deck.ErrConflict) && replace {
		err = a.db.UpdateSlide(ctx, &slide)
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if chat != nil {
		if err := a.db.SaveChat(ctx, chat); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}
	return nil
}

func newExportCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <slide-id>",
		Short: "Export a slide with its chat to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(a, false, func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			slide, err := a.db.FindSlideByID(ctx, args[0])
			if err != nil {
				return err
			}
			var chat *deck.Chat
			if slide.ChatID != "" {
				chat, err = a.db.FindChatByID(ctx, slide.ChatID)
				if err != nil && !errors.Is(err, deck.ErrNotFound) {
					return err
				}
			}
			if out == "-" {
				data, err := deckjson.MarshalSlide(*slide, chat)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.stdout, string(data))
				return err
			}
			if out == "" {
				out = slide.ID + ".json"
			}
			if err := deckjson.ExportSlide(out, *slide, chat); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", `output path, "-" for stdout (default <slide-id>.json)`)
	return cmd
}

