package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/app"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/platform"
	"github.com/MrSnakeDoc/smartmarks/internal/sources/homepage"
	"github.com/MrSnakeDoc/smartmarks/internal/utils"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	User   string
	File   string
	DryRun bool
}

// Importer is the slice of the platform the import needs.
type Importer interface {
	ResolveUser(ctx context.Context, ref string) (domain.User, error)
	InsertBookmark(ctx context.Context, draft domain.Draft) (domain.Bookmark, error)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import --user <id|email> --file <bookmarks.yaml>",
		Short: "Import a Homepage bookmarks.yaml into an account",
		Long: `Import bookmarks from a Homepage dashboard bookmarks.yaml.

The user must have signed in once. Bookmarks are inserted through the
platform, so open tabs of that user see them appear live. The first
bookmark of the file ends up at the top of the list.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := homepage.NewLoader(opts.File).Load()
			if err != nil {
				return err
			}

			if opts.DryRun {
				drafts, err := homepage.Drafts(config, "")
				if err != nil {
					return err
				}
				return printDrafts(cmd.OutOrStdout(), drafts)
			}

			cfg, log, err := rootOpts.load()
			if err != nil {
				return err
			}
			popts, err := app.PlatformOptions(cfg, log)
			if err != nil {
				return err
			}
			client, err := platform.New(cmd.Context(), popts, log)
			if err != nil {
				return err
			}
			defer utils.CloseLogged(client, log, "platform")

			n, err := importBookmarks(cmd.Context(), client, opts.User, config, log)
			if n > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d bookmark(s) for %s\n", n, opts.User)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "account id or email")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", `bookmarks.yaml path ("-" for stdin)`)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print what would be imported")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// importBookmarks inserts the config's drafts for the user named by ref,
// last first, and returns how many were inserted. It stops at the first
// failed insert.
func importBookmarks(ctx context.Context, dst Importer, ref string, config homepage.BookmarksConfig, log logger.Logger) (int, error) {
	if ref == "" {
		return 0, fmt.Errorf("--user is required")
	}
	user, err := dst.ResolveUser(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("resolve user %q: %w", ref, err)
	}

	drafts, err := homepage.Drafts(config, user.ID)
	if err != nil {
		return 0, err
	}

	n := 0
	for i := len(drafts) - 1; i >= 0; i-- {
		b, err := dst.InsertBookmark(ctx, drafts[i])
		if err != nil {
			return n, fmt.Errorf("insert %q: %w", drafts[i].URL, err)
		}
		log.Debug("bookmark imported", logger.String("id", b.ID), logger.String("url", b.URL))
		n++
	}
	return n, nil
}

func printDrafts(w io.Writer, drafts []domain.Draft) error {
	for _, d := range drafts {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", d.Title, d.URL); err != nil {
			return err
		}
	}
	return nil
}
