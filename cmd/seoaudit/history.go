package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/report"
)

const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "Browse saved audits",
		Long: `History reads the local audit database.

Without arguments it lists every audited host. With a host it lists the
audits of that host, newest first.

Examples:
  # List audited hosts
  seoaudit history

  # List audits of a host
  seoaudit history www.example.com

  # Print a saved audit (an ID prefix is enough)
  seoaudit history --show 3f2a9c1e

  # Show how one page changed over time
  seoaudit history --trend https://www.example.com/pricing

  # Delete a saved audit
  seoaudit history --delete 3f2a9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("show", "", "Print the saved audit with this ID or unique ID prefix")
	cmd.Flags().String("trend", "", "Show the saved metrics of one page URL across audits")
	cmd.Flags().String("delete", "", "Delete the saved audit with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of entries to show (0 = all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	cmd.MarkFlagsMutuallyExclusive("show", "trend", "delete")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	show     string
	trend    string
	del      string
	limit    int
	json     bool
	markdown bool
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	if opts.show, err = cmd.Flags().GetString("show"); err != nil {
		return opts, err
	}
	if opts.trend, err = cmd.Flags().GetString("trend"); err != nil {
		return opts, err
	}
	if opts.del, err = cmd.Flags().GetString("delete"); err != nil {
		return opts, err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.limit < 0 {
		return opts, errors.New("--limit must not be negative")
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.del != "":
		id, err := uuid.Parse(opts.del)
		if err != nil {
			return fmt.Errorf("--delete requires a full audit ID: %w", err)
		}
		if err := db.DeleteAudit(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted audit %s\n", id)
		return nil

	case opts.show != "":
		audit, err := db.FindAudit(ctx, opts.show)
		if err != nil {
			return err
		}
		_, err = historyWriter(opts, out).Write(audit)
		return err

	case opts.trend != "":
		snapshots, err := db.PageTrend(ctx, opts.trend, opts.limit)
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			return fmt.Errorf("no saved snapshots of %s", opts.trend)
		}
		writeTrendTable(out, snapshots)
		return nil

	case len(args) == 0:
		hosts, err := db.ListHosts(ctx)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			fmt.Fprintln(out, "No saved audits.")
			return nil
		}
		fmt.Fprintln(out, "Audited hosts:")
		for _, h := range hosts {
			fmt.Fprintf(out, "  %s\n", h)
		}
		return nil
	}

	host := hostArg(args[0])
	briefs, err := db.History(ctx, host, opts.limit)
	if err != nil {
		return err
	}
	if len(briefs) == 0 {
		return fmt.Errorf("no audit history found for %s", host)
	}
	_, err = historyWriter(opts, out).WriteHistory(briefs)
	return err
}

// historyWriter picks the report writer for the output flags.
func historyWriter(opts historyOptions, w io.Writer) report.Writer {
	switch {
	case opts.json:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case opts.markdown:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(true))
	}
}

func writeTrendTable(w io.Writer, snapshots []database.PageSnapshot) {
	fmt.Fprintf(w, "Trend of %s\n\n", snapshots[0].URL)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AUDITED\tTITLE\tMETA\tH1\tWORDS\tNO ALT\tFCP\tLOAD\tUNUSED JS\tJS ERRORS")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%d\n",
			s.AuditedAt.Local().Format("2006-01-02 15:04"),
			s.TitleStatus, s.MetaStatus,
			s.H1Count, s.WordCount, s.MissingAlt,
			optionalValue(s.FCP, "ms"), optionalValue(s.FullLoad, "ms"), optionalValue(s.UnusedJSPercent, "%"),
			s.JSErrors,
		)
	}
	_ = tw.Flush()
}

func optionalValue(v *int64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d%s", *v, unit)
}

// openHistoryDB opens the existing history database selected by --db-dir.
func openHistoryDB(cmd *cobra.Command) (*database.AuditDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database (run an audit first): %w", err)
	}
	return db, nil
}

// hostArg accepts a bare host or a URL and returns the host as stored in
// the history database.
func hostArg(arg string) string {
	if strings.Contains(arg, "://") {
		if u, err := url.Parse(arg); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return strings.ToLower(strings.TrimSuffix(arg, "/"))
}
