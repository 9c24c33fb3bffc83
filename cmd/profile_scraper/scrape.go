package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jonathan/profile-scraper/internal/batch"
	"github.com/jonathan/profile-scraper/internal/browser"
	"github.com/jonathan/profile-scraper/internal/config"
	"github.com/jonathan/profile-scraper/internal/db"
	"github.com/jonathan/profile-scraper/internal/input"
	"github.com/jonathan/profile-scraper/internal/observability"
	"github.com/jonathan/profile-scraper/internal/output"
	"github.com/jonathan/profile-scraper/internal/page"
	"github.com/jonathan/profile-scraper/internal/scrape"
	"github.com/jonathan/profile-scraper/internal/session"
)

var scrapeCommand = &cobra.Command{
	Use:   "scrape",
	Short: "Sign in and extract every profile in an input list",
	Long: `Signs in once, then visits each identifier in the input file in order and writes exactly one record per identifier.

The input may be a spreadsheet (.xlsx, first column), a CSV file (first column) or a text file with one identifier per line.
Credentials come from --email/--password or the LINKEDIN_EMAIL/LINKEDIN_PASSWORD environment variables.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.`,
	RunE: runScrapeCmd,
}

// scrapeFlags holds the raw flag values for the scrape command.
type scrapeFlags struct {
	configPath    string
	input         string
	output        string
	jsonl         string
	sqlite        string
	databaseURL   string
	driver        string
	showBrowser   bool
	chromePath    string
	userAgent     string
	delay         float64
	pageTimeout   float64
	loginTimeout  float64
	settle        float64
	expandSettle  float64
	contactSettle float64
	email         string
	password      string
	verbose       bool
	logFormat     string
}

var scrapeOpts scrapeFlags

func init() {
	f := scrapeCommand.Flags()

	// Config file flag (processed first)
	f.StringVar(&scrapeOpts.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	f.StringVarP(&scrapeOpts.input, "input", "i", "", "Spreadsheet, CSV or text file of profile identifiers")
	f.StringVarP(&scrapeOpts.output, "output", "o", "", "CSV output path (default \""+config.DefaultOutput+"\")")
	f.StringVar(&scrapeOpts.jsonl, "jsonl", "", "Also write schema-validated JSON lines to this path")
	f.StringVar(&scrapeOpts.sqlite, "sqlite", "", "Also store records in this SQLite database")
	f.StringVar(&scrapeOpts.databaseURL, "db-url", "", "Also store records in PostgreSQL (optional, defaults to DATABASE_URL env var)")

	f.StringVar(&scrapeOpts.driver, "driver", "", "Browser driver: chromedp or rod (default \""+config.DefaultDriver+"\")")
	f.BoolVar(&scrapeOpts.showBrowser, "show-browser", false, "Run Chrome with a visible window")
	f.StringVar(&scrapeOpts.chromePath, "chrome-path", "", "Chrome executable to launch instead of the detected one")
	f.StringVar(&scrapeOpts.userAgent, "user-agent", "", "Override the browser user agent")

	f.Float64Var(&scrapeOpts.delay, "delay", 0, "Seconds to pause after each profile before starting the next (default 3)")
	f.Float64Var(&scrapeOpts.pageTimeout, "page-timeout", 0, "Seconds to wait for a profile page to load (default 10)")
	f.Float64Var(&scrapeOpts.loginTimeout, "login-timeout", 0, "Seconds to wait for each login step (default 10)")
	f.Float64Var(&scrapeOpts.settle, "settle", 0, "Seconds to wait after a profile page loads (default 2)")
	f.Float64Var(&scrapeOpts.expandSettle, "expand-settle", 0, "Seconds to wait after each \"show more\" click (default 0.5)")
	f.Float64Var(&scrapeOpts.contactSettle, "contact-settle", 0, "Seconds to wait after opening contact info (default 1)")

	f.StringVar(&scrapeOpts.email, "email", "", "Account email (optional, defaults to "+config.EnvEmail+" env var)")
	f.StringVar(&scrapeOpts.password, "password", "", "Account password (optional, defaults to "+config.EnvPassword+" env var)")

	f.BoolVarP(&scrapeOpts.verbose, "verbose", "v", false, "Log debug detail and print each record")
	f.StringVar(&scrapeOpts.logFormat, "log-format", "", "Log format: text or json (default \""+config.DefaultLogFormat+"\")")

	rootCmd.AddCommand(scrapeCommand)
}

// apply copies every flag the user set explicitly onto cfg.
func (f *scrapeFlags) apply(cfg *config.Config, changed func(name string) bool) {
	if changed("input") {
		cfg.Input = f.input
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("jsonl") {
		cfg.JSONL = f.jsonl
	}
	if changed("sqlite") {
		cfg.SQLite = f.sqlite
	}
	if changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if changed("driver") {
		cfg.Driver = f.driver
	}
	if changed("show-browser") {
		cfg.ShowBrowser = f.showBrowser
	}
	if changed("chrome-path") {
		cfg.ChromePath = f.chromePath
	}
	if changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}
	if changed("delay") {
		cfg.DelaySeconds = f.delay
	}
	if changed("page-timeout") {
		cfg.PageTimeoutSeconds = f.pageTimeout
	}
	if changed("login-timeout") {
		cfg.LoginTimeoutSeconds = f.loginTimeout
	}
	if changed("settle") {
		cfg.SettleSeconds = f.settle
	}
	if changed("expand-settle") {
		cfg.ExpandSettleSeconds = f.expandSettle
	}
	if changed("contact-settle") {
		cfg.ContactSettleSeconds = f.contactSettle
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
}

// resolveConfig layers defaults, the config file and explicit flags, in
// increasing priority. Explicit zeros survive every layer.
func resolveConfig(f *scrapeFlags, changed func(name string) bool) (config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	f.apply(&cfg, changed)
	cfg = cfg.MergeWithDefaults(config.DefaultConfig())

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Input == "" {
		return config.Config{}, fmt.Errorf("--input must be provided (via flag or config)")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(&scrapeOpts, cmd.Flags().Changed)
	if err != nil {
		return err
	}

	creds := config.Credentials{Email: scrapeOpts.email, Password: scrapeOpts.password}.Or(config.CredentialsFromEnv())
	if err := creds.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	if err != nil {
		return err
	}

	ids, err := input.Read(cfg.Input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New()
	sinks, stores, err := openSinks(ctx, cfg, runID, len(ids), logger)
	if err != nil {
		return err
	}

	kind, err := browser.ParseKind(cfg.Driver)
	if err != nil {
		abandon(sinks, stores)
		return err
	}
	driver, err := browser.New(ctx, kind, browser.Options{
		Headless:  !cfg.ShowBrowser,
		ExecPath:  cfg.ChromePath,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		abandon(sinks, stores)
		return fmt.Errorf("failed to start browser: %w", err)
	}

	manager := session.NewManager(driver, creds, session.Options{
		Timeout: cfg.LoginTimeout(),
		Logger:  logger,
	})
	scraper := scrape.New(manager, scrape.Options{
		Sync: page.NewSynchronizer(page.Options{
			Timeout: cfg.PageTimeout(),
			Settle:  cfg.Settle(),
			Logger:  logger,
		}),
		Expander: page.NewExpander(page.ExpandOptions{
			ClickSettle:   cfg.ExpandSettle(),
			ContactSettle: cfg.ContactSettle(),
			Logger:        logger,
		}),
		Logger: logger,
	})

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	var bar *progressbar.ProgressBar
	if !cfg.Verbose {
		bar = getProgressBar(cmd.ErrOrStderr(), len(ids), "Scraping profiles")
	}

	runner := batch.NewRunner(manager, scraper, sinks, batch.Options{
		RunID:  runID.String(),
		Delay:  cfg.Delay(),
		Logger: logger,
		OnProgress: func(ev batch.ProgressEvent) {
			if bar != nil {
				_ = bar.Add(1)
				return
			}
			printer.PrintProfileRecord(&ev.Record)
		},
	})

	summary, runErr := runner.Run(ctx, ids)
	if bar != nil {
		_ = bar.Finish()
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	}

	status := runStatus(summary, runErr)
	for _, s := range stores {
		if err := s.Finish(context.Background(), status); err != nil {
			logger.Error("failed to record run status", "run_id", runID, "error", err)
		}
	}
	closeErr := sinks.Close()

	printer.PrintSummary(summary)
	switch {
	case runErr != nil:
		color.New(color.FgRed).Fprintf(out, "✗ Run %s: %v\n", status, runErr)
	case summary.SinkErrors > 0:
		color.New(color.FgYellow).Fprintf(out, "⚠ Wrote %d records to %s with %d write errors\n", summary.Emitted, cfg.Output, summary.SinkErrors)
	default:
		color.New(color.FgGreen).Fprintf(out, "✓ Wrote %d records to %s\n", summary.Emitted, cfg.Output)
	}

	return errors.Join(runErr, closeErr)
}

// openSinks opens every configured output. On error, anything already
// opened is closed.
func openSinks(ctx context.Context, cfg config.Config, runID uuid.UUID, total int, logger *slog.Logger) (output.Multi, []*output.StoreSink, error) {
	var (
		sinks  output.Multi
		stores []*output.StoreSink
	)
	fail := func(err error) (output.Multi, []*output.StoreSink, error) {
		abandon(sinks, stores)
		return nil, nil, err
	}

	csvSink, err := output.CreateCSV(cfg.Output)
	if err != nil {
		return fail(err)
	}
	sinks = append(sinks, csvSink)

	if cfg.JSONL != "" {
		jsonl, err := output.CreateJSONL(cfg.JSONL)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, jsonl)
	}

	var backends []db.Store
	if cfg.SQLite != "" {
		store, err := db.OpenSQLite(ctx, cfg.SQLite)
		if err != nil {
			return fail(err)
		}
		backends = append(backends, store)
	}
	if cfg.DatabaseURL != "" {
		store, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			for _, b := range backends {
				_ = b.Close()
			}
			return fail(fmt.Errorf("failed to connect to database: %w", err))
		}
		backends = append(backends, store)
	}

	for i, backend := range backends {
		if err := backend.EnsureSchema(ctx); err != nil {
			closeStores(backends[i:])
			return fail(err)
		}
		sink, err := output.NewStoreSink(ctx, backend, runID, total)
		if err != nil {
			closeStores(backends[i:])
			return fail(fmt.Errorf("failed to register run: %w", err))
		}
		logger.Debug("storing records", "run_id", runID, "store", fmt.Sprintf("%T", backend))
		stores = append(stores, sink)
		sinks = append(sinks, closingSink{Sink: sink, closer: backend})
	}

	return sinks, stores, nil
}

// abandon marks registered runs as failed and closes every sink.
func abandon(sinks output.Multi, stores []*output.StoreSink) {
	for _, s := range stores {
		_ = s.Finish(context.Background(), db.RunStatusFailed)
	}
	_ = sinks.Close()
}

func closeStores(stores []db.Store) {
	for _, s := range stores {
		_ = s.Close()
	}
}

// closingSink closes an extra resource after its sink.
type closingSink struct {
	output.Sink
	closer io.Closer
}

func (c closingSink) Close() error {
	return errors.Join(c.Sink.Close(), c.closer.Close())
}

// runStatus maps how a run ended to the status stored with it.
func runStatus(summary batch.Summary, err error) string {
	switch {
	case summary.Cancelled:
		return db.RunStatusCancelled
	case err != nil:
		return db.RunStatusFailed
	default:
		return db.RunStatusCompleted
	}
}

func getProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("profiles"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
