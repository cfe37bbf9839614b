package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"target-csv/internal/config"
	"target-csv/internal/errors"
	"target-csv/internal/logger"
	"target-csv/internal/metric"
	"target-csv/internal/singer"
)

var version = "0.1.0"

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// usageError marks command line mistakes, which exit with exitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type options struct {
	configPath    string
	inputPath     string
	about         bool
	logLevel      string
	logFormat     string
	metricsListen string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and maps the outcome to an exit code. stdout only
// ever carries Singer state or the --about document.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdin, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, cmd.UsageString())
		return exitUsage
	}
	return exitFatal
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:     "target-csv",
		Short:   "Singer target that writes one CSV file per stream",
		Version: version,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unexpected arguments: %v", args)}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.about {
				return writeAbout(stdout)
			}
			return runTarget(cmd, opts, stdin, stdout, stderr)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to JSON or YAML config file")
	flags.StringVar(&opts.inputPath, "input", "", "Singer messages to read (default stdin, '-' for stdin)")
	flags.BoolVar(&opts.about, "about", false, "print the target description and settings schema as JSON")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: json|text (overrides config)")
	flags.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func writeAbout(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(config.NewAbout())
}

func runTarget(cmd *cobra.Command, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx := cmd.Context()

	// Config loading may warn about deprecated keys before the configured
	// logger exists.
	boot := logger.New(stderr, firstNonEmpty(opts.logLevel, "info"), firstNonEmpty(opts.logFormat, "json"))
	cfg, err := config.Load(opts.configPath, boot)
	if err != nil {
		boot.Error("invalid configuration", "error", err, "class", errors.Classify(err).String())
		return err
	}
	if flags := cmd.Flags(); flags.Changed("log-level") || flags.Changed("log-format") {
		if flags.Changed("log-level") {
			cfg.LogLevel = opts.logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = opts.logFormat
		}
		if err := config.Validate(cfg); err != nil {
			return usageError{err}
		}
	}

	log := logger.New(stderr, cfg.LogLevel, cfg.LogFormat)
	logger.SetLogger(log)

	in, err := openInput(stdin, opts.inputPath)
	if err != nil {
		log.Error("open input", "error", err)
		return err
	}
	defer in.Close()

	m := metric.New()
	if opts.metricsListen != "" {
		srv := serveMetrics(log, opts.metricsListen, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	target, err := singer.New(singer.Options{
		Config:   cfg,
		Logger:   log,
		Metrics:  m,
		StateOut: stdout,
	})
	if err != nil {
		log.Error("target setup failed", "error", err, "class", errors.Classify(err).String())
		return err
	}

	if err := target.Process(ctx, in); err != nil {
		log.Error("target failed",
			"run_id", target.RunID(),
			"error", err,
			"class", errors.Classify(err).String())
		return err
	}
	return nil
}

func openInput(stdin io.Reader, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO(err, "CLI", "openInput", "open "+path)
	}
	return f, nil
}

func serveMetrics(log *slog.Logger, addr string, m *metric.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	log.Info("serving metrics", "addr", addr, "path", "/metrics")
	return srv
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
