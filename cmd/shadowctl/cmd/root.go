package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atdiar/particlebridge/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// options is the state shared by every command.
type options struct {
	configPath string

	cfg config.Config
	log *slog.Logger
	tp  trace.TracerProvider

	shutdown []func(context.Context) error
}

// Execute runs shadowctl with the process arguments. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	o := &options{cfg: config.Default()}
	if err := execute(ctx, newRootCmd(o), o); err != nil {
		stop()
		os.Exit(1)
	}
}

// execute runs the command, then shuts down what setup installed whether the
// command succeeded or not, so that the spans of a failed batch are exported.
func execute(ctx context.Context, cmd *cobra.Command, o *options) error {
	err := cmd.ExecuteContext(ctx)
	if terr := o.teardown(context.WithoutCancel(ctx)); terr != nil {
		err = errors.Join(err, terr)
	}
	return err
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shadowctl",
		Short: "shadowctl replays render batches through the shadow tree reconciler",
		Long: `
		shadowctl replays recorded render batches (YAML scripts) through the shadow
		tree reconciler, into an html document or a terminal tree view.
		Without a command, the configured driver picks render (dom) or
		view (terminal).
		`,
		Args: cobra.NoArgs,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.script()
			if err != nil {
				return err
			}
			if o.cfg.Driver == "terminal" {
				return o.view(cmd.Context(), path)
			}
			return o.renderTo(cmd.Context(), path, cmd.OutOrStdout(), nil)
		},
	}

	d := config.Default()
	f := rootCmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "configuration file (YAML)")
	f.String("driver", d.Driver, "driver used without a command: dom or terminal")
	f.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	f.String("log-format", d.Log.Format, "log format: text or json")
	f.String("metrics-addr", "", "serve prometheus metrics on this address")
	f.Bool("trace", false, "export batch spans to stderr")
	f.StringP("script", "s", "", "replay script")

	rootCmd.AddCommand(newRenderCmd(o), newViewCmd(o), newWatchCmd(o))
	return rootCmd
}

// setup loads the configuration, applies the flags set on the command line
// over it and installs logging, tracing and the metrics endpoint.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("trace") {
		cfg.Tracing.Stdout, _ = flags.GetBool("trace")
	}
	if flags.Changed("script") {
		cfg.Script, _ = flags.GetString("script")
	}
	if flags.Changed("out") {
		cfg.Output, _ = flags.GetString("out")
	}
	if flags.Changed("pretty") {
		cfg.Pretty, _ = flags.GetBool("pretty")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	o.log, err = cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	o.tp = otel.GetTracerProvider()
	if cfg.Tracing.Stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create the trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		o.tp = tp
		o.shutdown = append(o.shutdown, tp.Shutdown)
	}

	if cfg.MetricsAddr != "" {
		if err := o.serveMetrics(cfg.MetricsAddr); err != nil {
			return err
		}
	}
	return nil
}

func (o *options) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.log.Error("metrics server stopped", "error", err)
		}
	}()
	o.log.Info("serving metrics", "addr", ln.Addr().String())
	o.shutdown = append(o.shutdown, srv.Shutdown)
	return nil
}

func (o *options) teardown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var errs []error
	for i := len(o.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, o.shutdown[i](ctx))
	}
	o.shutdown = nil
	return errors.Join(errs...)
}

// requireDriver fails when the configured driver is not the one cmd renders
// with.
func (o *options) requireDriver(cmd, driver string) error {
	if o.cfg.Driver != driver {
		return fmt.Errorf("%s renders with the %s driver, but the %s driver is configured", cmd, driver, o.cfg.Driver)
	}
	return nil
}

func (o *options) script() (string, error) {
	if o.cfg.Script == "" {
		return "", errors.New("no script: use --script or set script in the configuration file")
	}
	return o.cfg.Script, nil
}
