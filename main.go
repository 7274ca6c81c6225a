package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chembl/drugname2inchi/config"
	"github.com/chembl/drugname2inchi/metrics"
)

var (
	version   string
	buildDate string
	logger    *zap.SugaredLogger
	conf      *config.Configuration
	stats     *metrics.Metrics
	logFile   *os.File

	configPath  string
	debug       bool
	metricsAddr string
)

func logInit(d bool, logPath string) *os.File {
	fn := "drugname2inchi.log"
	path := filepath.Join(logPath, fn)
	// Open file for writing
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		panic(err)
	}

	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder

	fileEncoder := zapcore.NewJSONEncoder(pe)
	consoleEncoder := zapcore.NewConsoleEncoder(pe)

	level := zap.InfoLevel
	if d {
		level = zap.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(file), level),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level),
	)

	l := zap.New(core)

	logger = l.Sugar()

	return file
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "drugname2inchi",
		Short:         "Converts drug names into InChIKeys using PubChem and L1000FWD",
		Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file path, must be YAML")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Sets up the log level to debug, keep in mind logging will have an impact on the performance")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serves Prometheus metrics on this address, Example: :9090")
	root.Flags().BoolP("version", "v", false, "Returns the binary version and built date info")

	root.AddCommand(newConvertCmd(), newL1000Cmd())
	return root
}

func setup() error {
	var err error
	conf, err = loadConfiguration(configPath)
	if err != nil {
		return err
	}

	logFile = logInit(debug, conf.LogPath)
	greeting()

	reg := prometheus.NewRegistry()
	stats = metrics.New(reg)

	if metricsAddr != "" {
		conf.MetricsAddr = metricsAddr
	}
	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Infof("Serving metrics on %s", conf.MetricsAddr)
			if err := http.ListenAndServe(conf.MetricsAddr, mux); err != nil {
				logger.Error("Metrics server stopped ", err)
			}
		}()
	}
	return nil
}

// loadConfiguration falls back to the defaults when no path is given and
// config.yaml does not exist
func loadConfiguration(path string) (*config.Configuration, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	c, err := config.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't load config file")
	}
	return c, nil
}

func teardown() {
	if logger != nil {
		_ = logger.Sync()
	}
	if logFile != nil {
		logFile.Close()
	}
}

// signalContext is canceled on the first interrupt
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case <-c:
			logger.Warn("Received Interrupt Signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}

func elapsedTime(t time.Time) {
	logger.Infof("Elapsed %s", time.Since(t))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if logger != nil {
			logger.Error(err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func greeting() {
	logger.Info("--------------Init program--------------")
	logger.Info(fmt.Sprintf("Version: %s Build Date: %s", version, buildDate))
	logger.Infow(
		"Configuration",
		"PubChem",
		conf.PubChem.URL,
		"Min backoff",
		conf.PubChem.MinBackoff,
		"Max backoff",
		conf.PubChem.MaxBackoff,
		"Max attempts",
		conf.PubChem.MaxAttempts,
		"L1000FWD metadata",
		conf.L1000FWD.Metadata,
	)
}
