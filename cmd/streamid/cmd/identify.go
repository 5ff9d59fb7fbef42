package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/afylking/streamid/internal/capture"
	"github.com/afylking/streamid/internal/fingerprint"
	internalhttp "github.com/afylking/streamid/internal/http"
	"github.com/afylking/streamid/internal/http/handlers"
	"github.com/afylking/streamid/internal/identifier"
	"github.com/afylking/streamid/internal/index"
	"github.com/afylking/streamid/internal/observability"
	"github.com/afylking/streamid/internal/pipeline"
	"github.com/afylking/streamid/internal/segmenter"
	"github.com/afylking/streamid/internal/sink"
	"github.com/afylking/streamid/internal/version"
)

var (
	flagInterface     string
	flagFullCDNSearch bool
	flagCLI           bool
	flagWindowWidth   int
	flagKDimension    int
	flagPearsonThresh float64
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Capture live traffic and identify the stream being watched",
	Long: `identify captures packets on a network interface, reconstructs
encrypted segment sizes, and matches their shape against the fingerprint
database in real time, emitting identification events over SSE, an
optional webhook, and/or the terminal.`,
	RunE: runIdentify,
}

func init() {
	identifyCmd.Flags().StringVarP(&flagInterface, "interface", "i", "", "network interface to capture on (overrides config)")
	identifyCmd.Flags().BoolVar(&flagFullCDNSearch, "full-cdn-search", false, "also resolve the footprint.net and akamaized.net CDN pools, in addition to the edge range")
	identifyCmd.Flags().BoolVar(&flagCLI, "cli", false, "render identification events to the terminal instead of serving HTTP or posting to the webhook")
	identifyCmd.Flags().IntVarP(&flagWindowWidth, "window-width", "w", 0, "sliding window width in segments (overrides config)")
	identifyCmd.Flags().IntVarP(&flagKDimension, "k-dimension", "k", 0, "projection dimension, must divide window width (overrides config)")
	identifyCmd.Flags().Float64VarP(&flagPearsonThresh, "pearson-threshold", "p", 0, "enables legacy single-shot mode at this Pearson threshold")
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if flagInterface != "" {
		cfg.Capture.Interface = flagInterface
	}
	if flagFullCDNSearch {
		cfg.Capture.FullCDNSearch = true
	}
	if flagWindowWidth > 0 {
		cfg.Index.WindowWidth = flagWindowWidth
	}
	if flagKDimension > 0 {
		cfg.Index.KDimension = flagKDimension
	}
	if flagPearsonThresh > 0 {
		cfg.Identifier.LegacyMode = true
		cfg.Identifier.LegacyPearsonThresh = flagPearsonThresh
	}
	if flagCLI {
		cfg.Sink.CLIMode = true
	}
	if cfg.Capture.Interface == "" {
		return fmt.Errorf("capture.interface is required (set via config or --interface)")
	}

	store, err := fingerprint.Load(cfg.Database.CSVPath, cfg.Database.CachePath)
	if err != nil {
		return fmt.Errorf("loading fingerprint database: %w", err)
	}
	logger.Info("fingerprint database loaded", slog.Int("videos", store.Len()))

	ix, err := loadOrBuildIndex(cfg.Index.BinaryCachePath, store, cfg.Index.WindowWidth, cfg.Index.KDimension, cfg.Index.LeafSize, int64(cfg.Index.DiskSpillThreshold), logger)
	if err != nil {
		return fmt.Errorf("preparing index: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	ips, err := capture.ResolveCDNHosts(ctx, cfg.Capture.FullCDNSearch)
	if err != nil {
		return fmt.Errorf("resolving CDN hosts: %w", err)
	}
	filter := capture.BuildHostFilter(ips, cfg.Capture.ExtraFilter)
	logger.Info("resolved CDN capture filter", slog.Int("host_count", len(ips)))

	sourceFactory, err := capture.NewSource(capture.Backend(cfg.Capture.Backend), cfg.Capture.Interface, filter, "")
	if err != nil {
		return fmt.Errorf("constructing capture source: %w", err)
	}

	seg := segmenter.New(segmenter.Options{
		SegmentTimeThreshold: cfg.Segmenter.SegmentTimeThreshold.Seconds(),
		TLSOverhead:          cfg.Segmenter.TLSOverhead,
		HTTPHeaders:          int64(cfg.Segmenter.HTTPHeaders),
		MinSegmentSize:       int64(cfg.Segmenter.MinSegmentSize),
		MaxSegmentSize:       int64(cfg.Segmenter.MaxSegmentSize),
	})

	ident := identifier.New(store, ix, identifier.Options{
		W:                       cfg.Index.WindowWidth,
		K:                       cfg.Index.KDimension,
		NBBestMatches:           cfg.Identifier.NBBestMatches,
		MaxMatchesPerStream:     cfg.Identifier.MaxMatchesPerStream,
		Alpha:                   cfg.Identifier.Alpha,
		IdentificationThreshold: cfg.Identifier.IdentificationThreshold,
		BufferTimeSeconds:       float64(cfg.Identifier.BufferTimeSeconds),
		LegacyMode:              cfg.Identifier.LegacyMode,
		LegacyPearsonThreshold:  cfg.Identifier.LegacyPearsonThresh,
	})

	broadcaster := sink.NewBroadcaster(cfg.Sink.SubscriberQueue, logger)
	sinks := pipeline.Sinks{Broadcaster: broadcaster}
	if cfg.Sink.CLIMode {
		sinks.CLI = sink.NewCLIRenderer(os.Stdout)
	}
	if cfg.Sink.PostURL != "" && !cfg.Sink.CLIMode {
		sinks.HTTP = sink.NewHTTPSink(cfg.Sink.PostURL, cfg.Sink.AuthToken, cfg.Sink.RatePerSecond, cfg.Sink.PostTimeout, logger)
	}

	metrics := observability.NewMetrics()
	pl := pipeline.New(sourceFactory, seg, ident, sinks, metrics, logger)

	c := cron.New()
	evictionJob := pipeline.NewEvictionJob(seg, cfg.Pipeline.FlowIdleTimeout.Duration(), logger)
	evictionSpec := fmt.Sprintf("@every %s", cfg.Pipeline.EvictionInterval)
	if err := pipeline.Schedule(c, evictionSpec, evictionJob); err != nil {
		return fmt.Errorf("scheduling eviction job: %w", err)
	}
	c.Start()
	defer c.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- pl.Run(ctx)
	}()

	if !cfg.Sink.CLIMode {
		server := internalhttp.NewServer(internalhttp.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     internalhttp.DefaultServerConfig().IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, logger, version.Version)
		server.Router().Get("/subscribe", broadcaster.ServeHTTP)
		server.Router().Handle("/metrics", promhttp.Handler())

		healthHandler := handlers.NewHealthHandler(pl)
		healthHandler.Register(server.API())

		go func() {
			if err := server.ListenAndServe(ctx); err != nil {
				logger.Error("http server error", slog.String("error", err.Error()))
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("pipeline stopped: %w", err)
		}
		return nil
	}
}

func loadOrBuildIndex(binaryPath string, store *fingerprint.Store, w, k, leafSize int, diskSpillThreshold int64, logger *slog.Logger) (*index.Index, error) {
	if binaryPath != "" {
		if ix, err := index.Load(binaryPath, leafSize); err == nil {
			logger.Info("loaded persisted index", slog.String("path", binaryPath))
			return ix, nil
		}
	}

	logger.Info("building fingerprint index", slog.Int("w", w), slog.Int("k", k))
	ix, err := index.Build(store, index.BuildOptions{W: w, K: k, LeafSize: leafSize, DiskSpillThreshold: diskSpillThreshold})
	if err != nil {
		return nil, err
	}

	if binaryPath != "" {
		if err := index.Save(ix, binaryPath); err != nil {
			logger.Warn("failed to persist built index", slog.String("error", err.Error()))
		}
	}
	return ix, nil
}
