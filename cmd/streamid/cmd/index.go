package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/afylking/streamid/internal/database"
	"github.com/afylking/streamid/internal/fingerprint"
	"github.com/afylking/streamid/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the fingerprint k-d tree index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the k-d tree index from the fingerprint CSV and persist it",
	RunE:  runIndexBuild,
}

var indexHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded index builds",
	RunE:  runIndexHistory,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexHistoryCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := fingerprint.Load(cfg.Database.CSVPath, cfg.Database.CachePath)
	if err != nil {
		return fmt.Errorf("loading fingerprint database: %w", err)
	}

	opts := index.BuildOptions{
		W:                  cfg.Index.WindowWidth,
		K:                  cfg.Index.KDimension,
		LeafSize:           cfg.Index.LeafSize,
		DiskSpillThreshold: int64(cfg.Index.DiskSpillThreshold),
	}
	ix, err := index.Build(store, opts)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	logger.Info("index built", slog.Int("rows", ix.Len()), slog.Int("videos", store.Len()))

	if cfg.Index.BinaryCachePath == "" {
		return fmt.Errorf("index.binary_cache_path must be set to persist a build")
	}
	if err := index.Save(ix, cfg.Index.BinaryCachePath); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	sourceHash, err := fingerprint.FileHash(cfg.Database.CSVPath)
	if err != nil {
		return fmt.Errorf("hashing source csv: %w", err)
	}

	db, err := database.New(cfg.Database.ManifestDSN, logger)
	if err != nil {
		return fmt.Errorf("opening manifest database: %w", err)
	}
	defer db.Close()

	manifests, err := index.NewManifestStore(db)
	if err != nil {
		return fmt.Errorf("initializing manifest store: %w", err)
	}

	manifest, err := manifests.Record(ix, sourceHash, cfg.Index.BinaryCachePath)
	if err != nil {
		return fmt.Errorf("recording manifest: %w", err)
	}

	logger.Info("index manifest recorded",
		slog.String("id", manifest.ID),
		slog.String("binary_path", manifest.BinaryPath),
	)
	return nil
}

func runIndexHistory(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database.ManifestDSN, logger)
	if err != nil {
		return fmt.Errorf("opening manifest database: %w", err)
	}
	defer db.Close()

	manifests, err := index.NewManifestStore(db)
	if err != nil {
		return fmt.Errorf("initializing manifest store: %w", err)
	}

	history, err := manifests.History()
	if err != nil {
		return fmt.Errorf("reading manifest history: %w", err)
	}

	for _, m := range history {
		fmt.Printf("%s  w=%d k=%d n=%d  %s  %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"), m.W, m.K, m.N, m.SourceHash[:12], m.BinaryPath)
	}
	return nil
}
