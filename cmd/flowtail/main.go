package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flowtail/internal/action"
	"flowtail/internal/bootstrap"
	"flowtail/internal/cachestore"
	"flowtail/internal/config"
	"flowtail/internal/datastore"
	"flowtail/internal/logfile"
	"flowtail/internal/metadata"
	"flowtail/internal/server"
	"flowtail/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "flowtail",
		Short:   "Cached task-log retrieval for workflow runs",
		Version: version.Version,
	}

	rootCmd.AddCommand(
		serveCmd(),
		bootstrapCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the log cache API server",
		RunE:  runServe,
	}
	cmd.Flags().String("config-dir", ".", "Directory containing flowtail.{yaml,toml,json}")
	cmd.Flags().String("addr", "", "Address to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	configDir, _ := cmd.Flags().GetString("config-dir")
	cfg, filename, err := config.Load(configDir)
	if err != nil {
		return err
	}

	addr := cfg.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	meta := metadata.NewHTTPClient(metadata.Config{
		BaseURL:   cfg.MetadataURL,
		Namespace: cfg.Namespace,
		Timeout:   cfg.RequestTimeout.Duration(),
	})

	var blobs logfile.BlobLoader = datastore.Disabled{}
	if cfg.S3.Enabled() {
		blobs, err = datastore.NewS3Store(ctx, datastore.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
		}, log)
		if err != nil {
			return err
		}
	}

	hub := server.NewHub()
	dispatcher := action.NewDispatcher(store, hub, log)
	handler := server.New(dispatcher, hub, meta, blobs, log)

	httpServer := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("flowtail listening", "addr", addr, "config", filename, "metadata_url", cfg.MetadataURL)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newStore(cfg *config.Config) (cachestore.Store, error) {
	if cfg.CacheDB != "" {
		return cachestore.NewSQLite(cfg.CacheDB)
	}
	return cachestore.NewMemory(cfg.CacheEntries)
}

func bootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Wait for a co-located service and record its version",
		RunE:  runBootstrap,
	}
	cmd.Flags().String("addr", "localhost:8082", "TCP address to poll")
	cmd.Flags().Int("retries", bootstrap.DefaultRetries, "Connection attempts before giving up")
	cmd.Flags().Duration("delay", bootstrap.DefaultDelay, "Delay between attempts")
	cmd.Flags().String("version-url", "", "Version endpoint (default http://{addr}/version)")
	cmd.Flags().String("out", "flowtail.version", "File to write the version response to")
	return cmd
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	addr, _ := cmd.Flags().GetString("addr")
	retries, _ := cmd.Flags().GetInt("retries")
	delay, _ := cmd.Flags().GetDuration("delay")
	versionURL, _ := cmd.Flags().GetString("version-url")
	out, _ := cmd.Flags().GetString("out")

	if versionURL == "" {
		versionURL = "http://" + addr + "/version"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bootstrap.Run(ctx, bootstrap.Options{
		Addr:       addr,
		Retries:    retries,
		Delay:      delay,
		VersionURL: versionURL,
		OutPath:    out,
		Log:        log,
	})
}
