// Package snapshot implements the one-shot snapshot command: run the full
// pipeline for a URL and print (or store) the result.
package snapshot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pagekeep/pagekeep/internal/config"
	"github.com/pagekeep/pagekeep/internal/extract/domains"
	"github.com/pagekeep/pagekeep/internal/fetcher"
	"github.com/pagekeep/pagekeep/internal/logger"
	"github.com/pagekeep/pagekeep/internal/metrics"
	"github.com/pagekeep/pagekeep/internal/processor"
	"github.com/pagekeep/pagekeep/internal/storage"
)

// Command builds the snapshot command. cfgFile points at the root
// command's --config flag value.
func Command(cfgFile *string) *cobra.Command {
	var (
		store   bool
		spaceID string
		saveID  string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <url>",
		Short: "Produce a reader-mode snapshot of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}

			if store && (spaceID == "" || saveID == "") {
				return fmt.Errorf("--store requires --space and --save")
			}

			log := logger.New(cfg.Logging)
			defer func() { _ = log.Sync() }()

			proc := buildProcessor(cfg, log)

			result := proc.ProcessSnapshot(cmd.Context(), args[0])

			if store && result.OK {
				snapStore, storeErr := storage.New(cfg.Storage, log)
				if storeErr != nil {
					return storeErr
				}

				path, putErr := snapStore.Put(cmd.Context(), spaceID, saveID, result.Content, result.Metadata)
				if putErr != nil {
					return putErr
				}

				log.Info("snapshot stored", "path", path)
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			if err := encoder.Encode(result); err != nil {
				return err
			}

			if !result.OK {
				return fmt.Errorf("snapshot blocked: %s", result.Reason)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&store, "store", false, "persist the snapshot to object storage")
	cmd.Flags().StringVar(&spaceID, "space", "", "space identifier for the stored snapshot")
	cmd.Flags().StringVar(&saveID, "save", "", "save identifier for the stored snapshot")

	return cmd
}

// buildProcessor wires the pipeline from config.
func buildProcessor(cfg *config.Config, log logger.Interface) *processor.Processor {
	registry := domains.NewRegistry(
		domains.NewTwitter(domains.TwitterConfig{
			OEmbedEndpoint: cfg.Pipeline.TwitterOEmbedEndpoint,
			MirrorBase:     cfg.Pipeline.TwitterMirror,
		}, log.WithComponent("twitter")),
		domains.NewReddit(domains.RedditConfig{
			MirrorBase: cfg.Pipeline.RedditMirror,
		}, log.WithComponent("reddit")),
	)

	fetch := fetcher.New(fetcher.Config{
		Timeout:      cfg.Pipeline.FetchTimeout,
		MaxRedirects: cfg.Pipeline.MaxRedirects,
		MaxBodyBytes: cfg.Pipeline.MaxBodyBytes,
		UserAgent:    cfg.Pipeline.UserAgent,
	}, log.WithComponent("fetcher"))

	opts := []processor.Option{
		processor.WithMetrics(metrics.NewPipeline(prometheus.DefaultRegisterer)),
	}

	if cfg.Pipeline.RespectRobots {
		robots := fetcher.NewRobotsChecker(
			&http.Client{Timeout: cfg.Pipeline.FetchTimeout},
			cfg.Pipeline.UserAgent,
			0,
		)
		opts = append(opts, processor.WithRobots(robots))
	}

	return processor.New(registry, fetch, log.WithComponent("processor"), opts...)
}
