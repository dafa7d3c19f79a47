package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/config"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/history"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/sink"
)

var (
	exportFormat     string
	exportViaService bool
)

var exportCmd = &cobra.Command{
	Use:   "export <upload_id>...",
	Short: "Export the transactions of one or more uploads as CSV or XLSX",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := report.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		saver, closeSaver, err := newSaver(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSaver()

		warnUnknownIDs(ctx, args)

		if exportViaService {
			return exportFromService(ctx, saver, args, format)
		}

		ctrl := download.NewController(detail.NewFetcher(api, logger), saver, printer, logger)
		var failed int
		for _, id := range args {
			if err := ctrl.OpenMenu(id); err != nil {
				return err
			}
			res, err := ctrl.PickFormat(ctx, format)
			if err != nil {
				logger.Error("export failed", "upload_id", id, "err", err)
				failed++
				continue
			}
			printer.Exported(res)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d exports failed", failed, len(args))
		}
		return nil
	},
}

// newSaver builds the configured destination. The returned func releases it.
func newSaver(ctx context.Context, cfg *config.Config) (download.Saver, func(), error) {
	switch cfg.Sink {
	case config.SinkGCS:
		b, err := sink.NewBucket(ctx, cfg.Bucket, cfg.BucketPrefix)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Warn("failed to close storage client", "err", err)
			}
		}, nil
	default:
		return sink.NewDir(cfg.OutputDir), func() {}, nil
	}
}

// warnUnknownIDs logs ids that are not in the upload history. The export
// still runs; the service decides whether the id exists.
func warnUnknownIDs(ctx context.Context, ids []string) {
	store := history.NewStore(api, logger)
	if err := store.Load(ctx); err != nil {
		return
	}
	for _, id := range ids {
		if _, ok := store.Lookup(id); !ok {
			logger.Warn("upload not found in history", "upload_id", id)
		}
	}
}

// exportFromService downloads the files the service renders itself.
func exportFromService(ctx context.Context, saver download.Saver, ids []string, format report.Format) error {
	var failed int
	for _, id := range ids {
		body, name, err := api.ServerExport(ctx, id, format)
		if err != nil {
			printer.Alert(fmt.Sprintf("Failed to download %s for %s.", format, id))
			logger.Error("service export failed", "upload_id", id, "err", err)
			failed++
			continue
		}
		h, err := saver.Save(ctx, report.Artifact{Filename: name, ContentType: format.ContentType(), Body: body})
		if err != nil {
			printer.Alert("Failed to save the export file.")
			logger.Error("saving service export failed", "upload_id", id, "err", err)
			failed++
			continue
		}
		if err := h.Revoke(); err != nil {
			logger.Warn("failed to release staged export", "file", name, "err", err)
		}
		printer.Exported(download.Result{UploadID: id, Format: format, Filename: name, Location: h.Location()})
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(ids))
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format (csv or excel)")
	exportCmd.Flags().StringP("out", "o", "", "Download directory")
	exportCmd.Flags().String("sink", "", "Destination (dir or gcs)")
	exportCmd.Flags().String("bucket", "", "GCS bucket for the gcs sink")
	exportCmd.Flags().String("prefix", "", "Object prefix inside the bucket")
	exportCmd.Flags().BoolVar(&exportViaService, "server", false, "Download the file rendered by the service instead of encoding locally")
}
