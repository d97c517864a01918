package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/bitrise-io/go-fileupload/config"
	"github.com/bitrise-io/go-fileupload/metrics"
	"github.com/bitrise-io/go-fileupload/telemetry"
	"github.com/bitrise-io/go-fileupload/upload"
	"github.com/bitrise-io/go-fileupload/upload/network"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const serviceName = "fileupload"

func run(ctx context.Context, args []string, out io.Writer, logger log.Logger) int {
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	flags.SetOutput(out)
	list := flags.Bool("list", false, "print the files already uploaded")
	flags.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [--list] <path-or-glob>...\n", serviceName)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 && !*list {
		flags.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Invalid configuration: %s", err)
		return 1
	}
	logger.EnableDebugLog(cfg.Output.Verbose)

	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		SampleRate:  cfg.Telemetry.SampleRate,
	}, logger)
	if err != nil {
		logger.Errorf("Failed to set up tracing: %s", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warnf("Failed to flush traces: %s", err)
		}
	}()

	transport, lister, err := newBackend(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("Failed to create %s backend: %s", cfg.Upload.Backend, err)
		return 1
	}

	m := metrics.New()
	if cfg.Output.MetricsTextfile != "" {
		defer func() {
			if err := m.WriteTextfile(cfg.Output.MetricsTextfile); err != nil {
				logger.Warnf("Failed to write metrics to %s: %s", cfg.Output.MetricsTextfile, err)
			}
		}()
	}

	tracker := upload.NewNoopTracker()
	if cfg.Output.Analytics {
		tracker = upload.NewTracker(env.NewRepository(), logger)
	}
	defer tracker.Wait()

	listing := upload.NewListing(lister, logger)
	renderListing := func(ctx context.Context) {
		fmt.Fprintln(out, "Uploaded files:")
		if err := listing.Render(ctx, out); err != nil {
			logger.Warnf("Failed to print file list: %s", err)
		}
	}

	uploader, err := upload.NewUploader(transport, upload.Config{
		SegmentSize: cfg.Upload.SegmentSize,
		Tracker:     tracker,
		Metrics:     m,
		OnSuccess:   renderListing,
	}, logger)
	if err != nil {
		logger.Errorf("Failed to create uploader: %s", err)
		return 1
	}
	uploader.Session().Subscribe(printSnapshot(out))
	defer func() {
		if err := uploader.Close(); err != nil {
			logger.Warnf("Failed to close file: %s", err)
		}
	}()

	if flags.NArg() == 0 {
		renderListing(ctx)
		return 0
	}

	paths, err := upload.ExpandPaths(flags.Args(), pathutil.NewPathModifier(), pathutil.NewPathChecker(), logger)
	if err != nil {
		logger.Errorf("Failed to resolve files to upload: %s", err)
		return 1
	}
	if len(paths) == 0 {
		logger.Errorf("No files to upload")
		return 1
	}

	failed := 0
	for _, pth := range paths {
		if err := uploadFile(ctx, uploader, pth, cfg.Upload.RestrictTypes, logger); err != nil {
			failed++
			if errors.Is(err, context.Canceled) {
				logger.Warnf("Interrupted")
				break
			}
		}
	}

	if failed > 0 {
		logger.Errorf("%d of %d uploads failed", failed, len(paths))
		return 1
	}
	logger.Donef("%d file(s) uploaded", len(paths))
	return 0
}

func uploadFile(ctx context.Context, uploader *upload.Uploader, pth string, restrictTypes bool, logger log.Logger) error {
	if restrictTypes {
		if err := upload.CheckExtension(pth, upload.AllowedExtensions); err != nil {
			logger.Errorf("Skipping %s: %s", pth, err)
			return err
		}
	}

	file, err := upload.OpenFile(pth)
	if err != nil {
		logger.Errorf("Failed to open %s: %s", pth, err)
		return err
	}
	if err := uploader.Select(file); err != nil {
		if cerr := file.Close(); cerr != nil {
			return fmt.Errorf("%w (close: %s)", err, cerr)
		}
		return err
	}

	return uploader.Upload(ctx)
}

func newBackend(ctx context.Context, cfg *config.Config, logger log.Logger) (network.Transport, network.Lister, error) {
	if cfg.Upload.Backend == config.BackendS3 {
		s3Transport, err := network.NewS3Transport(ctx, network.S3Params{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s3Transport, s3Transport, nil
	}

	client, err := network.NewClient(network.ClientParams{
		APIBaseURL:     cfg.Server.APIBaseURL,
		Token:          cfg.Server.AccessToken,
		SinglePath:     cfg.Server.SinglePath,
		ChunkPath:      cfg.Server.ChunkPath,
		ListPath:       cfg.Server.ListPath,
		BytesPerSecond: cfg.Upload.MaxBytesPerSecond,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

func printSnapshot(out io.Writer) func(upload.Snapshot) {
	return func(s upload.Snapshot) {
		if s.Status == upload.StatusReady {
			fmt.Fprintf(out, "%s: ready\n", s.FileName)
			return
		}
		fmt.Fprintf(out, "%s: [%s %d%%] %s\n", s.FileName, s.Status, s.Progress, s.Message)
	}
}
