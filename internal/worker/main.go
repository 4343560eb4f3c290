package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"

	"github.com/Yashdhokiya-7733/file-compression-and-decompression/compression"
	"github.com/Yashdhokiya-7733/file-compression-and-decompression/internal/common"
)

type Application struct {
	Storage    common.StorageClient
	CTX        *context.Context
	Bucket     string
	GCSTimeout time.Duration
}

func (app *Application) compressMessageHandler(_ context.Context, msg common.Message) {
	var job common.CompressJob
	if err := json.Unmarshal(msg.GetData(), &job); err != nil {
		slog.Error("Failed to unmarshal body from job message", "error", err)
		msg.Nack()
		return
	}

	slog.Info("Received job", "job", job.UID)

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	reader, err := app.Storage.NewObjectReader(ctx, app.Bucket, job.OriginalPath)
	if err != nil {
		slog.Error("Failed to locate original file content", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	defer reader.Close()

	original, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("Failed to download data from GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Downloaded original data", "job", job.UID, "bytes", len(original))

	if job.OriginalSize != 0 && uint32(len(original)) != job.OriginalSize {
		slog.Error("Stored object size does not match job", "job", job.UID,
			"want", job.OriginalSize, "got", len(original))
		msg.Nack()
		return
	}

	container, err := compression.Compress(original)
	if err != nil {
		slog.Error("Failed to compress data", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	stats := compression.Stats{OriginalSize: len(original), CompressedSize: len(container)}
	slog.Debug("Compressed data", "job", job.UID, "ratio", stats.Ratio())

	compressedPath := fmt.Sprintf("%s/compressed.huf", job.UID)
	wc := app.Storage.NewObjectWriter(ctx, app.Bucket, compressedPath)
	if _, err := io.Copy(wc, bytes.NewReader(container)); err != nil {
		slog.Error("Failed to upload compressed data to GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Uploaded compressed data to GCS", "job", job.UID)

	msg.Ack()
	slog.Info("Completed processing job", "job", job.UID)
}

func (app *Application) decompressMessageHandler(_ context.Context, msg common.Message) {
	var job common.DecompressJob
	if err := json.Unmarshal(msg.GetData(), &job); err != nil {
		slog.Error("Failed to unmarshal body from job message", "error", err)
		msg.Nack()
		return
	}

	slog.Info("Received job", "job", job.UID)

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	reader, err := app.Storage.NewObjectReader(ctx, app.Bucket, job.CompressedPath)
	if err != nil {
		slog.Error("Failed to locate compressed file content", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	defer reader.Close()

	container, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("Failed to download data from GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Downloaded compressed file from GCS", "job", job.UID, "bytes", len(container))

	restored, err := compression.Decompress(container)
	if err != nil {
		// a corrupt container will never decode, so surface the reason
		slog.Error("Failed to decompress data", "job", job.UID, "error", err,
			"corrupt", errors.Is(err, compression.ErrBadMagic) ||
				errors.Is(err, compression.ErrTruncatedHeader) ||
				errors.Is(err, compression.ErrTruncatedPayload))
		msg.Nack()
		return
	}

	restoredPath := fmt.Sprintf("%s/restored.bin", job.UID)
	wc := app.Storage.NewObjectWriter(ctx, app.Bucket, restoredPath)
	if _, err := io.Copy(wc, bytes.NewReader(restored)); err != nil {
		slog.Error("Failed to upload restored data to GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", job.UID, "error", err)
		msg.Nack()
		return
	}
	slog.Debug("Uploaded restored data to GCS", "job", job.UID)

	msg.Ack()
	slog.Info("Completed processing job", "job", job.UID)
}

func main() {
	methodFlag := flag.Bool("decompress", false, "flag to indicate this instance is for decompressing.")
	flag.Parse()

	// initialize logging system
	var programLevel = new(slog.LevelVar) // Info by default
	developmentMode := os.Getenv("DEVELOPMENT_MODE")
	isDev, err := strconv.ParseBool(developmentMode)
	if err == nil && isDev {
		programLevel.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	// initialize GCP services
	projectID := os.Getenv("GCP_PROJECT_ID")
	subID := os.Getenv("PUBSUB_SUB_ID")
	bucket := os.Getenv("GCS_BUCKET")
	ctx := context.Background()

	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Cannot create new client for GCS", "error", err)
		return
	}
	defer gcsClient.Close()
	slog.Debug("Initialized a GCS client.")

	pubsubClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		slog.Error("Cannot create new client for Pub/Sub", "error", err)
		return
	}
	defer pubsubClient.Close()
	slog.Debug("Initialized a Pub/Sub client.")

	app := Application{
		Storage:    &common.GCSStorage{Client: gcsClient},
		CTX:        &ctx,
		Bucket:     bucket,
		GCSTimeout: 50 * time.Second,
	}

	sub := pubsubClient.Subscriber(subID)
	receiveFunc := func(ctx context.Context, msg *pubsub.Message) {
		wrappedMsg := &common.PubSubMessage{Msg: msg}
		if *methodFlag {
			app.decompressMessageHandler(ctx, wrappedMsg)
		} else {
			app.compressMessageHandler(ctx, wrappedMsg)
		}
	}

	if *methodFlag {
		slog.Info("Listening for a new decompressing message...")
	} else {
		slog.Info("Listening for a new compressing message...")
	}
	err = sub.Receive(ctx, receiveFunc)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Cannot process job", "error", err)
		return
	}
}
