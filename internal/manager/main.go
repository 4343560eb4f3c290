package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Yashdhokiya-7733/file-compression-and-decompression/compression"
	"github.com/Yashdhokiya-7733/file-compression-and-decompression/internal/common"
)

type Application struct {
	Storage           common.StorageClient
	Publisher         common.Publisher
	CTX               *context.Context
	Bucket            string
	CompressTopicID   string
	DecompressTopicID string
	MaxUploadSize     int64
	GCSTimeout        time.Duration
}

// estimateRatio predicts the payload-to-input ratio from the Shannon
// entropy of the tallied byte frequencies. A Huffman payload cannot beat
// entropy, so this is the best the job can hope for.
func estimateRatio(freqs *[256]uint64, total uint64) float64 {
	if total == 0 {
		return 0
	}
	var entropy float64
	for _, f := range freqs {
		if f == 0 {
			continue
		}
		p := float64(f) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / 8
}

func (app *Application) compressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, "Only POST method allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Failed to get file from form", "error", err)
		// This error is triggered when MaxBytesReader limit is exceeded
		if strings.Contains(err.Error(), "request body too large") {
			common.WriteError(w, "File exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	slog.Info("Processing a request for compressing")

	jobID := uuid.New().String()
	slog.Debug("Creating new job", "job", jobID, "file", header.Filename)

	// tally byte frequencies while the upload streams to GCS
	pr, pw := io.Pipe()
	teeReader := io.TeeReader(file, pw)

	var freqs [256]uint64
	var total uint64

	go func() {
		defer pw.Close()
		bufReader := bufio.NewReader(teeReader)
		for {
			b, err := bufReader.ReadByte()
			if err != nil {
				if err == io.EOF {
					break
				}
				slog.Error("Failed to read file to tally frequencies", "job", jobID, "error", err)
				pw.CloseWithError(err)
				return
			}
			freqs[b]++
			total++
		}
	}()

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	originalPath := fmt.Sprintf("%s/original_%s", jobID, header.Filename)
	wc := app.Storage.NewObjectWriter(ctx, app.Bucket, originalPath)
	if _, err := io.Copy(wc, pr); err != nil {
		slog.Error("Failed to stream data to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug(fmt.Sprintf("Uploaded %s to GCS", header.Filename), "job", jobID)

	// the codec rejects empty input, so don't even queue the job
	if total == 0 {
		slog.Debug("Rejecting empty upload", "job", jobID)
		common.WriteError(w, "Cannot compress an empty file", http.StatusBadRequest)
		return
	}
	if total > math.MaxUint32 {
		common.WriteError(w, "File exceeds container limit", http.StatusRequestEntityTooLarge)
		return
	}

	message := common.CompressJob{
		UID:          jobID,
		OriginalPath: originalPath,
		OriginalSize: uint32(total),
	}
	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.Error("Failed to marshal MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	returnedMessageID, err := app.Publisher.PublishMessage(*app.CTX, app.CompressTopicID, &pubsub.Message{
		Data: messageBytes,
	})
	if err != nil {
		slog.Error("Failed to send MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Sent message to Pub/Sub", "job", jobID, "server_generated_message_id", returnedMessageID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":          jobID,
		"estimated_ratio": estimateRatio(&freqs, total),
	})
}

func (app *Application) decompressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, "Only POST method allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Failed to get file from form", "error", err)
		// This error is triggered when MaxBytesReader limit is exceeded
		if strings.Contains(err.Error(), "request body too large") {
			common.WriteError(w, "File exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".huf") {
		common.WriteError(w, "Wrong file format", http.StatusBadRequest)
		return
	}

	slog.Info("Processing a request for decompressing")

	jobID := uuid.New().String()
	slog.Debug("Creating new job", "job", jobID, "file", header.Filename)

	// sniff the container header before paying for the upload
	head := make([]byte, compression.HeaderSize)
	if _, err := io.ReadFull(file, head); err != nil {
		common.WriteError(w, "Truncated container", http.StatusBadRequest)
		return
	}
	if _, err := compression.ReadHeader(bytes.NewReader(head)); err != nil {
		slog.Debug("Rejecting invalid container", "job", jobID, "error", err)
		common.WriteError(w, "Not a valid compressed container", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	compressedPath := fmt.Sprintf("%s/%s", jobID, header.Filename)
	wc := app.Storage.NewObjectWriter(ctx, app.Bucket, compressedPath)
	if _, err := io.Copy(wc, io.MultiReader(bytes.NewReader(head), file)); err != nil {
		slog.Error("Failed to stream compressed data to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := wc.Close(); err != nil {
		slog.Error("Failed to close data stream to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug(fmt.Sprintf("Uploaded %s to GCS", header.Filename), "job", jobID)

	message := common.DecompressJob{
		UID:            jobID,
		CompressedPath: compressedPath,
	}
	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.Error("Failed to marshal MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	returnedMessageID, err := app.Publisher.PublishMessage(*app.CTX, app.DecompressTopicID, &pubsub.Message{
		Data: messageBytes,
	})
	if err != nil {
		slog.Error("Failed to send MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Sent message to Pub/Sub", "job", jobID, "server_generated_message_id", returnedMessageID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

func main() {
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
	compressTopicID := os.Getenv("PUBSUB_COMPRESS_TOPIC_ID")
	decompressTopicID := os.Getenv("PUBSUB_DECOMPRESS_TOPIC_ID")
	bucket := os.Getenv("GCS_BUCKET")
	addr := os.Getenv("MANAGER_ADDR")
	if addr == "" {
		addr = ":8081"
	}
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
		Storage:           &common.GCSStorage{Client: gcsClient},
		Publisher:         &common.PubSubPublisher{Client: pubsubClient},
		CTX:               &ctx,
		Bucket:            bucket,
		CompressTopicID:   compressTopicID,
		DecompressTopicID: decompressTopicID,
		MaxUploadSize:     1 << 30, // 1GB
		GCSTimeout:        50 * time.Second,
	}

	http.HandleFunc("/compress", app.compressHandler)
	http.HandleFunc("/decompress", app.decompressHandler)
	slog.Info("Listening on " + addr + "...")
	http.ListenAndServe(addr, nil)
}
