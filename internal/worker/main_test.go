package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Yashdhokiya-7733/file-compression-and-decompression/compression"
	"github.com/Yashdhokiya-7733/file-compression-and-decompression/internal/common"
)

// --- Mocks ---

// mockStorageClient satisfies common.StorageClient
type mockStorageClient struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
	// failRead tells NewObjectReader to return an error
	failRead bool
}

func (c *mockStorageClient) NewObjectWriter(ctx context.Context, bucket, object string) common.ObjectWriter {
	return &mockObjectWriter{
		objectPath: object,
		buffer:     new(bytes.Buffer),
		client:     c,
	}
}

func (c *mockStorageClient) NewObjectReader(ctx context.Context, bucket, object string) (common.ObjectReader, error) {
	if c.failRead {
		return nil, errors.New("mock gcs read error")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.files[object]
	if !ok {
		return nil, errors.New("storage: object doesn't exist")
	}
	return &mockObjectReader{bytes.NewReader(data.Bytes())}, nil
}

// Helper to pre-populate files
func (c *mockStorageClient) SetObject(object string, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[object] = bytes.NewBuffer(content)
}

// Helper to get file content from the mock
func (c *mockStorageClient) GetObjectContent(object string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.files[object]
	if !ok {
		return nil, false
	}
	return buf.Bytes(), true
}

// mockObjectWriter satisfies common.ObjectWriter
type mockObjectWriter struct {
	objectPath string
	buffer     *bytes.Buffer
	client     *mockStorageClient
}

func (w *mockObjectWriter) Write(p []byte) (n int, err error) {
	return w.buffer.Write(p)
}

// Close "commits" the buffer to the mock client's file map
func (w *mockObjectWriter) Close() error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()
	w.client.files[w.objectPath] = w.buffer
	return nil
}

type mockObjectReader struct {
	*bytes.Reader
}

func (r *mockObjectReader) Close() error { return nil }

// mockMessage satisfies common.Message
type mockMessage struct {
	data       []byte
	ackCalled  bool
	nackCalled bool
}

func (m *mockMessage) Ack()            { m.ackCalled = true }
func (m *mockMessage) Nack()           { m.nackCalled = true }
func (m *mockMessage) GetData() []byte { return m.data }

// --- Test Setup ---

const testBucket = "test-bucket"

// setupTestApp initializes a new Application with mock clients.
func setupTestApp(t *testing.T) (*Application, *mockStorageClient) {
	t.Helper()

	ctx := context.Background()

	mockGCS := &mockStorageClient{
		files: make(map[string]*bytes.Buffer),
	}

	app := &Application{
		Storage: mockGCS,
		CTX:     &ctx,
		Bucket:  testBucket,
	}

	return app, mockGCS
}

func compressJobMessage(t *testing.T, job common.CompressJob) *mockMessage {
	t.Helper()
	msgBytes, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}
	return &mockMessage{data: msgBytes}
}

func decompressJobMessage(t *testing.T, job common.DecompressJob) *mockMessage {
	t.Helper()
	msgBytes, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}
	return &mockMessage{data: msgBytes}
}

// --- Tests ---

func TestCompressMessageHandler(t *testing.T) {
	jobID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		app, mockGCS := setupTestApp(t)
		original := []byte(strings.Repeat("some compressible text. ", 200))
		originalPath := fmt.Sprintf("%s/original_test.txt", jobID)
		mockGCS.SetObject(originalPath, original)

		mockMsg := compressJobMessage(t, common.CompressJob{
			UID:          jobID,
			OriginalPath: originalPath,
			OriginalSize: uint32(len(original)),
		})

		app.compressMessageHandler(context.Background(), mockMsg)

		compressedPath := fmt.Sprintf("%s/compressed.huf", jobID)
		container, ok := mockGCS.GetObjectContent(compressedPath)
		if !ok {
			t.Fatalf("Expected compressed file %q to exist, but it doesn't", compressedPath)
		}

		// the stored container must decode back to the original bytes
		restored, err := compression.Decompress(container)
		if err != nil {
			t.Fatalf("Stored container does not decode: %v", err)
		}
		if !bytes.Equal(restored, original) {
			t.Errorf("Expected container to decode to %d original bytes, got %d", len(original), len(restored))
		}
		if len(container) >= len(original) {
			t.Errorf("Expected container (%d bytes) to be smaller than input (%d bytes)", len(container), len(original))
		}

		if !mockMsg.ackCalled {
			t.Error("Expected message to be Ack-ed, but it wasn't")
		}
		if mockMsg.nackCalled {
			t.Error("Expected message to not be Nack-ed, but it was")
		}
	})

	testCases := []struct {
		name  string
		setup func(t *testing.T) (*Application, common.Message)
	}{
		{
			name: "bad Pub/Sub message",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, _ := setupTestApp(t)
				return app, &mockMessage{data: []byte("not json")}
			},
		},
		{
			name: "original file does not exist",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, _ := setupTestApp(t)
				return app, compressJobMessage(t, common.CompressJob{UID: jobID, OriginalPath: "missing.txt"})
			},
		},
		{
			name: "gcs read failure",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, mockGCS := setupTestApp(t)
				mockGCS.failRead = true
				return app, compressJobMessage(t, common.CompressJob{UID: jobID, OriginalPath: "whatever.txt"})
			},
		},
		{
			name: "empty original",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, mockGCS := setupTestApp(t)
				originalPath := fmt.Sprintf("%s/original_empty.txt", jobID)
				mockGCS.SetObject(originalPath, nil)
				return app, compressJobMessage(t, common.CompressJob{UID: jobID, OriginalPath: originalPath})
			},
		},
		{
			name: "size mismatch",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, mockGCS := setupTestApp(t)
				originalPath := fmt.Sprintf("%s/original_short.txt", jobID)
				mockGCS.SetObject(originalPath, []byte("short"))
				return app, compressJobMessage(t, common.CompressJob{
					UID: jobID, OriginalPath: originalPath, OriginalSize: 9999,
				})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app, mockMsg := tc.setup(t)
			app.compressMessageHandler(context.Background(), mockMsg)

			if !mockMsg.(*mockMessage).nackCalled {
				t.Error("Expected message to be Nack-ed, but it wasn't")
			}
			if mockMsg.(*mockMessage).ackCalled {
				t.Error("Expected message to not be Ack-ed, but it was")
			}
		})
	}
}

func TestDecompressMessageHandler(t *testing.T) {
	jobID := uuid.New().String()
	original := []byte(strings.Repeat("round trip through the worker ", 100))
	container, err := compression.Compress(original)
	if err != nil {
		t.Fatalf("Failed to build test container: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		app, mockGCS := setupTestApp(t)
		compressedPath := fmt.Sprintf("%s/compressed.huf", jobID)
		mockGCS.SetObject(compressedPath, container)

		mockMsg := decompressJobMessage(t, common.DecompressJob{
			UID:            jobID,
			CompressedPath: compressedPath,
		})

		app.decompressMessageHandler(context.Background(), mockMsg)

		restoredPath := fmt.Sprintf("%s/restored.bin", jobID)
		restored, ok := mockGCS.GetObjectContent(restoredPath)
		if !ok {
			t.Fatalf("Expected restored file %q to exist, but it doesn't", restoredPath)
		}
		if !bytes.Equal(restored, original) {
			t.Errorf("Expected restored content to match original: got %d bytes want %d bytes",
				len(restored), len(original))
		}

		if !mockMsg.ackCalled {
			t.Error("Expected message to be Ack-ed, but it wasn't")
		}
		if mockMsg.nackCalled {
			t.Error("Expected message to not be Nack-ed, but it was")
		}
	})

	corrupted := append([]byte(nil), container...)
	corrupted[0] ^= 0xff

	testCases := []struct {
		name  string
		setup func(t *testing.T) (*Application, common.Message)
	}{
		{
			name: "bad pubsub message",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, _ := setupTestApp(t)
				return app, &mockMessage{data: []byte("not json")}
			},
		},
		{
			name: "compressed file does not exist",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, _ := setupTestApp(t)
				return app, decompressJobMessage(t, common.DecompressJob{UID: jobID, CompressedPath: "missing.huf"})
			},
		},
		{
			name: "corrupted container",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, mockGCS := setupTestApp(t)
				compressedPath := fmt.Sprintf("%s/corrupt.huf", jobID)
				mockGCS.SetObject(compressedPath, corrupted)
				return app, decompressJobMessage(t, common.DecompressJob{UID: jobID, CompressedPath: compressedPath})
			},
		},
		{
			name: "truncated container",
			setup: func(t *testing.T) (*Application, common.Message) {
				app, mockGCS := setupTestApp(t)
				compressedPath := fmt.Sprintf("%s/truncated.huf", jobID)
				mockGCS.SetObject(compressedPath, container[:len(container)-2])
				return app, decompressJobMessage(t, common.DecompressJob{UID: jobID, CompressedPath: compressedPath})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app, mockMsg := tc.setup(t)
			app.decompressMessageHandler(context.Background(), mockMsg)

			if !mockMsg.(*mockMessage).nackCalled {
				t.Error("Expected message to be Nack-ed, but it wasn't")
			}
			if mockMsg.(*mockMessage).ackCalled {
				t.Error("Expected message to not be Ack-ed, but it was")
			}
		})
	}
}
