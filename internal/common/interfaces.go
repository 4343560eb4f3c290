package common

import (
	"context"
	"io"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
)

type ObjectReader interface {
	io.ReadCloser
}
type ObjectWriter interface {
	io.WriteCloser
}

// StorageClient abstracts the GCS operations the services need, so tests
// can swap in an in-memory store.
type StorageClient interface {
	NewObjectWriter(ctx context.Context, bucket, object string) ObjectWriter
	NewObjectReader(ctx context.Context, bucket, object string) (ObjectReader, error)
}

type Publisher interface {
	PublishMessage(ctx context.Context, topicID string, msg *pubsub.Message) (string, error)
}

// Message abstracts the Pub/Sub message for testing.
type Message interface {
	Ack()
	Nack()
	GetData() []byte
}

type GCSStorage struct {
	Client *storage.Client
}

func (c *GCSStorage) NewObjectWriter(ctx context.Context, bucket, object string) ObjectWriter {
	return c.Client.Bucket(bucket).Object(object).NewWriter(ctx)
}

func (c *GCSStorage) NewObjectReader(ctx context.Context, bucket, object string) (ObjectReader, error) {
	return c.Client.Bucket(bucket).Object(object).NewReader(ctx)
}

type PubSubPublisher struct {
	Client *pubsub.Client
}

func (c *PubSubPublisher) PublishMessage(ctx context.Context, topicID string, msg *pubsub.Message) (string, error) {
	publisher := c.Client.Publisher(topicID)
	result := publisher.Publish(ctx, msg)
	return result.Get(ctx)
}

// PubSubMessage wraps the concrete pubsub.Message.
type PubSubMessage struct {
	Msg *pubsub.Message
}

func (m *PubSubMessage) Ack() {
	m.Msg.Ack()
}

func (m *PubSubMessage) Nack() {
	m.Msg.Nack()
}

func (m *PubSubMessage) GetData() []byte {
	return m.Msg.Data
}
