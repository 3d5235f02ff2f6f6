package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

const defaultBatchSize = 500

// S3Config holds the object-storage settings for the archiver. The
// endpoint override supports S3-compatible stores (MinIO, R2).
type S3Config struct {
	Bucket    string `env:"AUDIT_ARCHIVE_BUCKET"`
	Prefix    string `env:"AUDIT_ARCHIVE_PREFIX" envDefault:"esp-sync"`
	Region    string `env:"AUDIT_ARCHIVE_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"AUDIT_ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"AUDIT_ARCHIVE_SECRET_KEY"`
	Endpoint  string `env:"AUDIT_ARCHIVE_ENDPOINT"`
	PathStyle bool   `env:"AUDIT_ARCHIVE_PATH_STYLE"`

	// BatchSize triggers an automatic flush once this many events are
	// buffered. The queue's periodic flush job handles slow days.
	BatchSize int `env:"AUDIT_ARCHIVE_BATCH_SIZE" envDefault:"500"`
}

// ObjectPutter is the slice of the S3 API the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from config.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}
	return s3.New(s3.Options{}, opts...)
}

// Archiver buffers audit events and writes them as JSON Lines objects,
// one object per flush, keyed by date and a random suffix. It satisfies
// Sink.
type Archiver struct {
	client ObjectPutter
	cfg    S3Config

	mu  sync.Mutex
	buf []Event
}

// NewArchiver creates an archiver on top of an S3 client.
func NewArchiver(client ObjectPutter, cfg S3Config) *Archiver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Archiver{client: client, cfg: cfg}
}

// Record implements Sink. The event is buffered; a full buffer triggers
// a flush inline.
func (a *Archiver) Record(ctx context.Context, e Event) error {
	a.mu.Lock()
	a.buf = append(a.buf, e)
	full := len(a.buf) >= a.cfg.BatchSize
	a.mu.Unlock()

	if full {
		return a.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered events to one object. On upload failure the
// events are re-buffered for the next attempt.
func (a *Archiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.buf
	a.buf = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range batch {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("audit: encode event: %w", err)
		}
	}

	key := fmt.Sprintf("%s/%s/%s.jsonl",
		a.cfg.Prefix, time.Now().UTC().Format("2006/01/02"), uuid.NewString())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		a.mu.Lock()
		a.buf = append(batch, a.buf...)
		a.mu.Unlock()

		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("audit: archive upload %s: %s: %w", key, apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("audit: archive upload %s: %w", key, err)
	}

	return nil
}

// Len reports the number of buffered events.
func (a *Archiver) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}
