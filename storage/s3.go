package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/identity-registry/interfaces"
)

// S3Config describes a bucket holding state documents.
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint selects an S3 compatible service instead of AWS.
	Endpoint string

	// PathStyle addresses the bucket in the path, as most S3 compatible services expect.
	PathStyle bool

	// Without keys requests are anonymous, which only works for public buckets.
	AccessKey string
	SecretKey string
}

// S3Publisher keeps state documents in an S3 bucket, one object per content hash.
// Objects are public-read so that clients can fetch them without credentials.
type S3Publisher struct {
	client      *s3.S3
	bucket      string
	prefix      string
	writable    bool
	log         *slog.Logger
	locationURI string
}

// NewS3Publisher creates a publisher for the bucket described by cfg.
func NewS3Publisher(cfg S3Config, log *slog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
		Credentials:      credentials.AnonymousCredentials,
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	writable := cfg.AccessKey != "" && cfg.SecretKey != ""
	if writable {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		log.Warn("No S3 credentials provided, publishing will fail unless the bucket is public writable",
			slog.String("bucket", cfg.Bucket))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", cfg.Bucket, cfg.Prefix, cfg.Region)
	if cfg.Endpoint != "" {
		uri += "&endpoint=" + cfg.Endpoint
	}

	return &S3Publisher{
		client:      s3.New(sess),
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		writable:    writable,
		log:         log,
		locationURI: uri,
	}, nil
}

// Publish uploads data under HashOf(data) and returns the hash.
func (b *S3Publisher) Publish(ctx context.Context, data []byte) (string, error) {
	hash, err := HashOf(data)
	if err != nil {
		return "", err
	}
	if err := b.Store(ctx, hash, data); err != nil {
		return "", err
	}
	return hash, nil
}

// Store uploads data under hash.
func (b *S3Publisher) Store(ctx context.Context, hash string, data []byte) error {
	if err := ValidateIPFSHash(hash); err != nil {
		return err
	}

	key := b.objectKey(hash)
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		if !b.writable {
			return fmt.Errorf("failed to upload object to S3 (no write credentials provided): %w", err)
		}
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored content in S3",
		slog.String("bucket", b.bucket),
		slog.String("key", key))
	return nil
}

// Fetch downloads the document stored under hash.
// Returns ErrContentNotFound if the object does not exist.
func (b *S3Publisher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	if err := ValidateIPFSHash(hash); err != nil {
		return nil, err
	}

	start := time.Now()
	key := b.objectKey(hash)

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			b.log.Debug("Content not found in S3",
				slog.String("bucket", b.bucket),
				slog.String("key", key))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, hash)
		}
		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucket),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched content from S3",
		slog.String("bucket", b.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

// Available checks that the bucket can be reached.
func (b *S3Publisher) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		b.log.Warn("S3 publisher unavailable", slog.String("bucket", b.bucket), "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this publisher.
func (b *S3Publisher) Name() string {
	return fmt.Sprintf("s3-%s", b.bucket)
}

// LocationURI returns the URI that identifies this publisher, without credentials.
func (b *S3Publisher) LocationURI() string {
	return b.locationURI
}

func (b *S3Publisher) objectKey(hash string) string {
	if b.prefix == "" {
		return hash
	}
	return path.Join(b.prefix, hash)
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey
}
