package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// S3Archive stores session snapshots in an S3 bucket
// Bucket structure: s3://<bucket>/<prefix>/sessions/<sessionID>.json
// Status and attempt count are also stored as object metadata.
type S3Archive struct {
	client     S3API // Use interface for testability
	bucketName string
	prefix     string // Optional prefix for all keys (e.g., "deequery/prod")
}

// S3Config holds S3 archive configuration
type S3Config struct {
	BucketName string // S3 bucket name
	Prefix     string // Optional key prefix
	Region     string // AWS region (optional, uses default if empty)
}

// NewS3Archive creates an archive using the default AWS credential chain
func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3 archive requires a bucket name")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	return NewS3ArchiveWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix), nil
}

// NewS3ArchiveWithClient creates an archive over a custom S3 client
// This is primarily used for testing with mock S3 clients
func NewS3ArchiveWithClient(client S3API, bucketName, prefix string) *S3Archive {
	return &S3Archive{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
	}
}

var _ repository.SessionRepository = (*S3Archive)(nil)

// Save uploads the session snapshot
func (a *S3Archive) Save(ctx context.Context, s *session.Session) error {
	data, err := session.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	rec := repository.RecordOf(s)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(a.key(s.ID())),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"session-id": rec.ID.String(),
			"status":     rec.Status.String(),
			"attempts":   strconv.Itoa(rec.Attempts),
		},
	})
	if err != nil {
		return fmt.Errorf("upload to S3: %w", err)
	}
	return nil
}

// FindByID downloads and restores one session
func (a *S3Archive) FindByID(ctx context.Context, id session.ID) (*session.Session, error) {
	data, err := a.get(ctx, a.key(id))
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return session.Unmarshal(data)
}

// List walks every snapshot under the prefix
func (a *S3Archive) List(ctx context.Context, filter repository.SessionFilter) ([]repository.SessionRecord, error) {
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucketName),
		Prefix: aws.String(a.buildKey("sessions") + "/"),
	})

	var records []repository.SessionRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if idFromName(key) == "" {
				continue
			}
			data, err := a.get(ctx, key)
			if err != nil {
				return nil, err
			}
			rec, err := decodeRecord(key, data)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return selectRecords(records, filter), nil
}

func (a *S3Archive) get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get S3 object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read S3 object %s: %w", key, err)
	}
	return data, nil
}

func (a *S3Archive) key(id session.ID) string {
	return a.buildKey("sessions", snapshotName(id))
}

// buildKey joins the prefix and parts with '/'
func (a *S3Archive) buildKey(parts ...string) string {
	key := ""
	if a.prefix != "" {
		key = a.prefix
	}
	for _, p := range parts {
		if key == "" {
			key = p
		} else {
			key += "/" + p
		}
	}
	return key
}

// S3API is the subset of the S3 client the archive uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)
