package snapcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Backup mirrors monthly cache blobs to an S3 bucket
type S3Backup struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backup creates a backup client against the given bucket
func NewS3Backup(ctx context.Context, region, bucket, prefix string) (*S3Backup, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Backup{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (b *S3Backup) key(month string) string {
	return fmt.Sprintf("%ssnapcache-%s.json", b.prefix, month)
}

// Upload writes the month blob to the bucket
func (b *S3Backup) Upload(ctx context.Context, month string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(month)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload cache backup: %w", err)
	}
	return nil
}

// Download fetches the month blob, returning ErrBackupMiss when the object
// does not exist
func (b *S3Backup) Download(ctx context.Context, month string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(month)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrBackupMiss
		}
		return nil, fmt.Errorf("failed to download cache backup: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache backup body: %w", err)
	}
	return data, nil
}
