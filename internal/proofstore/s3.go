package proofstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

const s3Prefix = "proofs/"

// S3 хранит изображения в бакете S3 или совместимом хранилище (MinIO, Ceph RGW).
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 создаёт клиента. Без явных ключей используется цепочка учётных данных AWS по умолчанию.
func NewS3(ctx context.Context, cfg config.ProofStorage) (*S3, error) {
	const op = "proofstore.NewS3"
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("%s: bucket is not configured", op)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{client: client, bucket: cfg.S3Bucket}, nil
}

func (s *S3) Save(ctx context.Context, blob Blob) error {
	const op = "proofstore.S3.Save"
	if !validKey(blob.Key) {
		return fmt.Errorf("%s: %w: invalid proof key %q", op, models.ErrValidation, blob.Key)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Prefix + blob.Key),
		Body:        bytes.NewReader(blob.Data),
		ContentType: aws.String(blob.ContentType),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *S3) Load(ctx context.Context, key string) (Blob, error) {
	const op = "proofstore.S3.Load"
	if !validKey(key) {
		return Blob{}, fmt.Errorf("%s: %w: invalid proof key %q", op, models.ErrValidation, key)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Prefix + key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return Blob{}, fmt.Errorf("%s: proof %s: %w", op, key, models.ErrNotFound)
		}
		return Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	ct := aws.ToString(out.ContentType)
	if ct == "" {
		ct = contentType(data)
	}
	return Blob{Key: key, ContentType: ct, Data: data}, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	const op = "proofstore.S3.Delete"
	if !validKey(key) {
		return fmt.Errorf("%s: %w: invalid proof key %q", op, models.ErrValidation, key)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Prefix + key),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
