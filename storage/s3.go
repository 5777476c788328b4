package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

// S3 stores blobs in a single bucket, keyed {namespace}/{storedName}.
// A custom endpoint makes this work against any S3-compatible provider
type S3 struct {
	c        *s3.Client
	uploader *manager.Uploader
	bucket   *string
}

func NewS3() (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("aws.access_key_id"),
			viper.GetString("aws.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("aws.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if e := viper.GetString("aws.endpoint"); e != "" {
			o.BaseEndpoint = aws.String(e)
		}

		o.Region = viper.GetString("aws.region")
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3{
		c:        client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}, nil
}

// countingReader tracks how many bytes the uploader consumed since
// multipart bodies don't carry a trustworthy length up front
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *S3) Write(ctx context.Context, namespace, originalName string, r io.Reader) (*WriteResult, error) {
	name, err := newStoredName(originalName)
	if err != nil {
		return nil, err
	}

	key := path.Join(namespace, name)
	cr := &countingReader{r: r}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key),
		Body:   cr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob to S3, %w", err)
	}

	return &WriteResult{
		StoredName: name,
		Path:       key,
		Size:       cr.n,
	}, nil
}

func (s *S3) Open(ctx context.Context, relPath string) (io.ReadCloser, int64, error) {
	out, err := s.c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(relPath),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, 0, ErrNotFound
		}

		return nil, 0, err
	}

	return out.Body, aws.ToInt64(out.ContentLength), nil
}

func (s *S3) Delete(ctx context.Context, relPath string) error {
	// S3 deletes are already idempotent, a missing key succeeds
	_, err := s.c.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(relPath),
	})

	return err
}
