// Package media proxies uploaded files to an S3-compatible object store and
// hands back durable URLs for persistence on domain records.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/config"
)

// Asset identifies a stored media object: the public URL written onto domain
// records and the bucket key used for later deletion.
type Asset struct {
	URL string
	Key string
}

// S3Gateway uploads local files to the configured bucket.
type S3Gateway struct {
	uploader *manager.Uploader
	client   *s3.Client
	bucket   string
	baseURL  string
}

// NewS3Gateway configures an uploader targeting the provided object store.
func NewS3Gateway(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Gateway, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("media gateway: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Gateway{
		uploader: uploader,
		client:   client,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the file at localPath in the bucket and returns its asset
// reference. An empty path is treated as an absent optional asset and yields
// (nil, nil).
func (g *S3Gateway) Upload(ctx context.Context, localPath string) (*Asset, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("media gateway open %s: %w", localPath, err)
	}
	defer f.Close()

	key := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))

	_, err = g.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return nil, fmt.Errorf("media gateway upload %s: %w", key, err)
	}

	url := key
	if g.baseURL != "" {
		url = fmt.Sprintf("%s/%s", g.baseURL, key)
	}

	return &Asset{URL: url, Key: key}, nil
}

// Delete removes a previously uploaded object. Deleting an empty key is a
// no-op so callers can pass through optional asset references.
func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}

	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("media gateway delete %s: %w", key, err)
	}

	return nil
}
