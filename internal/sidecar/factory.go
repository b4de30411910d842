package sidecar

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"photocat/internal/catalog"
	"photocat/internal/config"
)

// NewStoreFromConfig creates a SidecarStore based on the sidecar config type.
// dataDir is the data folder that holds filesystem sidecars.
func NewStoreFromConfig(ctx context.Context, cfg config.SidecarConfig, dataDir string) (catalog.SidecarStore, error) {
	switch cfg.Type {
	case "", "filesystem":
		return NewFileSystemStore(dataDir)
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, catalog.Configf("s3 sidecar store requires s3_bucket to be set")
		}
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, catalog.Configf("unknown sidecar store type: %s", cfg.Type)
	}
}

// OpenStoreFromConfig creates a SidecarStore for read-only commands. A
// filesystem store is opened without creating its directory.
func OpenStoreFromConfig(ctx context.Context, cfg config.SidecarConfig, dataDir string) (catalog.SidecarStore, error) {
	if cfg.Type == "" || cfg.Type == "filesystem" {
		return OpenFileSystemStore(dataDir), nil
	}
	return NewStoreFromConfig(ctx, cfg, dataDir)
}

// newS3Client builds a client from the default AWS chain, overridden by
// static credentials, region and endpoint when configured.
func newS3Client(ctx context.Context, cfg config.SidecarConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
