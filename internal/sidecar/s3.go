package sidecar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"photocat/internal/catalog"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store keeps sidecars as objects named <prefix>meta/<content-id>.json.
// Writes to the same id are serialized within this process only.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	locks    keyedMutex
}

// NewS3Store creates a store in bucket under prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3Store) key(id string) string {
	return path.Join(s.prefix+"meta", id+".json")
}

func (s *S3Store) Write(ctx context.Context, id string, doc catalog.Document, mode catalog.MergeMode) (catalog.WriteResult, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return 0, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	existing, found, err := s.Read(ctx, id)
	if err != nil {
		return 0, err
	}
	next, result := plan(existing, found, doc, mode)
	if result == catalog.WriteUnchanged {
		return result, nil
	}

	data, err := catalog.EncodeDocument(next)
	if err != nil {
		return 0, err
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return 0, fmt.Errorf("uploading sidecar %s: %w", id, err)
	}
	return result, nil
}

func (s *S3Store) Read(ctx context.Context, id string) (catalog.Document, bool, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return nil, false, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetching sidecar %s: %w", id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading sidecar %s: %w", id, err)
	}
	doc, err := catalog.DecodeDocumentBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("sidecar %s: %w", id, err)
	}
	return doc, true, nil
}

func (s *S3Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("checking sidecar %s: %w", id, err)
	}
	return true, nil
}

// ReadAll lists the meta/ prefix page by page. S3 returns keys in
// ascending UTF-8 order, which matches id order for hex ids.
func (s *S3Store) ReadAll(ctx context.Context, fn func(id string, doc catalog.Document) error) error {
	metaPrefix := s.prefix + "meta/"
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(metaPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing sidecars: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), metaPrefix)
			id, ok := strings.CutSuffix(name, ".json")
			if !ok || catalog.ValidateContentID(id) != nil {
				continue
			}
			doc, found, err := s.Read(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if err := fn(id, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ catalog.SidecarStore = (*S3Store)(nil)
