package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinio creates a MinIO client for the given endpoint. The URL scheme
// decides whether TLS is used.
func NewMinio(endpoint *url.URL, region, accessKey, secretKey, bucket string) (*MinioStorage, error) {
	client, err := minio.New(endpoint.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: endpoint.Scheme == "https",
		Region: region,
		// Lookups follow the path style used by Ceph and MinIO.
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStorage{client: client, bucket: bucket}, nil
}

// Bucket implements Storage.
func (s *MinioStorage) Bucket() string { return s.bucket }

// Put streams obj.Body to MinIO under obj.Key in a single PUT. Multipart is
// disabled, so minio-go rejects a body whose size is unknown (-1).
func (s *MinioStorage) Put(ctx context.Context, obj Object) error {
	_, err := s.client.PutObject(ctx, s.bucket, obj.Key, obj.Body, obj.Size, minioPutOptions(obj))
	if err != nil {
		return fmt.Errorf("put object %q: %w", obj.Key, err)
	}
	return nil
}

// minioPutOptions translates an Object into minio options. minio-go has no ACL
// field; amz headers placed in UserMetadata are sent verbatim.
func minioPutOptions(obj Object) minio.PutObjectOptions {
	meta := make(map[string]string, len(obj.Metadata)+1)
	for k, v := range obj.Metadata {
		meta[k] = v
	}
	if obj.ACL != "" {
		meta["x-amz-acl"] = obj.ACL
	}
	return minio.PutObjectOptions{
		ContentType:      obj.ContentType,
		CacheControl:     obj.CacheControl,
		UserMetadata:     meta,
		DisableMultipart: true,
	}
}
