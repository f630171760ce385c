// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup:
// the S3 implementation works with any S3-compatible provider (Ceph RGW,
// MinIO, AWS S3) and the MinIO implementation is kept for MinIO deployments.
package storage

import (
	"context"
	"io"
)

// Canned ACLs understood by every S3-compatible backend.
const (
	ACLPublicRead = "public-read"
	ACLPrivate    = "private"
)

// Object describes a single streamed PUT.
type Object struct {
	Key  string
	Body io.Reader
	// Size is the exact byte count, or -1 when unknown.
	Size         int64
	ContentType  string
	CacheControl string
	ACL          string
	Metadata     map[string]string
}

// Storage is the interface for uploading objects.
type Storage interface {
	// Put streams obj.Body to the store in a single request.
	Put(ctx context.Context, obj Object) error
	// Bucket returns the bucket objects are written to.
	Bucket() string
}
