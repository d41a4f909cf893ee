package cloud

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the capability surface over the tenant bucket backend. All
// operations are tenant-agnostic; callers pass fully qualified bucket names.
type ObjectStore interface {
	CreateBucket(ctx context.Context, req CreateBucketRequest) error
	// BlockPublicAccess locks the bucket down so objects are only reachable
	// through the CDN origin identity.
	BlockPublicAccess(ctx context.Context, bucket string) error
	SetBucketPolicy(ctx context.Context, req SetBucketPolicyRequest) error
	PutObject(ctx context.Context, req PutObjectRequest) error
	CopyObject(ctx context.Context, req CopyObjectRequest) error
	ListObjects(ctx context.Context, req ListObjectsRequest) (*ListObjectsResult, error)
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
	DeleteBucket(ctx context.Context, bucket string) error
	PresignUpload(ctx context.Context, req PresignUploadRequest) (string, error)
}

type CreateBucketRequest struct {
	Bucket string
	Region string
}

type SetBucketPolicyRequest struct {
	Bucket string
	Policy string
}

type PutObjectRequest struct {
	Bucket      string
	Key         string
	ContentType string
	Body        io.Reader
}

type CopyObjectRequest struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
	DestKey      string
}

type ListObjectsRequest struct {
	Bucket            string
	Prefix            string
	ContinuationToken string
	MaxKeys           int64
}

type ListObjectsResult struct {
	Keys                  []string
	IsTruncated           bool
	NextContinuationToken string
}

type PresignUploadRequest struct {
	Bucket      string
	Key         string
	ContentType string
	Expires     time.Duration
}
