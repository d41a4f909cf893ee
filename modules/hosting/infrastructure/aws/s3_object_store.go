package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/go-faster/errors"
	"github.com/samber/lo"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
)

type S3ObjectStore struct {
	client s3iface.S3API
	region string
	retry  *retrier
}

var _ cloud.ObjectStore = (*S3ObjectStore)(nil)

func NewS3ObjectStore(client s3iface.S3API, region string, retry *retrier) *S3ObjectStore {
	return &S3ObjectStore{client: client, region: region, retry: retry}
}

func (g *S3ObjectStore) CreateBucket(ctx context.Context, req cloud.CreateBucketRequest) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(req.Bucket),
	}
	// us-east-1 is the API default and rejects an explicit location constraint.
	region := req.Region
	if region == "" {
		region = g.region
	}
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(region),
		}
	}
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.CreateBucketWithContext(ctx, input)
		return errors.Wrap(err, "create bucket")
	})
}

func (g *S3ObjectStore) BlockPublicAccess(ctx context.Context, bucket string) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.PutPublicAccessBlockWithContext(ctx, &s3.PutPublicAccessBlockInput{
			Bucket: aws.String(bucket),
			PublicAccessBlockConfiguration: &s3.PublicAccessBlockConfiguration{
				BlockPublicAcls:       aws.Bool(true),
				BlockPublicPolicy:     aws.Bool(true),
				IgnorePublicAcls:      aws.Bool(true),
				RestrictPublicBuckets: aws.Bool(true),
			},
		})
		return errors.Wrap(err, "put public access block")
	})
}

func (g *S3ObjectStore) SetBucketPolicy(ctx context.Context, req cloud.SetBucketPolicyRequest) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.PutBucketPolicyWithContext(ctx, &s3.PutBucketPolicyInput{
			Bucket: aws.String(req.Bucket),
			Policy: aws.String(req.Policy),
		})
		return errors.Wrap(err, "put bucket policy")
	})
}

func (g *S3ObjectStore) PutObject(ctx context.Context, req cloud.PutObjectRequest) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(req.Bucket),
			Key:         aws.String(req.Key),
			ContentType: aws.String(req.ContentType),
			Body:        aws.ReadSeekCloser(req.Body),
		})
		return errors.Wrap(err, "put object")
	})
}

func (g *S3ObjectStore) CopyObject(ctx context.Context, req cloud.CopyObjectRequest) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(req.DestBucket),
			Key:        aws.String(req.DestKey),
			CopySource: aws.String(fmt.Sprintf("%s/%s", req.SourceBucket, req.SourceKey)),
		})
		return errors.Wrap(err, "copy object")
	})
}

func (g *S3ObjectStore) ListObjects(ctx context.Context, req cloud.ListObjectsRequest) (*cloud.ListObjectsResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
	}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	if req.ContinuationToken != "" {
		input.ContinuationToken = aws.String(req.ContinuationToken)
	}
	if req.MaxKeys > 0 {
		input.MaxKeys = aws.Int64(req.MaxKeys)
	}

	var out *s3.ListObjectsV2Output
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.ListObjectsV2WithContext(ctx, input)
		return errors.Wrap(err, "list objects")
	})
	if err != nil {
		return nil, err
	}

	result := &cloud.ListObjectsResult{
		Keys: lo.Map(out.Contents, func(obj *s3.Object, _ int) string {
			return aws.StringValue(obj.Key)
		}),
		IsTruncated:           aws.BoolValue(out.IsTruncated),
		NextContinuationToken: aws.StringValue(out.NextContinuationToken),
	}
	return result, nil
}

func (g *S3ObjectStore) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := lo.Map(keys, func(key string, _ int) *s3.ObjectIdentifier {
		return &s3.ObjectIdentifier{Key: aws.String(key)}
	})
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		return errors.Wrap(err, "delete objects")
	})
}

func (g *S3ObjectStore) DeleteBucket(ctx context.Context, bucket string) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.DeleteBucketWithContext(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(bucket),
		})
		return errors.Wrap(err, "delete bucket")
	})
}

func (g *S3ObjectStore) PresignUpload(ctx context.Context, req cloud.PresignUploadRequest) (string, error) {
	s3Client, ok := g.client.(*s3.S3)
	if !ok {
		return "", errors.New("presigning requires a concrete s3 client")
	}
	awsReq, _ := s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(req.Bucket),
		Key:         aws.String(req.Key),
		ContentType: aws.String(req.ContentType),
	})
	awsReq.SetContext(ctx)
	url, err := awsReq.Presign(req.Expires)
	if err != nil {
		return "", errors.Wrap(err, "presign upload")
	}
	return url, nil
}
