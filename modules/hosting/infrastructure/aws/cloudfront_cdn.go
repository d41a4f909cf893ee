package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/cloudfront/cloudfrontiface"
	"github.com/go-faster/errors"
	"github.com/samber/lo"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
)

type CloudfrontCDN struct {
	client cloudfrontiface.CloudFrontAPI
	retry  *retrier
}

var _ cloud.CDN = (*CloudfrontCDN)(nil)

func NewCloudfrontCDN(client cloudfrontiface.CloudFrontAPI, retry *retrier) *CloudfrontCDN {
	return &CloudfrontCDN{client: client, retry: retry}
}

func (g *CloudfrontCDN) CreateOriginAccessControl(ctx context.Context, req cloud.CreateOACRequest) (string, error) {
	var out *cloudfront.CreateOriginAccessControlOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.CreateOriginAccessControlWithContext(ctx, &cloudfront.CreateOriginAccessControlInput{
			OriginAccessControlConfig: &cloudfront.OriginAccessControlConfig{
				Name:                          aws.String(req.Name),
				Description:                   aws.String(req.Description),
				OriginAccessControlOriginType: aws.String("s3"),
				SigningBehavior:               aws.String("always"),
				SigningProtocol:               aws.String("sigv4"),
			},
		})
		return errors.Wrap(err, "create origin access control")
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.OriginAccessControl.Id), nil
}

func (g *CloudfrontCDN) CreateDistribution(ctx context.Context, req cloud.CreateDistributionRequest) (*cloud.Distribution, error) {
	config := distributionConfig(req)

	var out *cloudfront.CreateDistributionOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.CreateDistributionWithContext(ctx, &cloudfront.CreateDistributionInput{
			DistributionConfig: config,
		})
		return errors.Wrap(err, "create distribution")
	})
	if err != nil {
		return nil, err
	}
	return toDomainDistribution(out.Distribution), nil
}

func (g *CloudfrontCDN) GetDistribution(ctx context.Context, id string) (*cloud.Distribution, error) {
	var out *cloudfront.GetDistributionOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.GetDistributionWithContext(ctx, &cloudfront.GetDistributionInput{
			Id: aws.String(id),
		})
		return errors.Wrap(err, "get distribution")
	})
	if err != nil {
		return nil, err
	}
	return toDomainDistribution(out.Distribution), nil
}

// UpdateDistribution rewrites the alias list and viewer certificate, leaving
// the rest of the live config untouched.
func (g *CloudfrontCDN) UpdateDistribution(ctx context.Context, req cloud.UpdateDistributionRequest) error {
	config, etag, err := g.getConfig(ctx, req.ID)
	if err != nil {
		return err
	}

	aliases := lo.Uniq(req.Aliases)
	config.Aliases = &cloudfront.Aliases{
		Quantity: aws.Int64(int64(len(aliases))),
		Items:    aws.StringSlice(aliases),
	}
	if req.CertificateARN != "" {
		config.ViewerCertificate = viewerCertificate(req.CertificateARN)
	}

	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.UpdateDistributionWithContext(ctx, &cloudfront.UpdateDistributionInput{
			Id:                 aws.String(req.ID),
			IfMatch:            aws.String(etag),
			DistributionConfig: config,
		})
		return errors.Wrap(err, "update distribution")
	})
}

func (g *CloudfrontCDN) DisableDistribution(ctx context.Context, id string) error {
	config, etag, err := g.getConfig(ctx, id)
	if err != nil {
		return err
	}
	if !aws.BoolValue(config.Enabled) {
		return nil
	}
	config.Enabled = aws.Bool(false)

	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.UpdateDistributionWithContext(ctx, &cloudfront.UpdateDistributionInput{
			Id:                 aws.String(id),
			IfMatch:            aws.String(etag),
			DistributionConfig: config,
		})
		return errors.Wrap(err, "disable distribution")
	})
}

func (g *CloudfrontCDN) DeleteDistribution(ctx context.Context, id string) error {
	var out *cloudfront.GetDistributionOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.GetDistributionWithContext(ctx, &cloudfront.GetDistributionInput{
			Id: aws.String(id),
		})
		return errors.Wrap(err, "get distribution for delete")
	})
	if err != nil {
		return err
	}

	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.DeleteDistributionWithContext(ctx, &cloudfront.DeleteDistributionInput{
			Id:      aws.String(id),
			IfMatch: out.ETag,
		})
		return errors.Wrap(err, "delete distribution")
	})
}

func (g *CloudfrontCDN) CreateInvalidation(ctx context.Context, distributionID string, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"/*"}
	}
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.CreateInvalidationWithContext(ctx, &cloudfront.CreateInvalidationInput{
			DistributionId: aws.String(distributionID),
			InvalidationBatch: &cloudfront.InvalidationBatch{
				CallerReference: aws.String(fmt.Sprintf("inv-%d", time.Now().UnixNano())),
				Paths: &cloudfront.Paths{
					Quantity: aws.Int64(int64(len(paths))),
					Items:    aws.StringSlice(paths),
				},
			},
		})
		return errors.Wrap(err, "create invalidation")
	})
}

func (g *CloudfrontCDN) getConfig(ctx context.Context, id string) (*cloudfront.DistributionConfig, string, error) {
	var out *cloudfront.GetDistributionConfigOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.GetDistributionConfigWithContext(ctx, &cloudfront.GetDistributionConfigInput{
			Id: aws.String(id),
		})
		return errors.Wrap(err, "get distribution config")
	})
	if err != nil {
		return nil, "", err
	}
	return out.DistributionConfig, aws.StringValue(out.ETag), nil
}

const originID = "s3-origin"

func distributionConfig(req cloud.CreateDistributionRequest) *cloudfront.DistributionConfig {
	config := &cloudfront.DistributionConfig{
		CallerReference:   aws.String(fmt.Sprintf("dist-%d", time.Now().UnixNano())),
		Comment:           aws.String(req.Comment),
		Enabled:           aws.Bool(true),
		DefaultRootObject: aws.String(req.DefaultRootObject),
		Origins: &cloudfront.Origins{
			Quantity: aws.Int64(1),
			Items: []*cloudfront.Origin{
				{
					Id:                    aws.String(originID),
					DomainName:            aws.String(req.OriginBucket),
					OriginAccessControlId: aws.String(req.OriginAccessControlID),
					S3OriginConfig: &cloudfront.S3OriginConfig{
						OriginAccessIdentity: aws.String(""),
					},
				},
			},
		},
		DefaultCacheBehavior: &cloudfront.DefaultCacheBehavior{
			TargetOriginId:       aws.String(originID),
			ViewerProtocolPolicy: aws.String("redirect-to-https"),
			AllowedMethods: &cloudfront.AllowedMethods{
				Quantity: aws.Int64(2),
				Items:    aws.StringSlice([]string{"GET", "HEAD"}),
				CachedMethods: &cloudfront.CachedMethods{
					Quantity: aws.Int64(2),
					Items:    aws.StringSlice([]string{"GET", "HEAD"}),
				},
			},
			Compress: aws.Bool(true),
			ForwardedValues: &cloudfront.ForwardedValues{
				QueryString: aws.Bool(false),
				Cookies: &cloudfront.CookiePreference{
					Forward: aws.String("none"),
				},
			},
			MinTTL: aws.Int64(0),
		},
	}

	if len(req.Aliases) > 0 {
		config.Aliases = &cloudfront.Aliases{
			Quantity: aws.Int64(int64(len(req.Aliases))),
			Items:    aws.StringSlice(req.Aliases),
		}
	}
	if req.CertificateARN != "" {
		config.ViewerCertificate = viewerCertificate(req.CertificateARN)
	}
	if req.SPAFallback {
		config.CustomErrorResponses = &cloudfront.CustomErrorResponses{
			Quantity: aws.Int64(2),
			Items: []*cloudfront.CustomErrorResponse{
				spaErrorResponse(403),
				spaErrorResponse(404),
			},
		}
	}

	return config
}

// spaErrorResponse maps origin errors to the SPA entrypoint so deep links
// resolve client side.
func spaErrorResponse(code int64) *cloudfront.CustomErrorResponse {
	return &cloudfront.CustomErrorResponse{
		ErrorCode:          aws.Int64(code),
		ResponseCode:       aws.String("200"),
		ResponsePagePath:   aws.String("/index.html"),
		ErrorCachingMinTTL: aws.Int64(10),
	}
}

func viewerCertificate(arn string) *cloudfront.ViewerCertificate {
	return &cloudfront.ViewerCertificate{
		ACMCertificateArn:      aws.String(arn),
		SSLSupportMethod:       aws.String("sni-only"),
		MinimumProtocolVersion: aws.String("TLSv1.2_2021"),
	}
}

func toDomainDistribution(d *cloudfront.Distribution) *cloud.Distribution {
	out := &cloud.Distribution{
		ID:         aws.StringValue(d.Id),
		ARN:        aws.StringValue(d.ARN),
		DomainName: aws.StringValue(d.DomainName),
		Status:     aws.StringValue(d.Status),
	}
	if config := d.DistributionConfig; config != nil {
		out.Enabled = aws.BoolValue(config.Enabled)
		if config.Aliases != nil {
			out.Aliases = aws.StringValueSlice(config.Aliases.Items)
		}
		if config.ViewerCertificate != nil {
			out.CertificateARN = aws.StringValue(config.ViewerCertificate.ACMCertificateArn)
		}
	}
	return out
}
