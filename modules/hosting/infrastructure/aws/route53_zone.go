package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/go-faster/errors"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
)

// cloudfrontHostedZoneID is the fixed provider zone every CloudFront
// distribution alias must target.
const cloudfrontHostedZoneID = "Z2FDTNDATAQYW2"

type Route53Zone struct {
	client       route53iface.Route53API
	hostedZoneID string
	retry        *retrier
}

var _ cloud.DNSZone = (*Route53Zone)(nil)

func NewRoute53Zone(client route53iface.Route53API, hostedZoneID string, retry *retrier) *Route53Zone {
	return &Route53Zone{client: client, hostedZoneID: hostedZoneID, retry: retry}
}

func (g *Route53Zone) UpsertAlias(ctx context.Context, req cloud.AliasRequest) (string, error) {
	err := g.change(ctx, "UPSERT", req)
	if err != nil {
		return "", err
	}
	// Route53 has no record id of its own; the record name doubles as the
	// identifier for later deletes.
	return req.Name, nil
}

func (g *Route53Zone) DeleteAlias(ctx context.Context, req cloud.AliasRequest) error {
	err := g.change(ctx, "DELETE", req)
	if err != nil && isRecordAbsent(err) {
		return nil
	}
	return err
}

func (g *Route53Zone) change(ctx context.Context, action string, req cloud.AliasRequest) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.ChangeResourceRecordSetsWithContext(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(g.hostedZoneID),
			ChangeBatch: &route53.ChangeBatch{
				Changes: []*route53.Change{
					{
						Action: aws.String(action),
						ResourceRecordSet: &route53.ResourceRecordSet{
							Name: aws.String(req.Name),
							Type: aws.String("A"),
							AliasTarget: &route53.AliasTarget{
								DNSName:              aws.String(req.Target),
								HostedZoneId:         aws.String(cloudfrontHostedZoneID),
								EvaluateTargetHealth: aws.Bool(false),
							},
						},
					},
				},
			},
		})
		return errors.Wrap(err, "change resource record sets")
	})
}

// isRecordAbsent detects the InvalidChangeBatch error Route53 returns when a
// DELETE names a record that does not exist.
func isRecordAbsent(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() == "InvalidChangeBatch" &&
		strings.Contains(aerr.Message(), "not found")
}
