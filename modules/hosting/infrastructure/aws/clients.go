package aws

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/acm"
	"github.com/aws/aws-sdk-go/service/cloudfront"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
	"github.com/storekit/platform/pkg/configuration"
)

// Gateways bundles the four cloud capability adapters behind their domain
// interfaces. Credentials come from the default AWS chain (env, shared
// config, instance role).
type Gateways struct {
	ObjectStore cloud.ObjectStore
	CDN         cloud.CDN
	DNSZone     cloud.DNSZone
	Certs       cloud.CertificateAuthority
}

func NewGateways(conf *configuration.Configuration) (*Gateways, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(conf.AWS.Region),
	})
	if err != nil {
		return nil, err
	}

	retry := newRetrier(conf.AWS.CallTimeout, conf.AWS.MaxRetryElapsed)

	return &Gateways{
		ObjectStore: NewS3ObjectStore(s3.New(sess), conf.AWS.Region, retry),
		CDN:         NewCloudfrontCDN(cloudfront.New(sess), retry),
		DNSZone:     NewRoute53Zone(route53.New(sess), conf.AWS.HostedZoneID, retry),
		Certs:       NewACMAuthority(acm.New(sess), retry),
	}, nil
}
