package aws

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/acm"
	"github.com/aws/aws-sdk-go/service/acm/acmiface"
	"github.com/go-faster/errors"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
)

type ACMAuthority struct {
	client acmiface.ACMAPI
	retry  *retrier
}

var _ cloud.CertificateAuthority = (*ACMAuthority)(nil)

func NewACMAuthority(client acmiface.ACMAPI, retry *retrier) *ACMAuthority {
	return &ACMAuthority{client: client, retry: retry}
}

func (g *ACMAuthority) RequestCertificate(ctx context.Context, req cloud.RequestCertificateRequest) (string, error) {
	input := &acm.RequestCertificateInput{
		DomainName:       aws.String(req.DomainName),
		ValidationMethod: aws.String(acm.ValidationMethodDns),
	}
	if len(req.SubjectAlternativeNames) > 0 {
		input.SubjectAlternativeNames = aws.StringSlice(req.SubjectAlternativeNames)
	}

	var out *acm.RequestCertificateOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.RequestCertificateWithContext(ctx, input)
		return errors.Wrap(err, "request certificate")
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.CertificateArn), nil
}

func (g *ACMAuthority) DescribeCertificate(ctx context.Context, arn string) (*cloud.CertificateDetail, error) {
	var out *acm.DescribeCertificateOutput
	err := g.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.client.DescribeCertificateWithContext(ctx, &acm.DescribeCertificateInput{
			CertificateArn: aws.String(arn),
		})
		return errors.Wrap(err, "describe certificate")
	})
	if err != nil {
		return nil, err
	}

	cert := out.Certificate
	detail := &cloud.CertificateDetail{
		ARN:    aws.StringValue(cert.CertificateArn),
		Status: aws.StringValue(cert.Status),
	}
	for _, opt := range cert.DomainValidationOptions {
		record := cloud.CertificateValidationRecord{
			Domain: aws.StringValue(opt.DomainName),
			Status: aws.StringValue(opt.ValidationStatus),
		}
		// The resource record shows up only once ACM has generated the
		// validation CNAME; immediately after a request it may be nil.
		if rr := opt.ResourceRecord; rr != nil {
			record.Name = aws.StringValue(rr.Name)
			record.Type = aws.StringValue(rr.Type)
			record.Value = aws.StringValue(rr.Value)
		}
		detail.ValidationRecords = append(detail.ValidationRecords, record)
	}
	return detail, nil
}

func (g *ACMAuthority) DeleteCertificate(ctx context.Context, arn string) error {
	return g.retry.do(ctx, func(ctx context.Context) error {
		_, err := g.client.DeleteCertificateWithContext(ctx, &acm.DeleteCertificateInput{
			CertificateArn: aws.String(arn),
		})
		return errors.Wrap(err, "delete certificate")
	})
}
