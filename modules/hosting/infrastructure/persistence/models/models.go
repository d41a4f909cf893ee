package models

import (
	"database/sql"
	"time"
)

type Organization struct {
	ID                       string
	Name                     string
	Slug                     string
	Subdomain                sql.NullString
	CustomDomain             sql.NullString
	DomainVerified           bool
	S3BucketName             sql.NullString
	CloudfrontDistributionID sql.NullString
	CloudfrontDomainName     sql.NullString
	Route53RecordID          sql.NullString
	CertificateARN           sql.NullString
	ValidationRecords        []byte
	InfrastructureStatus     string
	Settings                 []byte
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
