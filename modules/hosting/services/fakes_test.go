package services_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/infrastructure/persistence"
	"github.com/storekit/platform/pkg/constants"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return context.WithValue(context.Background(), constants.LoggerKey, logrus.NewEntry(logger))
}

// memoryRepo is an in-memory organization.Repository for service tests.
type memoryRepo struct {
	mu      sync.Mutex
	orgs    map[uuid.UUID]*organization.Organization
	history map[uuid.UUID][]infraSnapshot
}

// infraSnapshot freezes the resource identifier fields at one Update call.
type infraSnapshot struct {
	bucket     *string
	distID     *string
	distDomain *string
	dnsRecord  *string
}

func cloneField(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func snapshotInfra(org *organization.Organization) infraSnapshot {
	return infraSnapshot{
		bucket:     cloneField(org.S3BucketName()),
		distID:     cloneField(org.CloudfrontDistributionID()),
		distDomain: cloneField(org.CloudfrontDomainName()),
		dnsRecord:  cloneField(org.Route53RecordID()),
	}
}

func newMemoryRepo(orgs ...*organization.Organization) *memoryRepo {
	r := &memoryRepo{
		orgs:    map[uuid.UUID]*organization.Organization{},
		history: map[uuid.UUID][]infraSnapshot{},
	}
	for _, org := range orgs {
		r.orgs[org.ID()] = org
	}
	return r
}

// infraWrites counts how many Update calls changed the given field.
func (r *memoryRepo) infraWrites(id uuid.UUID, field func(infraSnapshot) *string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	writes := 0
	var prev *string
	for _, snap := range r.history[id] {
		cur := field(snap)
		switch {
		case prev == nil && cur != nil,
			prev != nil && cur == nil,
			prev != nil && cur != nil && *prev != *cur:
			writes++
		}
		prev = cur
	}
	return writes
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok {
		return nil, persistence.ErrOrganizationNotFound
	}
	return org, nil
}

func (r *memoryRepo) GetBySlug(_ context.Context, slug string) (*organization.Organization, error) {
	return r.findBy(func(org *organization.Organization) bool {
		return org.Slug() == slug
	})
}

func (r *memoryRepo) GetBySubdomain(_ context.Context, subdomain string) (*organization.Organization, error) {
	return r.findBy(func(org *organization.Organization) bool {
		return org.Subdomain() != nil && *org.Subdomain() == subdomain
	})
}

func (r *memoryRepo) GetByCustomDomain(_ context.Context, domain string) (*organization.Organization, error) {
	return r.findBy(func(org *organization.Organization) bool {
		return org.CustomDomain() != nil && *org.CustomDomain() == domain
	})
}

func (r *memoryRepo) findBy(match func(*organization.Organization) bool) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.orgs {
		if match(org) {
			return org, nil
		}
	}
	return nil, persistence.ErrOrganizationNotFound
}

func (r *memoryRepo) Create(_ context.Context, org *organization.Organization) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[org.ID()] = org
	return org, nil
}

func (r *memoryRepo) Update(_ context.Context, org *organization.Organization) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orgs[org.ID()]; !ok {
		return nil, persistence.ErrOrganizationNotFound
	}
	r.orgs[org.ID()] = org
	r.history[org.ID()] = append(r.history[org.ID()], snapshotInfra(org))
	return org, nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orgs, id)
	return nil
}

func (r *memoryRepo) List(_ context.Context) ([]*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*organization.Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (r *memoryRepo) SubdomainExists(_ context.Context, subdomain string) (bool, error) {
	_, err := r.GetBySubdomain(context.Background(), subdomain)
	return err == nil, nil
}

func (r *memoryRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	_, err := r.GetBySlug(context.Background(), slug)
	return err == nil, nil
}

type memoryMemberships struct {
	roles map[string]string
}

func newMemoryMemberships() *memoryMemberships {
	return &memoryMemberships{roles: map[string]string{}}
}

func (m *memoryMemberships) add(userID, orgID uuid.UUID, role string) {
	m.roles[userID.String()+"/"+orgID.String()] = role
}

func (m *memoryMemberships) RoleInOrganization(_ context.Context, userID, orgID uuid.UUID) (string, error) {
	role, ok := m.roles[userID.String()+"/"+orgID.String()]
	if !ok {
		return "", persistence.ErrMembershipNotFound
	}
	return role, nil
}

// fakeObjectStore tracks buckets and their objects in memory.
type fakeObjectStore struct {
	mu            sync.Mutex
	objects       map[string]map[string]struct{}
	policies      map[string]string
	publicBlocked map[string]bool

	createBucketErr error
	deleteBucketErr error
	// createBucketStarted/createBucketRelease make overlap tests deterministic.
	createBucketStarted chan struct{}
	createBucketRelease chan struct{}
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:       map[string]map[string]struct{}{},
		policies:      map[string]string{},
		publicBlocked: map[string]bool{},
	}
}

func (s *fakeObjectStore) seed(bucket string, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects[bucket] == nil {
		s.objects[bucket] = map[string]struct{}{}
	}
	for _, key := range keys {
		s.objects[bucket][key] = struct{}{}
	}
}

func (s *fakeObjectStore) CreateBucket(_ context.Context, req cloud.CreateBucketRequest) error {
	if s.createBucketStarted != nil {
		close(s.createBucketStarted)
		s.createBucketStarted = nil
		<-s.createBucketRelease
	}
	if s.createBucketErr != nil {
		return s.createBucketErr
	}
	s.seed(req.Bucket)
	return nil
}

func (s *fakeObjectStore) BlockPublicAccess(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicBlocked[bucket] = true
	return nil
}

func (s *fakeObjectStore) SetBucketPolicy(_ context.Context, req cloud.SetBucketPolicyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[req.Bucket] = req.Policy
	return nil
}

func (s *fakeObjectStore) PutObject(_ context.Context, req cloud.PutObjectRequest) error {
	s.seed(req.Bucket, req.Key)
	return nil
}

func (s *fakeObjectStore) CopyObject(_ context.Context, req cloud.CopyObjectRequest) error {
	s.seed(req.DestBucket, req.DestKey)
	return nil
}

func (s *fakeObjectStore) ListObjects(_ context.Context, req cloud.ListObjectsRequest) (*cloud.ListObjectsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0)
	for key := range s.objects[req.Bucket] {
		if strings.HasPrefix(key, req.Prefix) {
			keys = append(keys, key)
		}
	}
	return &cloud.ListObjectsResult{Keys: keys}, nil
}

func (s *fakeObjectStore) DeleteObjects(_ context.Context, bucket string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.objects[bucket], key)
	}
	return nil
}

func (s *fakeObjectStore) DeleteBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteBucketErr != nil {
		return s.deleteBucketErr
	}
	delete(s.objects, bucket)
	return nil
}

func (s *fakeObjectStore) PresignUpload(_ context.Context, req cloud.PresignUploadRequest) (string, error) {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s?signed", req.Bucket, req.Key), nil
}

func (s *fakeObjectStore) hasBucket(bucket string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket]
	return ok
}

func (s *fakeObjectStore) keys(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for key := range s.objects[bucket] {
		out = append(out, key)
	}
	return out
}

// fakeCDN models one distribution at a time, which is all these tests need.
type fakeCDN struct {
	mu sync.Mutex

	nextID        int
	distributions map[string]*cloud.Distribution
	lastCreate    cloud.CreateDistributionRequest
	lastUpdate    cloud.UpdateDistributionRequest
	updateCalls   int

	createDistributionErr error
}

func newFakeCDN() *fakeCDN {
	return &fakeCDN{distributions: map[string]*cloud.Distribution{}}
}

func (c *fakeCDN) CreateOriginAccessControl(_ context.Context, req cloud.CreateOACRequest) (string, error) {
	return "oac-" + req.Name, nil
}

func (c *fakeCDN) CreateDistribution(_ context.Context, req cloud.CreateDistributionRequest) (*cloud.Distribution, error) {
	if c.createDistributionErr != nil {
		return nil, c.createDistributionErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := fmt.Sprintf("E%d", c.nextID)
	dist := &cloud.Distribution{
		ID:             id,
		ARN:            fmt.Sprintf("arn:aws:cloudfront::123456789012:distribution/%s", id),
		DomainName:     fmt.Sprintf("d%d.cloudfront.net", c.nextID),
		Aliases:        req.Aliases,
		Enabled:        true,
		CertificateARN: req.CertificateARN,
		Status:         "Deployed",
	}
	c.distributions[id] = dist
	c.lastCreate = req
	return dist, nil
}

func (c *fakeCDN) GetDistribution(_ context.Context, id string) (*cloud.Distribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dist, ok := c.distributions[id]
	if !ok {
		return nil, notFoundErr("NoSuchDistribution")
	}
	return dist, nil
}

func (c *fakeCDN) UpdateDistribution(_ context.Context, req cloud.UpdateDistributionRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dist, ok := c.distributions[req.ID]
	if !ok {
		return notFoundErr("NoSuchDistribution")
	}
	dist.Aliases = req.Aliases
	dist.CertificateARN = req.CertificateARN
	c.lastUpdate = req
	c.updateCalls++
	return nil
}

func (c *fakeCDN) DisableDistribution(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dist, ok := c.distributions[id]
	if !ok {
		return notFoundErr("NoSuchDistribution")
	}
	dist.Enabled = false
	return nil
}

func (c *fakeCDN) DeleteDistribution(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dist, ok := c.distributions[id]
	if !ok {
		return notFoundErr("NoSuchDistribution")
	}
	if dist.Enabled {
		return fmt.Errorf("distribution %s is still enabled", id)
	}
	delete(c.distributions, id)
	return nil
}

func (c *fakeCDN) CreateInvalidation(_ context.Context, _ string, _ []string) error {
	return nil
}

type fakeDNS struct {
	mu      sync.Mutex
	records map[string]string
	deleted []string

	// deleteErr fails the next DeleteAlias call, then clears itself.
	deleteErr error
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{records: map[string]string{}}
}

func (d *fakeDNS) UpsertAlias(_ context.Context, req cloud.AliasRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[req.Name] = req.Target
	return req.Name, nil
}

func (d *fakeDNS) DeleteAlias(_ context.Context, req cloud.AliasRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deleteErr != nil {
		err := d.deleteErr
		d.deleteErr = nil
		return err
	}
	delete(d.records, req.Name)
	d.deleted = append(d.deleted, req.Name)
	return nil
}

type fakeCerts struct {
	mu sync.Mutex

	nextID      int
	status      string
	records     []cloud.CertificateValidationRecord
	lastRequest cloud.RequestCertificateRequest
	deleted     []string
	deleteErr   error
}

func newFakeCerts() *fakeCerts {
	return &fakeCerts{status: cloud.CertStatusPendingValidation}
}

func (f *fakeCerts) RequestCertificate(_ context.Context, req cloud.RequestCertificateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.lastRequest = req
	if f.records == nil {
		f.records = []cloud.CertificateValidationRecord{
			{
				Domain: req.DomainName,
				Name:   "_abc." + req.DomainName,
				Type:   "CNAME",
				Value:  "_abc.acm-validations.aws.",
				Status: cloud.CertStatusPendingValidation,
			},
		}
	}
	return fmt.Sprintf("arn:aws:acm:us-east-1:123456789012:certificate/cert-%d", f.nextID), nil
}

func (f *fakeCerts) DescribeCertificate(_ context.Context, arn string) (*cloud.CertificateDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &cloud.CertificateDetail{
		ARN:               arn,
		Status:            f.status,
		ValidationRecords: f.records,
	}, nil
}

func (f *fakeCerts) DeleteCertificate(_ context.Context, arn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, arn)
	return nil
}

type notFoundErr string

func (e notFoundErr) Error() string { return string(e) }

// Code and Message satisfy awserr.Error's shape through the adapter's
// classification helper.
func (e notFoundErr) Code() string    { return string(e) }
func (e notFoundErr) Message() string { return string(e) }
func (e notFoundErr) OrigErr() error  { return nil }
