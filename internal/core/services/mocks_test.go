package services

import (
	"context"
	"crypto/x509"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/ports"
	"github.com/sufield/trustboot/internal/poll"
)

// MockStore is a testify mock of ports.CertificateStore.
type MockStore struct {
	mock.Mock
}

var _ ports.CertificateStore = (*MockStore)(nil)

func (m *MockStore) Create(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Exists(ctx context.Context, nickname string) (bool, error) {
	args := m.Called(ctx, nickname)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]domain.Identity, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]domain.Identity)
	return ids, args.Error(1)
}

func (m *MockStore) ImportCertificate(ctx context.Context, nickname string, certPEM []byte, trust domain.TrustFlags) error {
	return m.Called(ctx, nickname, certPEM, trust).Error(0)
}

func (m *MockStore) ImportBundle(ctx context.Context, nickname string, bundle []byte, password string) error {
	return m.Called(ctx, nickname, bundle, password).Error(0)
}

func (m *MockStore) SetTrust(ctx context.Context, nickname string, trust domain.TrustFlags) error {
	return m.Called(ctx, nickname, trust).Error(0)
}

func (m *MockStore) GenerateSelfSigned(ctx context.Context, spec domain.CertSpec) error {
	return m.Called(ctx, spec).Error(0)
}

func (m *MockStore) GenerateSigned(ctx context.Context, spec domain.CertSpec, issuer string) error {
	return m.Called(ctx, spec, issuer).Error(0)
}

func (m *MockStore) GenerateRequest(ctx context.Context, spec domain.CertSpec) ([]byte, error) {
	args := m.Called(ctx, spec)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockStore) ImportIssued(ctx context.Context, nickname string, certPEM []byte, trust domain.TrustFlags) error {
	return m.Called(ctx, nickname, certPEM, trust).Error(0)
}

func (m *MockStore) SignRequest(ctx context.Context, issuer string, csrPEM []byte, usage domain.Usage, validityMonths int) ([]byte, error) {
	args := m.Called(ctx, issuer, csrPEM, usage, validityMonths)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockStore) ExportCertificate(ctx context.Context, nickname string) ([]byte, error) {
	args := m.Called(ctx, nickname)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockStore) ExportBundle(ctx context.Context, nickname string, password string) ([]byte, error) {
	args := m.Called(ctx, nickname, password)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockStore) ListTrust(ctx context.Context, nickname string) (domain.TrustFlags, error) {
	args := m.Called(ctx, nickname)
	return args.Get(0).(domain.TrustFlags), args.Error(1)
}

func (m *MockStore) HasPrivateKey(ctx context.Context, nickname string) (bool, error) {
	args := m.Called(ctx, nickname)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Certificate(ctx context.Context, nickname string) (*x509.Certificate, error) {
	args := m.Called(ctx, nickname)
	c, _ := args.Get(0).(*x509.Certificate)
	return c, args.Error(1)
}

// memChannel is an in-memory exchange channel that records publish order.
type memChannel struct {
	mu        sync.Mutex
	artifacts map[domain.ArtifactKey][]byte
	published []domain.ArtifactKey
	attempts  map[domain.ArtifactKey]int
	readErrs  map[domain.ArtifactKey]error
}

var _ ports.ExchangeChannel = (*memChannel)(nil)

func newMemChannel() *memChannel {
	return &memChannel{
		artifacts: make(map[domain.ArtifactKey][]byte),
		attempts:  make(map[domain.ArtifactKey]int),
		readErrs:  make(map[domain.ArtifactKey]error),
	}
}

// failRead makes every Read of key return err.
func (c *memChannel) failRead(key domain.ArtifactKey, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErrs[key] = err
}

func (c *memChannel) put(key domain.ArtifactKey, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts[key] = payload
}

func (c *memChannel) Publish(_ context.Context, key domain.ArtifactKey, payload []byte) (bool, error) {
	if len(payload) == 0 {
		return false, errors.Newf(errors.ErrExportFailed, "refusing to publish empty %s", key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.artifacts[key]) > 0 {
		return false, nil
	}
	c.artifacts[key] = payload
	c.published = append(c.published, key)
	return true, nil
}

func (c *memChannel) Read(_ context.Context, key domain.ArtifactKey) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	if err := c.readErrs[key]; err != nil {
		return nil, false, err
	}
	b := c.artifacts[key]
	return b, len(b) > 0, nil
}

func (c *memChannel) Poll(ctx context.Context, key domain.ArtifactKey, timeout, interval time.Duration) ([]byte, error) {
	res, err := poll.Until(ctx, poll.For(timeout, interval), func(ctx context.Context) ([]byte, bool, error) {
		return c.Read(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if !res.Ready {
		return nil, errors.Newf(errors.ErrArtifactNotReady, "%s after %d attempts", key, res.Attempts)
	}
	return res.Value, nil
}

func (c *memChannel) List(_ context.Context, segment domain.Segment) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for k, v := range c.artifacts {
		if k.Segment == segment && len(v) > 0 {
			names = append(names, k.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *memChannel) attemptsFor(key domain.ArtifactKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[key]
}

// recordingMetrics captures step and outcome reports.
type recordingMetrics struct {
	ports.NopMetrics
	mu       sync.Mutex
	steps    []string
	outcomes []bool
	issued   []bool
}

func (m *recordingMetrics) ObserveStep(_, step string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step)
}

func (m *recordingMetrics) RecordBootstrap(_ string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, ok)
}

func (m *recordingMetrics) RecordIssued(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued = append(m.issued, ok)
}
