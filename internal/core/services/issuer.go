package services

import (
	"context"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/ports"
)

// SweepResult counts what one pass over the request segment did.
type SweepResult struct {
	Issued   int
	Skipped  int
	Rejected int
}

// Issuer answers leaf certificate requests found in the exchange channel
// with certificates signed by the local CA key.
type Issuer struct {
	settings Settings
	store    ports.CertificateStore
	channel  ports.ExchangeChannel
	metrics  ports.MetricsReporter
	logger   ports.Logger

	mu       sync.Mutex
	rejected map[string]struct{}
}

// NewIssuer returns an issuer signing with the CA stored under
// settings.CANickname. Nil metrics and logger are replaced by no-ops.
func NewIssuer(settings Settings, store ports.CertificateStore, channel ports.ExchangeChannel, metrics ports.MetricsReporter, logger ports.Logger) (*Issuer, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid issuer settings: %w", err)
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Issuer{
		settings: settings,
		store:    store,
		channel:  channel,
		metrics:  metrics,
		logger:   logger.WithGroup("issuer"),
		rejected: make(map[string]struct{}),
	}, nil
}

// Sweep signs every request that has no answer yet. A request that cannot be
// read, parsed or authorized is rejected, logged and counted; errors from the
// local store, listing the request segment or publishing an answer abort the
// sweep.
func (i *Issuer) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	caNick := i.settings.CANickname

	hasKey, err := i.store.HasPrivateKey(ctx, caNick)
	if err != nil {
		return res, err
	}
	if !hasKey {
		return res, errors.Newf(errors.ErrIssueFailed, "store has no private key for %q", caNick)
	}

	names, err := i.channel.List(ctx, domain.SegmentRequests)
	if err != nil {
		return res, err
	}
	for _, name := range names {
		id, ok := domain.RequestID(name)
		if !ok {
			continue
		}
		if i.wasRejected(id) {
			res.Skipped++
			continue
		}
		if _, answered, err := i.channel.Read(ctx, domain.IssuedArtifact(id)); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			i.logger.Warn(ctx, "cannot read answer, retrying next sweep",
				ports.Attr("request", id),
				ports.Attr("error", err.Error()))
			res.Skipped++
			continue
		} else if answered {
			res.Skipped++
			continue
		}

		issued, err := i.issue(ctx, id)
		switch {
		case err == nil && issued:
			res.Issued++
		case err == nil:
			res.Skipped++
		case stderrors.Is(err, errors.ErrIssueFailed):
			i.reject(ctx, id, err)
			res.Rejected++
		default:
			return res, err
		}
	}
	return res, nil
}

func (i *Issuer) issue(ctx context.Context, id string) (bool, error) {
	reqKey := domain.RequestArtifact(id)
	csrPEM, ok, err := i.channel.Read(ctx, reqKey)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, errors.Newf(errors.ErrIssueFailed, "%s: %w", reqKey, err)
	}
	if !ok {
		return false, nil
	}
	csr, err := parseRequest(csrPEM)
	if err != nil {
		return false, errors.Newf(errors.ErrIssueFailed, "%s: %w", reqKey, err)
	}
	if err := i.authorize(csr, id); err != nil {
		return false, errors.Newf(errors.ErrIssueFailed, "%s: %w", reqKey, err)
	}

	certPEM, err := i.store.SignRequest(ctx, i.settings.CANickname, csrPEM, domain.UsageClient, i.settings.CertValidityMonths)
	if err != nil {
		return false, err
	}
	issuedKey := domain.IssuedArtifact(id)
	published, err := i.channel.Publish(ctx, issuedKey, certPEM)
	if err != nil {
		return false, err
	}
	i.metrics.RecordIssued(true)
	i.logger.Info(ctx, "issued leaf certificate",
		ports.Attr("request", reqKey.String()),
		ports.Attr("artifact", issuedKey.String()),
		ports.Attr("subject", csr.Subject.String()))
	return published, nil
}

// authorize accepts only requests for a leaf identity in the configured
// trust domain whose id matches the requesting key.
func (i *Issuer) authorize(csr *x509.CertificateRequest, id string) error {
	if want := requestID(csr); want != id {
		return fmt.Errorf("request id %s does not match its public key (want %s)", id, want)
	}
	td, err := spiffeid.TrustDomainFromString(i.settings.Subject.TrustDomain)
	if err != nil {
		return err
	}
	if len(csr.URIs) != 1 {
		return fmt.Errorf("want exactly one URI SAN, got %d", len(csr.URIs))
	}
	got, err := spiffeid.FromURI(csr.URIs[0])
	if err != nil {
		return fmt.Errorf("URI SAN is not a SPIFFE ID: %w", err)
	}
	if !got.MemberOf(td) {
		return fmt.Errorf("%s is outside trust domain %s", got, td)
	}
	want, err := domain.WorkloadID(td, domain.RoleLeaf, csr.Subject.CommonName)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("SPIFFE ID %s does not match subject, want %s", got, want)
	}
	if len(csr.DNSNames) > 0 || len(csr.IPAddresses) > 0 || len(csr.EmailAddresses) > 0 {
		return fmt.Errorf("leaf requests may not carry DNS, IP or email SANs")
	}
	return nil
}

func (i *Issuer) wasRejected(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.rejected[id]
	return ok
}

func (i *Issuer) reject(ctx context.Context, id string, err error) {
	i.mu.Lock()
	i.rejected[id] = struct{}{}
	i.mu.Unlock()
	i.metrics.RecordIssued(false)
	i.logger.Warn(ctx, "rejected certificate request",
		ports.Attr("request", id),
		ports.Attr("error", err.Error()))
}

// Watch sweeps immediately and then every interval until ctx is done.
func (i *Issuer) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return &errors.ValidationError{Field: "interval", Value: interval, Message: "must be positive"}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := i.Sweep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if res.Issued > 0 || res.Rejected > 0 {
			i.logger.Info(ctx, "sweep complete",
				ports.Attr("issued", res.Issued),
				ports.Attr("rejected", res.Rejected),
				ports.Attr("skipped", res.Skipped))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
