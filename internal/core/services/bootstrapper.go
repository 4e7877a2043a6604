package services

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/ports"
)

// Bootstrap step names, as recorded in metrics and error messages.
const (
	StepEnsureStore             = "ensure_store"
	StepEnsureAuthorityMaterial = "ensure_authority_material"
	StepEnsureOwnCertificate    = "ensure_own_certificate"
	StepExport                  = "export_if_authority"
	StepValidate                = "validate"
)

// Bootstrapper drives one role's store from Uninitialized to Validated.
// Every step checks for its own result first, so any step, or the whole run,
// may be repeated after a crash.
type Bootstrapper struct {
	settings    Settings
	store       ports.CertificateStore
	channel     ports.ExchangeChannel
	coordinator *Coordinator
	metrics     ports.MetricsReporter
	logger      ports.Logger
	password    func() (string, error)

	mu    sync.Mutex
	state domain.BootstrapState
}

// BootstrapperOption configures a Bootstrapper.
type BootstrapperOption func(*Bootstrapper)

// WithMetrics reports step durations and outcomes to m.
func WithMetrics(m ports.MetricsReporter) BootstrapperOption {
	return func(b *Bootstrapper) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) BootstrapperOption {
	return func(b *Bootstrapper) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPasswordSource replaces the generator of the one-time bundle password.
func WithPasswordSource(fn func() (string, error)) BootstrapperOption {
	return func(b *Bootstrapper) {
		if fn != nil {
			b.password = fn
		}
	}
}

// NewBootstrapper validates settings and returns a bootstrapper for
// settings.Role operating on store and channel.
func NewBootstrapper(settings Settings, store ports.CertificateStore, channel ports.ExchangeChannel, opts ...BootstrapperOption) (*Bootstrapper, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bootstrap settings: %w", err)
	}
	if store == nil {
		return nil, &errors.ValidationError{Field: "store", Value: nil, Message: "certificate store cannot be nil"}
	}
	if channel == nil {
		return nil, &errors.ValidationError{Field: "channel", Value: nil, Message: "exchange channel cannot be nil"}
	}

	b := &Bootstrapper{
		settings: settings,
		store:    store,
		channel:  channel,
		metrics:  ports.NopMetrics{},
		logger:   ports.NopLogger{},
		password: randomPassword,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithAttrs(ports.Attr("role", settings.Role.String()))
	b.coordinator = NewCoordinator(channel, settings, b.logger)
	return b, nil
}

// Coordinator returns the coordinator the bootstrapper validates with.
func (b *Bootstrapper) Coordinator() *Coordinator {
	return b.coordinator
}

// State returns the furthest state reached in this process.
func (b *Bootstrapper) State() domain.BootstrapState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bootstrapper) advance(ctx context.Context, to domain.BootstrapState) {
	b.mu.Lock()
	from := b.state
	if to > b.state {
		b.state = to
	}
	b.mu.Unlock()
	if to > from {
		b.logger.Debug(ctx, "state transition",
			ports.Attr("from", from.String()),
			ports.Attr("to", to.String()))
	}
}

// EnsureStore creates the role's store if it does not exist yet.
func (b *Bootstrapper) EnsureStore(ctx context.Context) error {
	created, err := b.store.Create(ctx)
	if err != nil {
		return err
	}
	if created {
		b.logger.Info(ctx, "certificate store created")
	} else {
		b.logger.Debug(ctx, "certificate store already exists")
	}
	b.advance(ctx, domain.StateStoreCreated)
	return nil
}

// EnsureAuthorityMaterial puts the CA identity into the store: generated by
// the authority, imported with its key by the inheritor, imported as a bare
// certificate by the leaf.
func (b *Bootstrapper) EnsureAuthorityMaterial(ctx context.Context) error {
	nick := b.settings.CANickname
	policy := b.coordinator.Policy(b.settings.Role)

	exists, err := b.store.Exists(ctx, nick)
	if err != nil {
		return err
	}

	switch {
	case exists && b.settings.Role == domain.RoleInheritor:
		// A crash between import and trust assertion leaves the bundle
		// without flags; re-asserting is a no-op otherwise.
		if err := b.store.SetTrust(ctx, nick, policy.CATrust); err != nil {
			return err
		}
		b.logger.Debug(ctx, "CA already present", ports.Attr("nickname", nick))
	case exists:
		b.logger.Debug(ctx, "CA already present", ports.Attr("nickname", nick))
	default:
		if err := b.acquireCA(ctx, nick, policy); err != nil {
			return err
		}
	}

	b.advance(ctx, domain.StateAuthorityMaterialPresent)
	return nil
}

func (b *Bootstrapper) acquireCA(ctx context.Context, nick string, policy Policy) error {
	switch b.settings.Role {
	case domain.RoleAuthority:
		spec, err := b.settings.CASpec()
		if err != nil {
			return errors.NewDomainError(errors.ErrGenerationFailed, err)
		}
		if err := b.store.GenerateSelfSigned(ctx, spec); err != nil {
			return err
		}
		b.logger.Info(ctx, "generated CA",
			ports.Attr("nickname", nick),
			ports.Attr("subject", spec.Subject.String()),
			ports.Attr("key_bits", spec.KeyBits),
			ports.Attr("validity_months", spec.ValidityMonths))
		return nil

	case domain.RoleInheritor:
		material, err := b.coordinator.Precondition(ctx, b.settings.Role)
		if err != nil {
			return err
		}
		bundle := material[domain.ArtifactCABundle]
		password := string(bytes.TrimSpace(material[domain.ArtifactCABundlePassword]))
		if err := b.store.ImportBundle(ctx, nick, bundle, password); err != nil {
			return err
		}
		if err := b.store.SetTrust(ctx, nick, policy.CATrust); err != nil {
			return err
		}
		b.logger.Info(ctx, "imported CA bundle",
			ports.Attr("nickname", nick),
			ports.Attr("artifact", domain.ArtifactCABundle.String()))
		return nil

	case domain.RoleLeaf:
		material, err := b.coordinator.Precondition(ctx, b.settings.Role)
		if err != nil {
			return err
		}
		if err := b.store.ImportCertificate(ctx, nick, material[domain.ArtifactCACert], policy.CATrust); err != nil {
			return err
		}
		b.logger.Info(ctx, "imported CA certificate",
			ports.Attr("nickname", nick),
			ports.Attr("artifact", domain.ArtifactCACert.String()))
		return nil
	}
	return fmt.Errorf("unknown role %q", b.settings.Role)
}

// EnsureOwnCertificate generates the role's own key and CA-signed
// certificate. Roles holding the CA key sign locally; the leaf hands a
// request to the issuer through the channel and waits for the answer.
func (b *Bootstrapper) EnsureOwnCertificate(ctx context.Context) error {
	nick := b.settings.OwnNickname
	exists, err := b.store.Exists(ctx, nick)
	if err != nil {
		return err
	}
	if exists {
		b.logger.Debug(ctx, "own certificate already present", ports.Attr("nickname", nick))
		b.advance(ctx, domain.StateOwnCertificateIssued)
		return nil
	}

	spec, err := b.settings.OwnSpec()
	if err != nil {
		return errors.NewDomainError(errors.ErrGenerationFailed, err)
	}

	if b.coordinator.Policy(b.settings.Role).CAKey {
		if err := b.store.GenerateSigned(ctx, spec, b.settings.CANickname); err != nil {
			return err
		}
	} else if err := b.requestCertificate(ctx, spec); err != nil {
		return err
	}

	b.logger.Info(ctx, "issued own certificate",
		ports.Attr("nickname", nick),
		ports.Attr("subject", spec.Subject.String()),
		ports.Attr("usage", spec.Usage.String()))
	b.advance(ctx, domain.StateOwnCertificateIssued)
	return nil
}

func (b *Bootstrapper) requestCertificate(ctx context.Context, spec domain.CertSpec) error {
	csrPEM, err := b.store.GenerateRequest(ctx, spec)
	if err != nil {
		return err
	}
	csr, err := parseRequest(csrPEM)
	if err != nil {
		return errors.NewDomainError(errors.ErrGenerationFailed, err)
	}
	id := requestID(csr)
	reqKey, issuedKey := domain.RequestArtifact(id), domain.IssuedArtifact(id)

	published, err := b.channel.Publish(ctx, reqKey, csrPEM)
	if err != nil {
		return err
	}
	if published {
		b.logger.Info(ctx, "published certificate request",
			ports.Attr("artifact", reqKey.String()),
			ports.Attr("subject", spec.Subject.String()))
	}

	certPEM, err := b.channel.Poll(ctx, issuedKey, b.settings.IssueTimeout, b.settings.PollInterval)
	if err != nil {
		return fmt.Errorf("await issued certificate: %w", err)
	}
	if err := b.checkIssued(ctx, certPEM); err != nil {
		return errors.Newf(errors.ErrImportFailed, "%s: %w", issuedKey, err)
	}
	return b.store.ImportIssued(ctx, spec.Nickname, certPEM, spec.Trust)
}

// checkIssued rejects an answer that does not chain to the CA already in the
// store, before it can occupy the own nickname.
func (b *Bootstrapper) checkIssued(ctx context.Context, certPEM []byte) error {
	cert, err := parseCertificate(certPEM)
	if err != nil {
		return err
	}
	ca, err := b.store.Certificate(ctx, b.settings.CANickname)
	if err != nil {
		return err
	}
	roots := x509.NewCertPool()
	roots.AddCert(ca)
	if _, err := cert.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}); err != nil {
		return fmt.Errorf("issued certificate does not chain to %q: %w", b.settings.CANickname, err)
	}
	return nil
}

// ExportIfAuthority publishes the public CA certificate and the CA bundle.
// Other roles skip it. The password is published before the bundle, so a
// visible bundle implies a visible password, and a published password is
// reused after a restart.
func (b *Bootstrapper) ExportIfAuthority(ctx context.Context) error {
	if b.settings.Role != domain.RoleAuthority {
		return nil
	}
	if b.State() < domain.StateOwnCertificateIssued {
		exists, err := b.store.Exists(ctx, b.settings.OwnNickname)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Newf(errors.ErrExportFailed, "own certificate %q must exist before export", b.settings.OwnNickname)
		}
	}

	nick := b.settings.CANickname
	caPEM, err := b.store.ExportCertificate(ctx, nick)
	if err != nil {
		return err
	}
	if err := b.publish(ctx, domain.ArtifactCACert, caPEM); err != nil {
		return err
	}

	if _, ok, err := b.channel.Read(ctx, domain.ArtifactCABundle); err != nil {
		return err
	} else if ok {
		b.logger.Debug(ctx, "CA bundle already published")
		return nil
	}

	password, err := b.bundlePassword(ctx)
	if err != nil {
		return err
	}
	bundle, err := b.store.ExportBundle(ctx, nick, password)
	if err != nil {
		return err
	}
	return b.publish(ctx, domain.ArtifactCABundle, bundle)
}

// bundlePassword returns the published password, publishing a fresh one
// first if there is none.
func (b *Bootstrapper) bundlePassword(ctx context.Context) (string, error) {
	existing, ok, err := b.channel.Read(ctx, domain.ArtifactCABundlePassword)
	if err != nil {
		return "", err
	}
	if ok {
		return string(bytes.TrimSpace(existing)), nil
	}

	password, err := b.password()
	if err != nil {
		return "", errors.NewDomainError(errors.ErrGenerationFailed, err)
	}
	published, err := b.channel.Publish(ctx, domain.ArtifactCABundlePassword, []byte(password))
	if err != nil {
		return "", err
	}
	if published {
		b.logger.Info(ctx, "published artifact", ports.Attr("artifact", domain.ArtifactCABundlePassword.String()))
		return password, nil
	}

	// Lost a race with another writer; theirs is authoritative.
	existing, ok, err = b.channel.Read(ctx, domain.ArtifactCABundlePassword)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Newf(errors.ErrExportFailed, "%s vanished after publish", domain.ArtifactCABundlePassword)
	}
	return string(bytes.TrimSpace(existing)), nil
}

func (b *Bootstrapper) publish(ctx context.Context, key domain.ArtifactKey, payload []byte) error {
	published, err := b.channel.Publish(ctx, key, payload)
	if err != nil {
		return err
	}
	if published {
		b.logger.Info(ctx, "published artifact", ports.Attr("artifact", key.String()))
	} else {
		b.logger.Debug(ctx, "artifact already published", ports.Attr("artifact", key.String()))
	}
	return nil
}

// Validate checks the store against the policy table.
func (b *Bootstrapper) Validate(ctx context.Context) (*domain.ValidationReport, error) {
	report, err := b.coordinator.Validate(ctx, b.store, b.settings.Role)
	if err != nil {
		return report, err
	}
	b.advance(ctx, domain.StateValidated)
	return report, nil
}

// Run executes every step in order and returns the final report. Errors are
// wrapped with the name of the failing step.
func (b *Bootstrapper) Run(ctx context.Context) (report *domain.ValidationReport, err error) {
	role := b.settings.Role.String()
	start := time.Now()
	b.logger.Info(ctx, "bootstrap starting")
	defer func() {
		b.metrics.RecordBootstrap(role, err == nil)
		if err != nil {
			b.logger.Error(ctx, "bootstrap failed",
				ports.Attr("state", b.State().String()),
				ports.Attr("error", err.Error()))
			return
		}
		b.logger.Info(ctx, "bootstrap complete",
			ports.Attr("state", b.State().String()),
			ports.Attr("duration", time.Since(start).String()))
	}()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepEnsureStore, b.EnsureStore},
		{StepEnsureAuthorityMaterial, b.EnsureAuthorityMaterial},
		{StepEnsureOwnCertificate, b.EnsureOwnCertificate},
		{StepExport, b.ExportIfAuthority},
	}
	for _, step := range steps {
		if err := b.timed(ctx, step.name, step.fn); err != nil {
			return nil, err
		}
	}

	err = b.timed(ctx, StepValidate, func(ctx context.Context) error {
		var verr error
		report, verr = b.Validate(ctx)
		return verr
	})
	return report, err
}

func (b *Bootstrapper) timed(ctx context.Context, step string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	b.metrics.ObserveStep(b.settings.Role.String(), step, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}
