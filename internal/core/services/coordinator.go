package services

import (
	"context"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/ports"
)

// Policy is one row of the trust policy table: what a role's store must look
// like once bootstrapped.
type Policy struct {
	Role domain.Role
	// CATrust is asserted on the CA copy in every role's store.
	CATrust domain.TrustFlags
	// CAKey reports whether the role's store holds the CA private key.
	CAKey bool
	// OwnTrust is asserted on the role's own certificate.
	OwnTrust domain.TrustFlags
}

// PolicyFor returns the policy row for role. The CA is issuance-trusted
// everywhere; own certificates are end-entity only and always carry a
// locally generated key.
func PolicyFor(role domain.Role) Policy {
	return Policy{
		Role:     role,
		CATrust:  domain.TrustIssuer,
		CAKey:    role.HoldsCAKey(),
		OwnTrust: domain.TrustEndEntity,
	}
}

// Upstream names the artifacts a role must see before it can start.
type Upstream struct {
	Name      string
	Artifacts []domain.ArtifactKey
	Timeout   time.Duration
}

// None reports whether the role has no upstream dependency.
func (u Upstream) None() bool {
	return len(u.Artifacts) == 0
}

// Material holds upstream artifacts by key.
type Material map[domain.ArtifactKey][]byte

// Coordinator encodes the ordering between roles and validates stores
// against the policy table.
type Coordinator struct {
	channel  ports.ExchangeChannel
	settings Settings
	logger   ports.Logger
}

// NewCoordinator creates a coordinator reading upstream artifacts from channel.
func NewCoordinator(channel ports.ExchangeChannel, settings Settings, logger ports.Logger) *Coordinator {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Coordinator{
		channel:  channel,
		settings: settings,
		logger:   logger,
	}
}

// Policy returns the policy row for role.
func (c *Coordinator) Policy(role domain.Role) Policy {
	return PolicyFor(role)
}

// Upstream returns what role depends on. The authority depends on nothing;
// the inheritor on the CA bundle and its password; the leaf on the public
// CA certificate. Artifacts are listed in the order they are awaited.
func (c *Coordinator) Upstream(role domain.Role) Upstream {
	switch role {
	case domain.RoleInheritor:
		return Upstream{
			Name:      "ca-bundle",
			Artifacts: []domain.ArtifactKey{domain.ArtifactCABundle, domain.ArtifactCABundlePassword},
			Timeout:   c.settings.BundleTimeout,
		}
	case domain.RoleLeaf:
		return Upstream{
			Name:      "ca-cert",
			Artifacts: []domain.ArtifactKey{domain.ArtifactCACert},
			Timeout:   c.settings.CertTimeout,
		}
	}
	return Upstream{Name: "none"}
}

// Precondition waits until every upstream artifact of role is visible and
// returns them. A timeout fails with errors.ErrArtifactNotReady.
func (c *Coordinator) Precondition(ctx context.Context, role domain.Role) (Material, error) {
	up := c.Upstream(role)
	material := make(Material, len(up.Artifacts))
	if up.None() {
		return material, nil
	}

	c.logger.Info(ctx, "waiting for upstream artifacts",
		ports.Attr("role", role.String()),
		ports.Attr("upstream", up.Name),
		ports.Attr("timeout", up.Timeout.String()),
		ports.Attr("interval", c.settings.PollInterval.String()))

	for _, key := range up.Artifacts {
		payload, err := c.channel.Poll(ctx, key, up.Timeout, c.settings.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("await %s: %w", up.Name, err)
		}
		material[key] = payload
	}
	return material, nil
}

// Validate checks a role's store against the policy table and returns a
// report listing every check. When any check fails the error wraps
// errors.ErrValidationMismatch and names the first failure.
func (c *Coordinator) Validate(ctx context.Context, store ports.CertificateStore, role domain.Role) (*domain.ValidationReport, error) {
	policy := c.Policy(role)
	caNick, ownNick := c.settings.CANickname, c.settings.OwnNickname
	report := &domain.ValidationReport{Role: role}

	ids, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	byNick := make(map[string]domain.Identity, len(ids))
	for _, id := range ids {
		byNick[id.Nickname] = id
	}
	checkNicknames(report, byNick, caNick, ownNick)

	ca, caOK := byNick[caNick]
	own, ownOK := byNick[ownNick]

	if caOK {
		report.Add("ca-trust", ca.Trust.Has(policy.CATrust) && !ca.Trust.Has(domain.TrustEndEntity),
			"%q trust is %s, want %s", caNick, ca.Trust, policy.CATrust)
		hasKey, err := store.HasPrivateKey(ctx, caNick)
		if err != nil {
			return nil, fmt.Errorf("check key of %q: %w", caNick, err)
		}
		report.Add("ca-key", hasKey == policy.CAKey,
			"%q private key present=%t, want %t", caNick, hasKey, policy.CAKey)
	} else {
		report.Add("ca-present", false, "no identity under %q", caNick)
	}

	if !ownOK {
		report.Add("own-present", false, "no identity under %q", ownNick)
		return c.finish(ctx, report)
	}

	report.Add("own-trust", own.Trust.Has(policy.OwnTrust) && !own.Trust.Has(domain.TrustIssuer),
		"%q trust is %s, want %s", ownNick, own.Trust, policy.OwnTrust)
	hasKey, err := store.HasPrivateKey(ctx, ownNick)
	if err != nil {
		return nil, fmt.Errorf("check key of %q: %w", ownNick, err)
	}
	report.Add("own-key", hasKey, "%q private key present=%t, want true", ownNick, hasKey)
	report.Add("own-issuer", own.Issuer == caNick && !own.SelfSigned,
		"%q issuer is %q, want %q", ownNick, own.Issuer, caNick)

	if caOK {
		if err := c.checkChain(ctx, report, store); err != nil {
			return nil, err
		}
	}
	return c.finish(ctx, report)
}

func checkNicknames(report *domain.ValidationReport, byNick map[string]domain.Identity, caNick, ownNick string) {
	var unexpected []string
	for nick := range byNick {
		if nick != caNick && nick != ownNick {
			unexpected = append(unexpected, nick)
		}
	}
	sort.Strings(unexpected)
	if len(unexpected) > 0 {
		report.Add("nicknames", false, "unexpected identities %s, want exactly %q and %q",
			strings.Join(unexpected, ","), caNick, ownNick)
		return
	}
	_, caOK := byNick[caNick]
	_, ownOK := byNick[ownNick]
	report.Add("nicknames", caOK && ownOK, "want exactly %q and %q", caNick, ownNick)
}

// checkChain verifies the own certificate against the CA certificate and
// that it names the expected SPIFFE ID.
func (c *Coordinator) checkChain(ctx context.Context, report *domain.ValidationReport, store ports.CertificateStore) error {
	caNick, ownNick := c.settings.CANickname, c.settings.OwnNickname
	caCert, err := store.Certificate(ctx, caNick)
	if err != nil {
		return fmt.Errorf("load %q: %w", caNick, err)
	}
	ownCert, err := store.Certificate(ctx, ownNick)
	if err != nil {
		return fmt.Errorf("load %q: %w", ownNick, err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	_, verr := ownCert.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	if verr != nil {
		report.Add("own-chain", false, "%q does not chain to %q: %v", ownNick, caNick, verr)
	} else {
		report.Add("own-chain", true, "%q chains to %q (%s)", ownNick, caNick, caCert.Subject.CommonName)
	}

	want, err := c.expectedID()
	if err != nil {
		report.Add("own-spiffe-id", false, "%v", err)
		return nil
	}
	got := certSPIFFEIDs(ownCert)
	found := false
	for _, id := range got {
		if id == want {
			found = true
			break
		}
	}
	report.Add("own-spiffe-id", found, "%q carries %v, want %s", ownNick, got, want)
	return nil
}

func (c *Coordinator) expectedID() (spiffeid.ID, error) {
	subject, err := domain.OwnSubject(c.settings.Role, c.settings.Subject)
	if err != nil {
		return spiffeid.ID{}, err
	}
	for _, u := range subject.URIs {
		if id, err := spiffeid.FromURI(u); err == nil {
			return id, nil
		}
	}
	return spiffeid.ID{}, stderrors.New("own subject has no SPIFFE ID")
}

func certSPIFFEIDs(cert *x509.Certificate) []spiffeid.ID {
	var ids []spiffeid.ID
	for _, u := range cert.URIs {
		if id, err := spiffeid.FromURI(u); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Coordinator) finish(ctx context.Context, report *domain.ValidationReport) (*domain.ValidationReport, error) {
	failures := report.Failures()
	if len(failures) == 0 {
		c.logger.Debug(ctx, "store validated",
			ports.Attr("role", report.Role.String()),
			ports.Attr("checks", len(report.Checks)))
		return report, nil
	}
	first := failures[0]
	return report, errors.Newf(errors.ErrValidationMismatch, "%s: %s", first.Name, first.Detail)
}
