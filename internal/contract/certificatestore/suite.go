// Package certificatestore provides the contract test suite for
// ports.CertificateStore implementations.
package certificatestore

import (
	"context"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trustboot/internal/core/domain"
	coreerrors "github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/ports"
)

// Factory returns a store that has not been created yet. Each call must
// return an independent store.
type Factory func(t *testing.T) ports.CertificateStore

var params = domain.SubjectParams{
	Hostname:     "gw.example.test",
	Username:     "alice",
	Organization: "Example",
	TrustDomain:  "example.test",
}

// Run executes the complete contract suite against newImpl.
func Run(t *testing.T, newImpl Factory) {
	t.Helper()
	t.Run("create is idempotent", func(t *testing.T) {
		testCreate(t, newImpl)
	})
	t.Run("unknown nickname", func(t *testing.T) {
		testUnknownNickname(t, newImpl)
	})
	t.Run("generate CA and signed certificate", func(t *testing.T) {
		testGenerate(t, newImpl)
	})
	t.Run("bundle moves the key between stores", func(t *testing.T) {
		testBundleTransfer(t, newImpl)
	})
	t.Run("request is completed by the issued certificate", func(t *testing.T) {
		testRequestFlow(t, newImpl)
	})
}

func created(t *testing.T, newImpl Factory) ports.CertificateStore {
	t.Helper()
	s := newImpl(t)
	_, err := s.Create(context.Background())
	require.NoError(t, err)
	return s
}

func caSpec(t *testing.T) domain.CertSpec {
	t.Helper()
	subject, err := domain.CASubject(params)
	require.NoError(t, err)
	return domain.CertSpec{
		Nickname:       "ca",
		Subject:        subject,
		Usage:          domain.UsageCA,
		Trust:          domain.TrustIssuer,
		KeyBits:        domain.MinKeyBits,
		ValidityMonths: 12,
	}
}

func ownSpec(t *testing.T, role domain.Role, usage domain.Usage) domain.CertSpec {
	t.Helper()
	subject, err := domain.OwnSubject(role, params)
	require.NoError(t, err)
	return domain.CertSpec{
		Nickname:       role.DefaultNickname(),
		Subject:        subject,
		Usage:          usage,
		Trust:          domain.TrustEndEntity,
		KeyBits:        domain.MinKeyBits,
		ValidityMonths: 12,
	}
}

func verify(t *testing.T, ca, cert *x509.Certificate, usage x509.ExtKeyUsage) {
	t.Helper()
	roots := x509.NewCertPool()
	roots.AddCert(ca)
	_, err := cert.Verify(x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{usage}})
	assert.NoError(t, err)
}

func testCreate(t *testing.T, newImpl Factory) {
	ctx := context.Background()
	s := newImpl(t)

	first, err := s.Create(ctx)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.Create(ctx)
	require.NoError(t, err)
	assert.False(t, again)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func testUnknownNickname(t *testing.T, newImpl Factory) {
	ctx := context.Background()
	s := created(t, newImpl)

	exists, err := s.Exists(ctx, "ca")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.ListTrust(ctx, "ca")
	assert.ErrorIs(t, err, coreerrors.ErrNotFound)
	_, err = s.Certificate(ctx, "ca")
	assert.ErrorIs(t, err, coreerrors.ErrNotFound)
	_, err = s.ExportCertificate(ctx, "ca")
	assert.ErrorIs(t, err, coreerrors.ErrNotFound)
	assert.ErrorIs(t, s.SetTrust(ctx, "ca", domain.TrustIssuer), coreerrors.ErrNotFound)
}

func testGenerate(t *testing.T, newImpl Factory) {
	ctx := context.Background()
	s := created(t, newImpl)

	require.NoError(t, s.GenerateSelfSigned(ctx, caSpec(t)))
	require.NoError(t, s.GenerateSigned(ctx, ownSpec(t, domain.RoleAuthority, domain.UsageServer), "ca"))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	trust, err := s.ListTrust(ctx, "gateway")
	require.NoError(t, err)
	assert.Equal(t, domain.TrustEndEntity, trust)

	hasKey, err := s.HasPrivateKey(ctx, "gateway")
	require.NoError(t, err)
	assert.True(t, hasKey)

	ca, err := s.Certificate(ctx, "ca")
	require.NoError(t, err)
	assert.True(t, ca.IsCA)
	own, err := s.Certificate(ctx, "gateway")
	require.NoError(t, err)
	verify(t, ca, own, x509.ExtKeyUsageServerAuth)
}

func testBundleTransfer(t *testing.T, newImpl Factory) {
	ctx := context.Background()
	src := created(t, newImpl)
	dst := created(t, newImpl)
	require.NoError(t, src.GenerateSelfSigned(ctx, caSpec(t)))

	bundle, err := src.ExportBundle(ctx, "ca", "bundle-password-0123456789")
	require.NoError(t, err)
	require.NotEmpty(t, bundle)

	assert.Error(t, dst.ImportBundle(ctx, "ca", bundle, "wrong-password"))
	require.NoError(t, dst.ImportBundle(ctx, "ca", bundle, "bundle-password-0123456789"))

	trust, err := dst.ListTrust(ctx, "ca")
	require.NoError(t, err)
	assert.Equal(t, domain.TrustNone, trust, "bundles carry no trust")
	require.NoError(t, dst.SetTrust(ctx, "ca", domain.TrustIssuer))

	hasKey, err := dst.HasPrivateKey(ctx, "ca")
	require.NoError(t, err)
	assert.True(t, hasKey)

	require.NoError(t, dst.GenerateSigned(ctx, ownSpec(t, domain.RoleInheritor, domain.UsageServer), "ca"))
	ca, err := src.Certificate(ctx, "ca")
	require.NoError(t, err)
	own, err := dst.Certificate(ctx, "vault")
	require.NoError(t, err)
	verify(t, ca, own, x509.ExtKeyUsageServerAuth)
}

func testRequestFlow(t *testing.T, newImpl Factory) {
	ctx := context.Background()
	issuer := created(t, newImpl)
	leaf := created(t, newImpl)
	require.NoError(t, issuer.GenerateSelfSigned(ctx, caSpec(t)))

	caPEM, err := issuer.ExportCertificate(ctx, "ca")
	require.NoError(t, err)
	require.NoError(t, leaf.ImportCertificate(ctx, "ca", caPEM, domain.TrustIssuer))
	hasKey, err := leaf.HasPrivateKey(ctx, "ca")
	require.NoError(t, err)
	assert.False(t, hasKey)

	spec := ownSpec(t, domain.RoleLeaf, domain.UsageClient)
	csr, err := leaf.GenerateRequest(ctx, spec)
	require.NoError(t, err)

	exists, err := leaf.Exists(ctx, spec.Nickname)
	require.NoError(t, err)
	assert.False(t, exists, "a pending request is not an identity")

	again, err := leaf.GenerateRequest(ctx, spec)
	require.NoError(t, err)
	reqA, err := parseCSR(csr)
	require.NoError(t, err)
	reqB, err := parseCSR(again)
	require.NoError(t, err)
	assert.Equal(t, reqA.RawSubjectPublicKeyInfo, reqB.RawSubjectPublicKeyInfo, "the pending key is reused")

	certPEM, err := issuer.SignRequest(ctx, "ca", csr, domain.UsageClient, 12)
	require.NoError(t, err)
	require.NoError(t, leaf.ImportIssued(ctx, spec.Nickname, certPEM, domain.TrustEndEntity))

	exists, err = leaf.Exists(ctx, spec.Nickname)
	require.NoError(t, err)
	assert.True(t, exists)

	ca, err := leaf.Certificate(ctx, "ca")
	require.NoError(t, err)
	own, err := leaf.Certificate(ctx, spec.Nickname)
	require.NoError(t, err)
	verify(t, ca, own, x509.ExtKeyUsageClientAuth)
}
