package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sufield/trustboot/internal/core/domain"
)

func testSettings(role domain.Role) Settings {
	return Settings{
		Role:        role,
		CANickname:  "ca",
		OwnNickname: role.DefaultNickname(),
		Subject: domain.SubjectParams{
			Hostname:     "node.example.test",
			Username:     "alice",
			Organization: "Example",
			TrustDomain:  "example.test",
		},
		KeyBits:            domain.MinKeyBits,
		CAValidityMonths:   120,
		CertValidityMonths: 120,
		PollInterval:       5 * time.Millisecond,
		BundleTimeout:      25 * time.Millisecond,
		CertTimeout:        25 * time.Millisecond,
		IssueTimeout:       25 * time.Millisecond,
	}
}

// testPKI is a CA plus one end-entity certificate built straight from the
// settings, without a store.
type testPKI struct {
	caKey  *rsa.PrivateKey
	ca     *x509.Certificate
	ownKey *rsa.PrivateKey
	own    *x509.Certificate
}

func newTestPKI(t *testing.T, s Settings) *testPKI {
	t.Helper()
	caSpec, err := s.CASpec()
	require.NoError(t, err)
	ownSpec, err := s.OwnSpec()
	require.NoError(t, err)

	caKey, err := rsa.GenerateKey(rand.Reader, domain.MinKeyBits)
	require.NoError(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               caSpec.Subject.Name(),
		URIs:                  caSpec.Subject.URIs,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, caKey.Public(), caKey)
	require.NoError(t, err)
	ca, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	ownKey, err := rsa.GenerateKey(rand.Reader, domain.MinKeyBits)
	require.NoError(t, err)
	ownTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      ownSpec.Subject.Name(),
		DNSNames:     ownSpec.Subject.DNSNames,
		URIs:         ownSpec.Subject.URIs,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}
	ownDER, err := x509.CreateCertificate(rand.Reader, ownTmpl, ca, ownKey.Public(), caKey)
	require.NoError(t, err)
	own, err := x509.ParseCertificate(ownDER)
	require.NoError(t, err)

	return &testPKI{caKey: caKey, ca: ca, ownKey: ownKey, own: own}
}

func (p *testPKI) caPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.ca.Raw})
}

// testRequest builds a signed CSR PEM for the given subject.
func testRequest(t *testing.T, subject domain.Subject) ([]byte, *x509.CertificateRequest) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, domain.MinKeyBits)
	require.NoError(t, err)
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  subject.Name(),
		DNSNames: subject.DNSNames,
		URIs:     subject.URIs,
	}, key)
	require.NoError(t, err)
	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), csr
}
