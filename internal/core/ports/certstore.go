package ports

import (
	"context"
	"crypto/x509"

	"github.com/sufield/trustboot/internal/core/domain"
)

// CertificateStore is a per-role database of nickname-addressed certificates
// and keys with trust attributes. The location and access secret are fixed
// when the store is constructed.
//
// Implementations return errors wrapping core/errors.ErrNotFound for unknown
// nicknames and core/errors.ErrStoreUnavailable when the backing store cannot
// be opened or written.
type CertificateStore interface {
	// Create initializes the store. It reports created=false, and no error,
	// when the store already exists.
	Create(ctx context.Context) (created bool, err error)

	// Exists reports whether a complete identity is stored under nickname.
	// Identities still waiting for an issued certificate do not count.
	Exists(ctx context.Context, nickname string) (bool, error)

	// List returns every complete identity in the store.
	List(ctx context.Context) ([]domain.Identity, error)

	// ImportCertificate stores a PEM certificate without a private key.
	ImportCertificate(ctx context.Context, nickname string, certPEM []byte, trust domain.TrustFlags) error

	// ImportBundle stores the certificate and private key from a
	// password-protected PKCS#12 bundle. Trust is not carried by the bundle
	// and must be set afterwards with SetTrust.
	ImportBundle(ctx context.Context, nickname string, bundle []byte, password string) error

	// SetTrust replaces the trust flags of an identity.
	SetTrust(ctx context.Context, nickname string, trust domain.TrustFlags) error

	// GenerateSelfSigned creates a key pair and a self-signed certificate.
	GenerateSelfSigned(ctx context.Context, spec domain.CertSpec) error

	// GenerateSigned creates a key pair and a certificate signed by the
	// private key stored under issuer.
	GenerateSigned(ctx context.Context, spec domain.CertSpec, issuer string) error

	// GenerateRequest creates (or reuses) a pending key pair under nickname
	// and returns a PEM certificate signing request for it.
	GenerateRequest(ctx context.Context, spec domain.CertSpec) ([]byte, error)

	// ImportIssued completes a pending identity with the certificate issued
	// for its request.
	ImportIssued(ctx context.Context, nickname string, certPEM []byte, trust domain.TrustFlags) error

	// SignRequest signs a PEM certificate signing request with the private
	// key stored under issuer and returns the PEM certificate.
	SignRequest(ctx context.Context, issuer string, csrPEM []byte, usage domain.Usage, validityMonths int) ([]byte, error)

	// ExportCertificate returns the PEM certificate stored under nickname.
	ExportCertificate(ctx context.Context, nickname string) ([]byte, error)

	// ExportBundle returns the certificate and private key under nickname as
	// a PKCS#12 bundle protected by password.
	ExportBundle(ctx context.Context, nickname string, password string) ([]byte, error)

	// ListTrust returns the trust flags of an identity.
	ListTrust(ctx context.Context, nickname string) (domain.TrustFlags, error)

	// HasPrivateKey reports whether a private key is stored for nickname.
	HasPrivateKey(ctx context.Context, nickname string) (bool, error)

	// Certificate returns the parsed certificate stored under nickname.
	Certificate(ctx context.Context, nickname string) (*x509.Certificate, error)
}
