// Package certstore provides a file-backed certificate store.
//
// A store is a directory holding an index.yaml catalogue, one PEM
// certificate per nickname under certs/, and, for identities that own a
// private key, a PKCS#12 file under keys/ encrypted with the store's access
// secret. Identities waiting for an issued certificate keep their key next
// to a short-lived self-signed placeholder and are flagged pending in the
// index; they are invisible to Exists and List until completed.
package certstore

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"software.sslmate.com/src/go-pkcs12"

	coreerrors "github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/ports"
)

const (
	certsDir = "certs"
	keysDir  = "keys"

	placeholderValidity = 24 * time.Hour
)

// FileStore implements ports.CertificateStore on a local directory.
type FileStore struct {
	dir    string
	secret string

	// mu serializes writers within the process. Separate processes must not
	// share a store; every role owns its own.
	mu sync.Mutex

	rand io.Reader
	now  func() time.Time
}

var _ ports.CertificateStore = (*FileStore)(nil)

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the time source used for certificate validity.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		s.now = now
	}
}

// New returns a store rooted at dir that protects private keys with secret.
// The directory is not touched until Create or another operation is called.
func New(dir, secret string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:    dir,
		secret: secret,
		rand:   rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the store location.
func (s *FileStore) Dir() string {
	return s.dir
}

// Create initializes the store directory layout and an empty index.
func (s *FileStore) Create(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.dir, indexFile)); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "stat store %s: %w", s.dir, err)
	}

	for _, d := range []string{s.dir, filepath.Join(s.dir, certsDir), filepath.Join(s.dir, keysDir)} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return false, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "create %s: %w", d, err)
		}
	}
	if err := writeIndex(s.dir, &index{Version: indexVersion}); err != nil {
		return false, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "write index in %s: %w", s.dir, err)
	}
	return true, nil
}

// Exists implements ports.CertificateStore.
func (s *FileStore) Exists(ctx context.Context, nickname string) (bool, error) {
	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	return e != nil && !e.Pending, nil
}

// List implements ports.CertificateStore.
func (s *FileStore) List(ctx context.Context) ([]domain.Identity, error) {
	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	out := make([]domain.Identity, 0, len(idx.Identities))
	for _, e := range idx.Identities {
		if e.Pending {
			continue
		}
		out = append(out, e.identity())
	}
	return out, nil
}

// ImportCertificate implements ports.CertificateStore.
func (s *FileStore) ImportCertificate(ctx context.Context, nickname string, certPEM []byte, trust domain.TrustFlags) error {
	if err := domain.ValidateNickname(nickname); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrImportFailed, err)
	}
	cert, err := parseCertPEM(certPEM)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "certificate for %q: %w", nickname, err)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, e := idx.find(nickname); e != nil {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "nickname %q already present", nickname)
	}
	if err := s.writeCert(nickname, cert); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrStoreUnavailable, err)
	}
	idx.put(s.entryFor(idx, nickname, cert, trust, false))
	return s.saveIndex(idx)
}

// ImportBundle implements ports.CertificateStore.
func (s *FileStore) ImportBundle(ctx context.Context, nickname string, bundle []byte, password string) error {
	if err := domain.ValidateNickname(nickname); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrImportFailed, err)
	}
	key, cert, _, err := pkcs12.DecodeChain(bundle, password)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "decode bundle for %q: %w", nickname, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "bundle for %q holds unsupported key type %T", nickname, key)
	}
	if !keyMatches(cert, signer) {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "bundle for %q: private key does not match certificate", nickname)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, e := idx.find(nickname); e != nil {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "nickname %q already present", nickname)
	}
	if err := s.writeKeyPair(nickname, signer, cert); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrStoreUnavailable, err)
	}
	idx.put(s.entryFor(idx, nickname, cert, domain.TrustNone, true))
	return s.saveIndex(idx)
}

// SetTrust implements ports.CertificateStore.
func (s *FileStore) SetTrust(ctx context.Context, nickname string, trust domain.TrustFlags) error {
	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	if e == nil || e.Pending {
		return notFound(nickname)
	}
	if e.Trust == trust {
		return nil
	}
	e.Trust = trust
	return s.saveIndex(idx)
}

// GenerateSelfSigned implements ports.CertificateStore.
func (s *FileStore) GenerateSelfSigned(ctx context.Context, spec domain.CertSpec) error {
	if err := spec.Validate(); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, e := idx.find(spec.Nickname); e != nil {
		return coreerrors.Newf(coreerrors.ErrGenerationFailed, "nickname %q already present", spec.Nickname)
	}

	key, err := generateKey(s.rand, spec.KeyBits)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrGenerationFailed, "key for %q: %w", spec.Nickname, err)
	}
	tmpl, err := template(s.rand, spec.Usage, s.now(), spec.ValidityMonths)
	if err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}
	applySubject(tmpl, spec.Subject)

	der, err := x509.CreateCertificate(s.rand, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrGenerationFailed, "self-sign %q: %w", spec.Nickname, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}

	if err := s.writeKeyPair(spec.Nickname, key, cert); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}
	idx.put(s.entryFor(idx, spec.Nickname, cert, spec.Trust, true))
	return s.saveIndex(idx)
}

// GenerateSigned implements ports.CertificateStore.
func (s *FileStore) GenerateSigned(ctx context.Context, spec domain.CertSpec, issuer string) error {
	if err := spec.Validate(); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, e := idx.find(spec.Nickname); e != nil {
		return coreerrors.Newf(coreerrors.ErrGenerationFailed, "nickname %q already present", spec.Nickname)
	}
	issuerCert, issuerKey, err := s.issuerMaterial(idx, issuer)
	if err != nil {
		return err
	}

	key, err := generateKey(s.rand, spec.KeyBits)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrGenerationFailed, "key for %q: %w", spec.Nickname, err)
	}
	tmpl, err := template(s.rand, spec.Usage, s.now(), spec.ValidityMonths)
	if err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}
	applySubject(tmpl, spec.Subject)

	der, err := x509.CreateCertificate(s.rand, tmpl, issuerCert, key.Public(), issuerKey)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrGenerationFailed, "sign %q with %q: %w", spec.Nickname, issuer, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}

	if err := s.writeKeyPair(spec.Nickname, key, cert); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}
	idx.put(s.entryFor(idx, spec.Nickname, cert, spec.Trust, true))
	return s.saveIndex(idx)
}

// GenerateRequest implements ports.CertificateStore. Repeated calls for the
// same nickname reuse the pending key, so a restarted leaf re-sends the same
// request instead of orphaning the first one.
func (s *FileStore) GenerateRequest(ctx context.Context, spec domain.CertSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var key crypto.Signer
	_, e := idx.find(spec.Nickname)
	switch {
	case e != nil && !e.Pending:
		return nil, coreerrors.Newf(coreerrors.ErrGenerationFailed, "nickname %q already present", spec.Nickname)
	case e != nil:
		key, _, err = s.readKeyPair(spec.Nickname)
		if err != nil {
			return nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "pending key for %q: %w", spec.Nickname, err)
		}
	default:
		rsaKey, err := generateKey(s.rand, spec.KeyBits)
		if err != nil {
			return nil, coreerrors.Newf(coreerrors.ErrGenerationFailed, "key for %q: %w", spec.Nickname, err)
		}
		placeholder, err := s.placeholder(spec, rsaKey)
		if err != nil {
			return nil, coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
		}
		if err := s.writeKeyPair(spec.Nickname, rsaKey, placeholder); err != nil {
			return nil, coreerrors.NewDomainError(coreerrors.ErrGenerationFailed, err)
		}
		entry := s.entryFor(idx, spec.Nickname, placeholder, domain.TrustNone, true)
		entry.Pending = true
		idx.put(entry)
		if err := s.saveIndex(idx); err != nil {
			return nil, err
		}
		key = rsaKey
	}

	der, err := x509.CreateCertificateRequest(s.rand, &x509.CertificateRequest{
		Subject:  spec.Subject.Name(),
		DNSNames: spec.Subject.DNSNames,
		URIs:     spec.Subject.URIs,
	}, key)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.ErrGenerationFailed, "request for %q: %w", spec.Nickname, err)
	}
	return csrToPEM(der), nil
}

// ImportIssued implements ports.CertificateStore.
func (s *FileStore) ImportIssued(ctx context.Context, nickname string, certPEM []byte, trust domain.TrustFlags) error {
	cert, err := parseCertPEM(certPEM)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "issued certificate for %q: %w", nickname, err)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	if e == nil {
		return notFound(nickname)
	}
	if !e.Pending {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "nickname %q has no pending request", nickname)
	}
	key, _, err := s.readKeyPair(nickname)
	if err != nil {
		return coreerrors.Newf(coreerrors.ErrStoreUnavailable, "pending key for %q: %w", nickname, err)
	}
	if !keyMatches(cert, key) {
		return coreerrors.Newf(coreerrors.ErrImportFailed, "issued certificate for %q does not match the pending key", nickname)
	}

	if err := s.writeKeyPair(nickname, key, cert); err != nil {
		return coreerrors.NewDomainError(coreerrors.ErrStoreUnavailable, err)
	}
	idx.put(s.entryFor(idx, nickname, cert, trust, true))
	return s.saveIndex(idx)
}

// SignRequest implements ports.CertificateStore. Only the subject and
// alternative names are taken from the request; usage and validity are the
// signer's decision.
func (s *FileStore) SignRequest(ctx context.Context, issuer string, csrPEM []byte, usage domain.Usage, validityMonths int) ([]byte, error) {
	if usage == domain.UsageCA {
		return nil, coreerrors.Newf(coreerrors.ErrIssueFailed, "refusing to sign a CA certificate from a request")
	}
	if validityMonths <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrIssueFailed, "validity must be positive, got %d months", validityMonths)
	}
	csr, err := parseCSRPEM(csrPEM)
	if err != nil {
		return nil, coreerrors.NewDomainError(coreerrors.ErrIssueFailed, err)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	issuerCert, issuerKey, err := s.issuerMaterial(idx, issuer)
	if err != nil {
		return nil, err
	}

	tmpl, err := template(s.rand, usage, s.now(), validityMonths)
	if err != nil {
		return nil, coreerrors.NewDomainError(coreerrors.ErrIssueFailed, err)
	}
	tmpl.Subject = csr.Subject
	tmpl.DNSNames = csr.DNSNames
	tmpl.URIs = csr.URIs

	der, err := x509.CreateCertificate(s.rand, tmpl, issuerCert, csr.PublicKey, issuerKey)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.ErrIssueFailed, "sign request for %q: %w", csr.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, coreerrors.NewDomainError(coreerrors.ErrIssueFailed, err)
	}
	return certToPEM(cert), nil
}

// ExportCertificate implements ports.CertificateStore.
func (s *FileStore) ExportCertificate(ctx context.Context, nickname string) ([]byte, error) {
	cert, err := s.Certificate(ctx, nickname)
	if err != nil {
		return nil, err
	}
	return certToPEM(cert), nil
}

// ExportBundle implements ports.CertificateStore.
func (s *FileStore) ExportBundle(ctx context.Context, nickname string, password string) ([]byte, error) {
	if password == "" {
		return nil, coreerrors.Newf(coreerrors.ErrExportFailed, "bundle for %q needs a password", nickname)
	}

	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	if e == nil || e.Pending {
		return nil, notFound(nickname)
	}
	if !e.HasKey {
		return nil, coreerrors.Newf(coreerrors.ErrExportFailed, "nickname %q has no private key", nickname)
	}
	key, cert, err := s.readKeyPair(nickname)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "key for %q: %w", nickname, err)
	}
	bundle, err := pkcs12.Modern.Encode(key, cert, nil, password)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.ErrExportFailed, "encode bundle for %q: %w", nickname, err)
	}
	return bundle, nil
}

// ListTrust implements ports.CertificateStore.
func (s *FileStore) ListTrust(ctx context.Context, nickname string) (domain.TrustFlags, error) {
	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return domain.TrustNone, err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	if e == nil || e.Pending {
		return domain.TrustNone, notFound(nickname)
	}
	return e.Trust, nil
}

// HasPrivateKey implements ports.CertificateStore. It checks the key file as
// well as the index so a hand-copied key cannot hide behind a stale entry.
func (s *FileStore) HasPrivateKey(ctx context.Context, nickname string) (bool, error) {
	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	if e == nil || e.Pending {
		return false, notFound(nickname)
	}
	if e.HasKey {
		return true, nil
	}
	_, err = os.Stat(s.keyPath(nickname))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "stat key for %q: %w", nickname, err)
	}
}

// Certificate implements ports.CertificateStore.
func (s *FileStore) Certificate(ctx context.Context, nickname string) (*x509.Certificate, error) {
	idx, err := s.lockedIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	_, e := idx.find(nickname)
	if e == nil || e.Pending {
		return nil, notFound(nickname)
	}
	return s.readCert(nickname)
}

// lockedIndex takes the store lock and loads the index. On success the caller
// owns the lock and must release it.
func (s *FileStore) lockedIndex(ctx context.Context) (*index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	idx, err := readIndex(s.dir)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "store %s is not initialized", s.dir)
		}
		return nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "open store %s: %w", s.dir, err)
	}
	return idx, nil
}

func (s *FileStore) saveIndex(idx *index) error {
	if err := writeIndex(s.dir, idx); err != nil {
		return coreerrors.Newf(coreerrors.ErrStoreUnavailable, "write index in %s: %w", s.dir, err)
	}
	return nil
}

// entryFor builds the index entry for cert, resolving the issuer nickname
// against the certificates already in the store.
func (s *FileStore) entryFor(idx *index, nickname string, cert *x509.Certificate, trust domain.TrustFlags, hasKey bool) indexEntry {
	e := indexEntry{
		Nickname:   nickname,
		Subject:    cert.Subject.String(),
		SelfSigned: isSelfSigned(cert),
		Trust:      trust,
		HasKey:     hasKey,
		NotAfter:   cert.NotAfter.UTC(),
	}
	if e.SelfSigned {
		return e
	}
	for _, other := range idx.Identities {
		if other.Nickname == nickname || other.Pending {
			continue
		}
		parent, err := s.readCert(other.Nickname)
		if err != nil || !parent.IsCA {
			continue
		}
		if cert.CheckSignatureFrom(parent) == nil {
			e.Issuer = other.Nickname
			break
		}
	}
	return e
}

// issuerMaterial loads the CA certificate and key stored under nickname.
func (s *FileStore) issuerMaterial(idx *index, nickname string) (*x509.Certificate, crypto.Signer, error) {
	_, e := idx.find(nickname)
	if e == nil || e.Pending {
		return nil, nil, notFound(nickname)
	}
	if !e.HasKey {
		return nil, nil, coreerrors.Newf(coreerrors.ErrGenerationFailed, "issuer %q has no private key in this store", nickname)
	}
	key, cert, err := s.readKeyPair(nickname)
	if err != nil {
		return nil, nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "key for issuer %q: %w", nickname, err)
	}
	if !cert.IsCA {
		return nil, nil, coreerrors.Newf(coreerrors.ErrGenerationFailed, "issuer %q is not a CA certificate", nickname)
	}
	return cert, key, nil
}

// placeholder self-signs a short-lived certificate so a pending key can be
// kept in the same encrypted PKCS#12 form as every other key.
func (s *FileStore) placeholder(spec domain.CertSpec, key crypto.Signer) (*x509.Certificate, error) {
	serial, err := randomSerial(s.rand)
	if err != nil {
		return nil, err
	}
	now := s.now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      spec.Subject.Name(),
		NotBefore:    now,
		NotAfter:     now.Add(placeholderValidity),
	}
	der, err := x509.CreateCertificate(s.rand, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("placeholder for %q: %w", spec.Nickname, err)
	}
	return x509.ParseCertificate(der)
}

func (s *FileStore) certPath(nickname string) string {
	return filepath.Join(s.dir, certsDir, nickname+".pem")
}

func (s *FileStore) keyPath(nickname string) string {
	return filepath.Join(s.dir, keysDir, nickname+".p12")
}

func (s *FileStore) writeCert(nickname string, cert *x509.Certificate) error {
	return writeFileAtomic(s.certPath(nickname), certToPEM(cert), 0o644)
}

func (s *FileStore) readCert(nickname string) (*x509.Certificate, error) {
	b, err := os.ReadFile(s.certPath(nickname))
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "read certificate %q: %w", nickname, err)
	}
	cert, err := parseCertPEM(b)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.ErrStoreUnavailable, "certificate %q: %w", nickname, err)
	}
	return cert, nil
}

// writeKeyPair stores the key encrypted with the access secret, then the
// certificate. The certificate is written last so a crash never leaves a
// certificate without its key.
func (s *FileStore) writeKeyPair(nickname string, key crypto.Signer, cert *x509.Certificate) error {
	p12, err := pkcs12.Modern.Encode(key, cert, nil, s.secret)
	if err != nil {
		return fmt.Errorf("encrypt key for %q: %w", nickname, err)
	}
	if err := writeFileAtomic(s.keyPath(nickname), p12, 0o600); err != nil {
		return fmt.Errorf("write key for %q: %w", nickname, err)
	}
	if err := s.writeCert(nickname, cert); err != nil {
		return fmt.Errorf("write certificate for %q: %w", nickname, err)
	}
	return nil
}

func (s *FileStore) readKeyPair(nickname string) (crypto.Signer, *x509.Certificate, error) {
	p12, err := os.ReadFile(s.keyPath(nickname))
	if err != nil {
		return nil, nil, err
	}
	key, cert, err := pkcs12.Decode(p12, s.secret)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, nil, fmt.Errorf("wrong access secret for store %s", s.dir)
		}
		return nil, nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported key type %T", key)
	}
	return signer, cert, nil
}

func notFound(nickname string) error {
	return coreerrors.Newf(coreerrors.ErrNotFound, "nickname %q", nickname)
}
