package certstore

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/sufield/trustboot/internal/core/domain"
)

const (
	pemBlockCert = "CERTIFICATE"
	pemBlockCSR  = "CERTIFICATE REQUEST"

	// clockSkew backdates NotBefore so freshly issued certificates verify on
	// peers whose clocks run slightly behind.
	clockSkew = 5 * time.Minute
)

var serialLimit = new(big.Int).Lsh(big.NewInt(1), 128)

func generateKey(r io.Reader, bits int) (*rsa.PrivateKey, error) {
	if bits < domain.MinKeyBits {
		return nil, fmt.Errorf("key size %d is below the %d bit minimum", bits, domain.MinKeyBits)
	}
	return rsa.GenerateKey(r, bits)
}

func randomSerial(r io.Reader) (*big.Int, error) {
	return rand.Int(r, serialLimit)
}

// template builds the certificate template for usage. Subject fields are
// filled by the caller.
func template(r io.Reader, usage domain.Usage, now time.Time, validityMonths int) (*x509.Certificate, error) {
	serial, err := randomSerial(r)
	if err != nil {
		return nil, fmt.Errorf("serial number: %w", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		NotBefore:             now.Add(-clockSkew),
		NotAfter:              now.AddDate(0, validityMonths, 0),
		BasicConstraintsValid: true,
	}
	switch usage {
	case domain.UsageCA:
		tmpl.IsCA = true
		tmpl.MaxPathLenZero = true
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature
	case domain.UsageServer:
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	case domain.UsageClient:
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	default:
		return nil, fmt.Errorf("unsupported certificate usage %d", usage)
	}
	return tmpl, nil
}

func applySubject(tmpl *x509.Certificate, s domain.Subject) {
	tmpl.Subject = s.Name()
	tmpl.DNSNames = s.DNSNames
	tmpl.URIs = s.URIs
}

func certToPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemBlockCert, Bytes: cert.Raw})
}

// parseCertPEM returns the first certificate in b.
func parseCertPEM(b []byte) (*x509.Certificate, error) {
	rest := b
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("no PEM certificate found")
		}
		if block.Type != pemBlockCert {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("error parsing certificate: %w", err)
		}
		return cert, nil
	}
}

func parseCSRPEM(b []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM data found")
	}
	if block.Type != pemBlockCSR {
		return nil, fmt.Errorf("got unexpected block type %q for certificate request", block.Type)
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("error parsing certificate request: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("certificate request signature: %w", err)
	}
	return csr, nil
}

func csrToPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemBlockCSR, Bytes: der})
}

func isSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	return cert.CheckSignatureFrom(cert) == nil
}

type publicKeyEqualer interface {
	Equal(crypto.PublicKey) bool
}

// keyMatches reports whether cert carries the public half of key.
func keyMatches(cert *x509.Certificate, key crypto.Signer) bool {
	pub, ok := key.Public().(publicKeyEqualer)
	if !ok {
		return false
	}
	return pub.Equal(cert.PublicKey)
}
