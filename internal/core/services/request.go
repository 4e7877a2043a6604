package services

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/google/uuid"

	"github.com/sufield/trustboot/internal/core/domain"
)

// passwordBytes is the entropy of a one-time bundle password.
const passwordBytes = 24

// requestID derives the exchange id of a certificate request from its public
// key. A leaf that restarts with the same pending key therefore publishes to
// the same place, and an answer can only ever belong to one key.
func requestID(csr *x509.CertificateRequest) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, csr.RawSubjectPublicKeyInfo).String()
}

func parseRequest(csrPEM []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(csrPEM)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, fmt.Errorf("no CERTIFICATE REQUEST block")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("request signature: %w", err)
	}
	return csr, nil
}

func parseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no CERTIFICATE block")
	}
	return x509.ParseCertificate(block.Bytes)
}

// randomPassword returns a one-time password for the CA bundle.
func randomPassword() (string, error) {
	return domain.NewPassword(passwordBytes)
}
