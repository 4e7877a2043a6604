package certificatestore

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
)

func parseCSR(data []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, errors.New("no PEM certificate request")
	}
	return x509.ParseCertificateRequest(block.Bytes)
}
