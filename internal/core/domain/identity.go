package domain

import (
	"crypto/x509/pkix"
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// MinKeyBits is the smallest RSA modulus the bootstrap will generate.
const MinKeyBits = 2048

// Usage selects the extensions placed on a generated certificate.
type Usage int

const (
	// UsageCA is a certificate authority: may sign other certificates.
	UsageCA Usage = iota
	// UsageServer is a service certificate valid for both server and client auth.
	UsageServer
	// UsageClient is a user certificate valid for client auth only.
	UsageClient
)

func (u Usage) String() string {
	switch u {
	case UsageCA:
		return "ca"
	case UsageServer:
		return "server"
	case UsageClient:
		return "client"
	}
	return "unknown"
}

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateNickname checks that a nickname is usable as a store label.
func ValidateNickname(nickname string) error {
	if !nicknamePattern.MatchString(nickname) {
		return fmt.Errorf("invalid nickname %q: must match %s", nickname, nicknamePattern.String())
	}
	return nil
}

// Subject is the distinguished name and alternative names of a certificate.
type Subject struct {
	CommonName   string
	Organization string
	DNSNames     []string
	URIs         []*url.URL
}

// Name returns the pkix form of the subject.
func (s Subject) Name() pkix.Name {
	name := pkix.Name{CommonName: s.CommonName}
	if s.Organization != "" {
		name.Organization = []string{s.Organization}
	}
	return name
}

// String renders the subject in RFC 2253-ish form for logs and reports.
func (s Subject) String() string {
	return s.Name().String()
}

// CertSpec describes a key pair and certificate to be generated into a store.
type CertSpec struct {
	Nickname       string
	Subject        Subject
	Usage          Usage
	Trust          TrustFlags
	KeyBits        int
	ValidityMonths int
}

// Validate checks the spec before any key material is generated.
func (c CertSpec) Validate() error {
	if err := ValidateNickname(c.Nickname); err != nil {
		return err
	}
	if c.Subject.CommonName == "" {
		return fmt.Errorf("certificate %q: subject common name is required", c.Nickname)
	}
	if c.KeyBits < MinKeyBits {
		return fmt.Errorf("certificate %q: key size %d is below the %d bit minimum", c.Nickname, c.KeyBits, MinKeyBits)
	}
	if c.ValidityMonths <= 0 {
		return fmt.Errorf("certificate %q: validity must be positive, got %d months", c.Nickname, c.ValidityMonths)
	}
	if c.Usage == UsageCA && c.Trust.Has(TrustEndEntity) {
		return fmt.Errorf("certificate %q: a CA cannot carry end-entity trust", c.Nickname)
	}
	if c.Usage != UsageCA && c.Trust.Has(TrustIssuer) {
		return fmt.Errorf("certificate %q: an end-entity cannot carry issuer trust", c.Nickname)
	}
	return nil
}

// Identity is one labeled certificate (and optionally its key) in a store.
type Identity struct {
	Nickname   string
	Subject    string
	Issuer     string // issuer nickname, empty when self-signed or imported
	SelfSigned bool
	Trust      TrustFlags
	HasKey     bool
	NotAfter   time.Time
}
