// Package services implements the trust bootstrap: the per-role
// bootstrapper, the coordinator that orders roles and validates their
// stores, and the issuer that answers leaf certificate requests.
package services

import (
	"fmt"
	"time"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
)

// Settings is the value object every service is built from. It replaces any
// process-wide state: two bootstrappers with different settings can run in
// the same process.
type Settings struct {
	Role        domain.Role
	CANickname  string
	OwnNickname string
	Subject     domain.SubjectParams

	KeyBits            int
	CAValidityMonths   int
	CertValidityMonths int

	PollInterval  time.Duration
	BundleTimeout time.Duration
	CertTimeout   time.Duration
	IssueTimeout  time.Duration
}

// Validate checks the settings before any store is touched.
func (s Settings) Validate() error {
	if !s.Role.Valid() {
		return &errors.ValidationError{Field: "role", Value: s.Role, Message: "must be authority, inheritor or leaf"}
	}
	if err := domain.ValidateNickname(s.CANickname); err != nil {
		return &errors.ValidationError{Field: "nicknames.ca", Value: s.CANickname, Message: err.Error()}
	}
	if err := domain.ValidateNickname(s.OwnNickname); err != nil {
		return &errors.ValidationError{Field: "nicknames.own", Value: s.OwnNickname, Message: err.Error()}
	}
	if s.CANickname == s.OwnNickname {
		return &errors.ValidationError{Field: "nicknames.own", Value: s.OwnNickname, Message: "must differ from the CA nickname"}
	}
	if s.KeyBits < domain.MinKeyBits {
		return &errors.ValidationError{Field: "key_bits", Value: s.KeyBits, Message: fmt.Sprintf("must be at least %d", domain.MinKeyBits)}
	}
	if s.CAValidityMonths <= 0 {
		return &errors.ValidationError{Field: "ca_validity_months", Value: s.CAValidityMonths, Message: "must be positive"}
	}
	if s.CertValidityMonths <= 0 {
		return &errors.ValidationError{Field: "cert_validity_months", Value: s.CertValidityMonths, Message: "must be positive"}
	}
	if s.PollInterval <= 0 {
		return &errors.ValidationError{Field: "poll.interval", Value: s.PollInterval, Message: "must be positive"}
	}
	for field, d := range map[string]time.Duration{
		"poll.bundle_timeout": s.BundleTimeout,
		"poll.cert_timeout":   s.CertTimeout,
		"poll.issue_timeout":  s.IssueTimeout,
	} {
		if d < s.PollInterval {
			return &errors.ValidationError{Field: field, Value: d, Message: "must be at least poll.interval"}
		}
	}
	return nil
}

// CASpec describes the authority's self-signed CA certificate.
func (s Settings) CASpec() (domain.CertSpec, error) {
	subject, err := domain.CASubject(s.Subject)
	if err != nil {
		return domain.CertSpec{}, err
	}
	return domain.CertSpec{
		Nickname:       s.CANickname,
		Subject:        subject,
		Usage:          domain.UsageCA,
		Trust:          PolicyFor(s.Role).CATrust,
		KeyBits:        s.KeyBits,
		ValidityMonths: s.CAValidityMonths,
	}, nil
}

// OwnSpec describes the role's own end-entity certificate.
func (s Settings) OwnSpec() (domain.CertSpec, error) {
	subject, err := domain.OwnSubject(s.Role, s.Subject)
	if err != nil {
		return domain.CertSpec{}, err
	}
	usage := domain.UsageServer
	if s.Role == domain.RoleLeaf {
		usage = domain.UsageClient
	}
	return domain.CertSpec{
		Nickname:       s.OwnNickname,
		Subject:        subject,
		Usage:          usage,
		Trust:          PolicyFor(s.Role).OwnTrust,
		KeyBits:        s.KeyBits,
		ValidityMonths: s.CertValidityMonths,
	}, nil
}
