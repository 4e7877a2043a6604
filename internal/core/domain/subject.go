package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// SubjectParams are the configured inputs subjects are derived from.
type SubjectParams struct {
	Hostname     string
	Username     string
	Organization string
	TrustDomain  string
	// AltHosts are extra DNS names, for example the address other roles
	// use to reach the authority or inheritor.
	AltHosts []string
}

// CASubject derives the subject of the authority's CA certificate.
// The CA carries the trust domain ID as its URI SAN.
func CASubject(p SubjectParams) (Subject, error) {
	td, err := spiffeid.TrustDomainFromString(p.TrustDomain)
	if err != nil {
		return Subject{}, fmt.Errorf("invalid trust domain %q: %w", p.TrustDomain, err)
	}
	return Subject{
		CommonName:   p.Organization + " CA",
		Organization: p.Organization,
		URIs:         []*url.URL{td.ID().URL()},
	}, nil
}

// OwnSubject derives the subject of a role's own certificate. The result is a
// pure function of role and params, so two runs for the same role never
// diverge.
func OwnSubject(role Role, p SubjectParams) (Subject, error) {
	td, err := spiffeid.TrustDomainFromString(p.TrustDomain)
	if err != nil {
		return Subject{}, fmt.Errorf("invalid trust domain %q: %w", p.TrustDomain, err)
	}

	var cn string
	switch role {
	case RoleAuthority, RoleInheritor:
		cn = strings.ToLower(strings.TrimSpace(p.Hostname))
		if cn == "" {
			return Subject{}, fmt.Errorf("%s certificate requires a hostname", role)
		}
	case RoleLeaf:
		cn = strings.TrimSpace(p.Username)
		if cn == "" {
			return Subject{}, fmt.Errorf("%s certificate requires a username", role)
		}
	default:
		return Subject{}, fmt.Errorf("unknown role %q", role)
	}

	id, err := WorkloadID(td, role, cn)
	if err != nil {
		return Subject{}, err
	}

	s := Subject{
		CommonName:   cn,
		Organization: p.Organization,
		URIs:         []*url.URL{id.URL()},
	}
	if role != RoleLeaf {
		s.DNSNames = dnsNames(cn, p.AltHosts)
	}
	return s, nil
}

// WorkloadID is the SPIFFE ID placed in a role's own certificate:
// spiffe://<trust-domain>/<role>/<name>.
func WorkloadID(td spiffeid.TrustDomain, role Role, name string) (spiffeid.ID, error) {
	id, err := spiffeid.FromSegments(td, role.String(), name)
	if err != nil {
		return spiffeid.ID{}, fmt.Errorf("cannot build SPIFFE ID for %s %q: %w", role, name, err)
	}
	return id, nil
}

func dnsNames(primary string, alts []string) []string {
	names := []string{primary}
	seen := map[string]bool{primary: true}
	for _, h := range alts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		names = append(names, h)
	}
	return names
}
