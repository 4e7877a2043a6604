package domain

import (
	"fmt"
	"strings"
)

// TrustFlags declares what an identity in a store may be trusted to do.
type TrustFlags uint8

const (
	// TrustIssuer marks an identity trusted to issue certificates.
	TrustIssuer TrustFlags = 1 << iota
	// TrustEndEntity marks a service or user certificate used for authentication.
	TrustEndEntity
)

// TrustNone is the empty flag set. Freshly imported bundles start here until
// their trust is re-asserted.
const TrustNone TrustFlags = 0

var trustNames = []struct {
	flag TrustFlags
	name string
}{
	{TrustIssuer, "issuer"},
	{TrustEndEntity, "end-entity"},
}

// Has reports whether every flag in other is set.
func (f TrustFlags) Has(other TrustFlags) bool {
	return f&other == other
}

// String renders the flags as a comma separated list, "none" when empty.
func (f TrustFlags) String() string {
	if f == TrustNone {
		return "none"
	}
	parts := make([]string, 0, len(trustNames))
	for _, tn := range trustNames {
		if f.Has(tn.flag) {
			parts = append(parts, tn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseTrustFlags parses the output of TrustFlags.String.
func ParseTrustFlags(s string) (TrustFlags, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return TrustNone, nil
	}
	var f TrustFlags
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		found := false
		for _, tn := range trustNames {
			if tn.name == part {
				f |= tn.flag
				found = true
				break
			}
		}
		if !found {
			return TrustNone, fmt.Errorf("unknown trust flag %q", part)
		}
	}
	return f, nil
}

// MarshalYAML implements yaml.Marshaler.
func (f TrustFlags) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *TrustFlags) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseTrustFlags(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
