package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Role identifies which part of the trust bootstrap a process plays.
type Role string

const (
	// RoleAuthority becomes the certificate authority at first boot.
	RoleAuthority Role = "authority"
	// RoleInheritor imports the authority's CA key so it can sign for others.
	RoleInheritor Role = "inheritor"
	// RoleLeaf only ever holds the public CA certificate and its own leaf.
	RoleLeaf Role = "leaf"
)

// Roles lists every role in dependency order.
func Roles() []Role {
	return []Role{RoleAuthority, RoleInheritor, RoleLeaf}
}

// ParseRole converts a string into a Role. Matching is case-insensitive and
// accepts the deployment aliases gateway, vault and client.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authority", "gateway":
		return RoleAuthority, nil
	case "inheritor", "vault":
		return RoleInheritor, nil
	case "leaf", "client":
		return RoleLeaf, nil
	}
	return "", fmt.Errorf("unknown role %q (want authority, inheritor or leaf)", s)
}

// String returns the canonical role name.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAuthority, RoleInheritor, RoleLeaf:
		return true
	}
	return false
}

// HoldsCAKey reports whether the role's store carries the CA private key.
func (r Role) HoldsCAKey() bool {
	return r == RoleAuthority || r == RoleInheritor
}

// DefaultNickname is the well-known nickname of the role's own certificate.
func (r Role) DefaultNickname() string {
	switch r {
	case RoleAuthority:
		return "gateway"
	case RoleInheritor:
		return "vault"
	case RoleLeaf:
		return "client"
	}
	return ""
}

// RoleDecodeHook provides a mapstructure decode hook for Role.
// This allows configuration files and environment variables to use any
// spelling ParseRole accepts.
func RoleDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(Role("")) {
			return data, nil
		}
		s, _ := data.(string)
		if strings.TrimSpace(s) == "" {
			return Role(""), nil
		}
		return ParseRole(s)
	}
}
