// Package config loads the trustboot configuration from defaults, an
// optional YAML file, TRUSTBOOT_ environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/services"
)

// Config is the complete configuration of one trustboot process. It is
// built once at startup and passed by value to everything that needs it.
type Config struct {
	Role          domain.Role `mapstructure:"role" yaml:"role" validate:"required,role"`
	Hostname      string      `mapstructure:"hostname" yaml:"hostname" validate:"required_unless=Role leaf,spiffe_segment"`
	Username      string      `mapstructure:"username" yaml:"username" validate:"required_if=Role leaf,spiffe_segment"`
	AuthorityHost string      `mapstructure:"authority_host" yaml:"authority_host,omitempty" validate:"omitempty,hostname_rfc1123"`
	InheritorHost string      `mapstructure:"inheritor_host" yaml:"inheritor_host,omitempty" validate:"omitempty,hostname_rfc1123"`
	Organization  string      `mapstructure:"organization" yaml:"organization" validate:"required"`
	TrustDomain   string      `mapstructure:"trust_domain" yaml:"trust_domain" validate:"required,trust_domain"`

	Store     StoreConfig    `mapstructure:"store" yaml:"store"`
	Exchange  ExchangeConfig `mapstructure:"exchange" yaml:"exchange"`
	Nicknames NicknameConfig `mapstructure:"nicknames" yaml:"nicknames"`

	KeyBits            int `mapstructure:"key_bits" yaml:"key_bits" validate:"gte=2048"`
	CAValidityMonths   int `mapstructure:"ca_validity_months" yaml:"ca_validity_months" validate:"gt=0"`
	CertValidityMonths int `mapstructure:"cert_validity_months" yaml:"cert_validity_months" validate:"gt=0"`

	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// StoreConfig locates the role's certificate store.
type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
	// SecretFile holds the store access secret. Defaults to .secret inside Dir.
	SecretFile string `mapstructure:"secret_file" yaml:"secret_file,omitempty"`
}

// ExchangeConfig locates the shared exchange directory.
type ExchangeConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// NicknameConfig holds the well-known store nicknames.
type NicknameConfig struct {
	CA string `mapstructure:"ca" yaml:"ca" validate:"required,nickname"`
	// Own defaults to the role's conventional nickname.
	Own string `mapstructure:"own" yaml:"own,omitempty" validate:"omitempty,nickname,nefield=CA"`
}

// PollConfig controls waiting on upstream artifacts.
type PollConfig struct {
	Interval      time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`
	BundleTimeout time.Duration `mapstructure:"bundle_timeout" yaml:"bundle_timeout" validate:"gtefield=Interval"`
	CertTimeout   time.Duration `mapstructure:"cert_timeout" yaml:"cert_timeout" validate:"gtefield=Interval"`
	IssueTimeout  time.Duration `mapstructure:"issue_timeout" yaml:"issue_timeout" validate:"gtefield=Interval"`
}

// MetricsConfig controls the Prometheus textfile output.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// applyDerived fills fields whose defaults depend on other fields.
func (c *Config) applyDerived() {
	c.Hostname = strings.ToLower(strings.TrimSpace(c.Hostname))
	c.Username = strings.TrimSpace(c.Username)
	if c.Nicknames.Own == "" {
		c.Nicknames.Own = c.Role.DefaultNickname()
	}
	if c.Store.SecretFile == "" && c.Store.Dir != "" {
		c.Store.SecretFile = filepath.Join(c.Store.Dir, ".secret")
	}
}

// AltHosts returns the extra DNS names placed in the role's own certificate.
func (c Config) AltHosts() []string {
	switch c.Role {
	case domain.RoleAuthority:
		if c.AuthorityHost != "" {
			return []string{c.AuthorityHost}
		}
	case domain.RoleInheritor:
		if c.InheritorHost != "" {
			return []string{c.InheritorHost}
		}
	}
	return nil
}

// Settings converts the configuration into the value object the core
// services are built from.
func (c Config) Settings() services.Settings {
	return services.Settings{
		Role:        c.Role,
		CANickname:  c.Nicknames.CA,
		OwnNickname: c.Nicknames.Own,
		Subject: domain.SubjectParams{
			Hostname:     c.Hostname,
			Username:     c.Username,
			Organization: c.Organization,
			TrustDomain:  c.TrustDomain,
			AltHosts:     c.AltHosts(),
		},
		KeyBits:            c.KeyBits,
		CAValidityMonths:   c.CAValidityMonths,
		CertValidityMonths: c.CertValidityMonths,
		PollInterval:       c.Poll.Interval,
		BundleTimeout:      c.Poll.BundleTimeout,
		CertTimeout:        c.Poll.CertTimeout,
		IssueTimeout:       c.Poll.IssueTimeout,
	}
}
