package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sufield/trustboot/internal/core/domain"
)

// EnvPrefix prefixes every environment variable, e.g. TRUSTBOOT_STORE_DIR.
const EnvPrefix = "TRUSTBOOT"

// Default values. Timeouts allow 30 attempts for the bundle and 60 for the
// CA certificate and the issued leaf certificate at the default interval.
const (
	DefaultOrganization   = "trustboot"
	DefaultTrustDomain    = "trustboot.local"
	DefaultStoreDir       = "/var/lib/trustboot/store"
	DefaultExchangeDir    = "/var/lib/trustboot/exchange"
	DefaultCANickname     = "ca"
	DefaultKeyBits        = 2048
	DefaultValidityMonths = 120
	DefaultPollInterval   = "2s"
	DefaultBundleTimeout  = "60s"
	DefaultCertTimeout    = "120s"
	DefaultIssueTimeout   = "120s"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"role":           "role",
	"hostname":       "hostname",
	"username":       "username",
	"trust-domain":   "trust_domain",
	"organization":   "organization",
	"store-dir":      "store.dir",
	"secret-file":    "store.secret_file",
	"exchange-dir":   "exchange.dir",
	"poll-interval":  "poll.interval",
	"metrics-file":   "metrics.textfile",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"authority-host": "authority_host",
	"inheritor-host": "inheritor_host",
}

// Loader assembles a Config from all sources.
type Loader struct {
	v         *viper.Viper
	validator *domain.Validator
}

// NewLoader returns a loader with defaults and environment binding in place.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v, validator: domain.NewValidator()}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("role", "")
	v.SetDefault("hostname", defaultHostname())
	v.SetDefault("username", os.Getenv("USER"))
	v.SetDefault("authority_host", "")
	v.SetDefault("inheritor_host", "")
	v.SetDefault("organization", DefaultOrganization)
	v.SetDefault("trust_domain", DefaultTrustDomain)
	v.SetDefault("store.dir", DefaultStoreDir)
	v.SetDefault("store.secret_file", "")
	v.SetDefault("exchange.dir", DefaultExchangeDir)
	v.SetDefault("nicknames.ca", DefaultCANickname)
	v.SetDefault("nicknames.own", "")
	v.SetDefault("key_bits", DefaultKeyBits)
	v.SetDefault("ca_validity_months", DefaultValidityMonths)
	v.SetDefault("cert_validity_months", DefaultValidityMonths)
	v.SetDefault("poll.interval", DefaultPollInterval)
	v.SetDefault("poll.bundle_timeout", DefaultBundleTimeout)
	v.SetDefault("poll.cert_timeout", DefaultCertTimeout)
	v.SetDefault("poll.issue_timeout", DefaultIssueTimeout)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

func defaultHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return strings.ToLower(h)
}

// BindFlags binds the flags of fs that correspond to configuration keys.
// Flags not set on the command line do not override other sources.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional YAML file at path and returns the validated
// configuration.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			return nil, classifyReadError(path, err)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		domain.RoleDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := l.v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, invalid(path, err)
	}
	cfg.applyDerived()

	if err := l.validator.Validate(cfg); err != nil {
		return nil, invalid(path, err)
	}
	return &cfg, nil
}

func classifyReadError(path string, err error) error {
	var notFound viper.ConfigFileNotFoundError
	switch {
	case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, path, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
}

// Load is a convenience for NewLoader().Load(path) without flags.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}
