package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
)

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"valid", func(*Settings) {}, ""},
		{"unknown role", func(s *Settings) { s.Role = "observer" }, "role"},
		{"bad CA nickname", func(s *Settings) { s.CANickname = "../ca" }, "nicknames.ca"},
		{"nickname clash", func(s *Settings) { s.OwnNickname = s.CANickname }, "nicknames.own"},
		{"weak key", func(s *Settings) { s.KeyBits = 1024 }, "key_bits"},
		{"zero CA validity", func(s *Settings) { s.CAValidityMonths = 0 }, "ca_validity_months"},
		{"zero interval", func(s *Settings) { s.PollInterval = 0 }, "poll.interval"},
		{"timeout below interval", func(s *Settings) { s.CertTimeout = time.Millisecond }, "poll.cert_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(domain.RoleLeaf)
			tt.mutate(&s)
			err := s.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *errors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSettings_Specs(t *testing.T) {
	s := testSettings(domain.RoleAuthority)

	ca, err := s.CASpec()
	require.NoError(t, err)
	assert.Equal(t, domain.UsageCA, ca.Usage)
	assert.Equal(t, "Example CA", ca.Subject.CommonName)
	require.NoError(t, ca.Validate())

	own, err := s.OwnSpec()
	require.NoError(t, err)
	assert.Equal(t, domain.UsageServer, own.Usage)
	assert.Equal(t, "node.example.test", own.Subject.CommonName)
	assert.Equal(t, domain.TrustEndEntity, own.Trust)

	leaf, err := testSettings(domain.RoleLeaf).OwnSpec()
	require.NoError(t, err)
	assert.Equal(t, domain.UsageClient, leaf.Usage)
	assert.Equal(t, "alice", leaf.Subject.CommonName)
	assert.Empty(t, leaf.Subject.DNSNames)
	require.Len(t, leaf.Subject.URIs, 1)
	assert.Equal(t, "spiffe://example.test/leaf/alice", leaf.Subject.URIs[0].String())
}
