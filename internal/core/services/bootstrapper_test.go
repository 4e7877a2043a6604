package services

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/errors"
)

func newTestBootstrapper(t *testing.T, role domain.Role, st *MockStore, ch *memChannel, opts ...BootstrapperOption) *Bootstrapper {
	t.Helper()
	b, err := NewBootstrapper(testSettings(role), st, ch, opts...)
	require.NoError(t, err)
	return b
}

func TestNewBootstrapper_Validation(t *testing.T) {
	s := testSettings(domain.RoleAuthority)
	s.KeyBits = 1024
	_, err := NewBootstrapper(s, &MockStore{}, newMemChannel())
	require.Error(t, err)
	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "key_bits", verr.Field)

	_, err = NewBootstrapper(testSettings(domain.RoleLeaf), nil, newMemChannel())
	assert.Error(t, err)
}

func TestEnsureStore_ExistingIsNoop(t *testing.T) {
	st := &MockStore{}
	st.On("Create", mock.Anything).Return(false, nil)
	b := newTestBootstrapper(t, domain.RoleLeaf, st, newMemChannel())

	require.NoError(t, b.EnsureStore(context.Background()))
	assert.Equal(t, domain.StateStoreCreated, b.State())
	st.AssertExpectations(t)
}

func TestEnsureStore_Unavailable(t *testing.T) {
	st := &MockStore{}
	st.On("Create", mock.Anything).Return(false, errors.Newf(errors.ErrStoreUnavailable, "disk gone"))
	b := newTestBootstrapper(t, domain.RoleLeaf, st, newMemChannel())

	err := b.EnsureStore(context.Background())
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
	assert.Equal(t, domain.StateUninitialized, b.State())
}

func TestEnsureAuthorityMaterial_Authority(t *testing.T) {
	ctx := context.Background()

	t.Run("generates a missing CA", func(t *testing.T) {
		st := &MockStore{}
		st.On("Exists", mock.Anything, "ca").Return(false, nil)
		st.On("GenerateSelfSigned", mock.Anything, mock.MatchedBy(func(spec domain.CertSpec) bool {
			return spec.Nickname == "ca" && spec.Usage == domain.UsageCA &&
				spec.Trust == domain.TrustIssuer && spec.ValidityMonths == 120 && spec.KeyBits >= domain.MinKeyBits
		})).Return(nil)
		b := newTestBootstrapper(t, domain.RoleAuthority, st, newMemChannel())

		require.NoError(t, b.EnsureAuthorityMaterial(ctx))
		assert.Equal(t, domain.StateAuthorityMaterialPresent, b.State())
		st.AssertExpectations(t)
	})

	t.Run("leaves an existing CA untouched", func(t *testing.T) {
		st := &MockStore{}
		st.On("Exists", mock.Anything, "ca").Return(true, nil)
		b := newTestBootstrapper(t, domain.RoleAuthority, st, newMemChannel())

		require.NoError(t, b.EnsureAuthorityMaterial(ctx))
		st.AssertNotCalled(t, "GenerateSelfSigned", mock.Anything, mock.Anything)
		st.AssertNotCalled(t, "SetTrust", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEnsureAuthorityMaterial_Inheritor(t *testing.T) {
	ctx := context.Background()

	t.Run("imports bundle and asserts trust", func(t *testing.T) {
		ch := newMemChannel()
		ch.put(domain.ArtifactCABundlePassword, []byte("one-time\n"))
		ch.put(domain.ArtifactCABundle, []byte("p12"))
		st := &MockStore{}
		st.On("Exists", mock.Anything, "ca").Return(false, nil)
		st.On("ImportBundle", mock.Anything, "ca", []byte("p12"), "one-time").Return(nil)
		st.On("SetTrust", mock.Anything, "ca", domain.TrustIssuer).Return(nil)
		b := newTestBootstrapper(t, domain.RoleInheritor, st, ch)

		require.NoError(t, b.EnsureAuthorityMaterial(ctx))
		st.AssertExpectations(t)
	})

	t.Run("re-asserts trust on an existing CA", func(t *testing.T) {
		st := &MockStore{}
		st.On("Exists", mock.Anything, "ca").Return(true, nil)
		st.On("SetTrust", mock.Anything, "ca", domain.TrustIssuer).Return(nil)
		b := newTestBootstrapper(t, domain.RoleInheritor, st, newMemChannel())

		require.NoError(t, b.EnsureAuthorityMaterial(ctx))
		st.AssertNotCalled(t, "ImportBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bundle never published", func(t *testing.T) {
		ch := newMemChannel()
		st := &MockStore{}
		st.On("Exists", mock.Anything, "ca").Return(false, nil)
		b := newTestBootstrapper(t, domain.RoleInheritor, st, ch)

		err := b.EnsureAuthorityMaterial(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrArtifactNotReady)
		assert.Equal(t, 5, ch.attemptsFor(domain.ArtifactCABundle))
		assert.Equal(t, domain.StateUninitialized, b.State())
	})
}

func TestEnsureAuthorityMaterial_LeafImportsWithoutKey(t *testing.T) {
	ctx := context.Background()
	ch := newMemChannel()
	ch.put(domain.ArtifactCACert, []byte("pem"))
	st := &MockStore{}
	st.On("Exists", mock.Anything, "ca").Return(false, nil)
	st.On("ImportCertificate", mock.Anything, "ca", []byte("pem"), domain.TrustIssuer).Return(nil)
	b := newTestBootstrapper(t, domain.RoleLeaf, st, ch)

	require.NoError(t, b.EnsureAuthorityMaterial(ctx))
	st.AssertExpectations(t)
	st.AssertNotCalled(t, "ImportBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, ch.attemptsFor(domain.ArtifactCABundle), "leaf must not look at the bundle")
}

func TestEnsureOwnCertificate_SignsLocally(t *testing.T) {
	ctx := context.Background()
	st := &MockStore{}
	st.On("Exists", mock.Anything, "vault").Return(false, nil)
	st.On("GenerateSigned", mock.Anything, mock.MatchedBy(func(spec domain.CertSpec) bool {
		return spec.Nickname == "vault" && spec.Usage == domain.UsageServer && spec.Trust == domain.TrustEndEntity
	}), "ca").Return(nil)
	b := newTestBootstrapper(t, domain.RoleInheritor, st, newMemChannel())

	require.NoError(t, b.EnsureOwnCertificate(ctx))
	assert.Equal(t, domain.StateOwnCertificateIssued, b.State())
	st.AssertExpectations(t)
}

func TestEnsureOwnCertificate_LeafRequestTimesOut(t *testing.T) {
	ctx := context.Background()
	s := testSettings(domain.RoleLeaf)
	spec, err := s.OwnSpec()
	require.NoError(t, err)
	csrPEM, csr := testRequest(t, spec.Subject)

	ch := newMemChannel()
	st := &MockStore{}
	st.On("Exists", mock.Anything, "client").Return(false, nil)
	st.On("GenerateRequest", mock.Anything, mock.Anything).Return(csrPEM, nil)
	b := newTestBootstrapper(t, domain.RoleLeaf, st, ch)

	err = b.EnsureOwnCertificate(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotReady)

	id := requestID(csr)
	published, ok, err := ch.Read(ctx, domain.RequestArtifact(id))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, csrPEM, published)
	st.AssertNotCalled(t, "ImportIssued", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportIfAuthority(t *testing.T) {
	ctx := context.Background()

	t.Run("non-authority roles skip", func(t *testing.T) {
		st := &MockStore{}
		ch := newMemChannel()
		b := newTestBootstrapper(t, domain.RoleInheritor, st, ch)

		require.NoError(t, b.ExportIfAuthority(ctx))
		assert.Empty(t, ch.published)
		st.AssertNotCalled(t, "ExportBundle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("password is published before bundle", func(t *testing.T) {
		st := &MockStore{}
		st.On("Exists", mock.Anything, "gateway").Return(true, nil)
		st.On("ExportCertificate", mock.Anything, "ca").Return([]byte("pem"), nil)
		st.On("ExportBundle", mock.Anything, "ca", "fixed-password").Return([]byte("p12"), nil)
		ch := newMemChannel()
		b := newTestBootstrapper(t, domain.RoleAuthority, st, ch,
			WithPasswordSource(func() (string, error) { return "fixed-password", nil }))

		require.NoError(t, b.ExportIfAuthority(ctx))
		assert.Equal(t, []domain.ArtifactKey{
			domain.ArtifactCACert,
			domain.ArtifactCABundlePassword,
			domain.ArtifactCABundle,
		}, ch.published)

		// Second run publishes nothing new.
		require.NoError(t, b.ExportIfAuthority(ctx))
		assert.Len(t, ch.published, 3)
		st.AssertNumberOfCalls(t, "ExportBundle", 1)
	})

	t.Run("restart reuses the published password", func(t *testing.T) {
		st := &MockStore{}
		st.On("Exists", mock.Anything, "gateway").Return(true, nil)
		st.On("ExportCertificate", mock.Anything, "ca").Return([]byte("pem"), nil)
		st.On("ExportBundle", mock.Anything, "ca", "from-first-run").Return([]byte("p12"), nil)
		ch := newMemChannel()
		ch.put(domain.ArtifactCABundlePassword, []byte("from-first-run\n"))
		b := newTestBootstrapper(t, domain.RoleAuthority, st, ch,
			WithPasswordSource(func() (string, error) { return "", stderrors.New("must not be called") }))

		require.NoError(t, b.ExportIfAuthority(ctx))
		st.AssertExpectations(t)
	})

	t.Run("requires own certificate", func(t *testing.T) {
		st := &MockStore{}
		st.On("Exists", mock.Anything, "gateway").Return(false, nil)
		b := newTestBootstrapper(t, domain.RoleAuthority, st, newMemChannel())

		err := b.ExportIfAuthority(ctx)
		assert.ErrorIs(t, err, errors.ErrExportFailed)
	})
}

func TestRun_StepErrorsNameTheStep(t *testing.T) {
	ctx := context.Background()
	st := &MockStore{}
	st.On("Create", mock.Anything).Return(true, nil)
	st.On("Exists", mock.Anything, "ca").Return(false, nil)
	m := &recordingMetrics{}
	b := newTestBootstrapper(t, domain.RoleLeaf, st, newMemChannel(), WithMetrics(m))

	report, err := b.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, errors.ErrArtifactNotReady)
	assert.Contains(t, err.Error(), StepEnsureAuthorityMaterial)
	assert.Equal(t, []string{StepEnsureStore, StepEnsureAuthorityMaterial}, m.steps)
	assert.Equal(t, []bool{false}, m.outcomes)
	assert.Equal(t, domain.StateStoreCreated, b.State())
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &MockStore{}
	st.On("Create", mock.Anything).Return(true, nil)
	st.On("Exists", mock.Anything, "ca").Return(false, nil)
	b := newTestBootstrapper(t, domain.RoleInheritor, st, newMemChannel())

	_, err := b.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errors.ErrArtifactNotReady)
}
