package identity

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolver_HardwareSerial(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted serial is digested", func(t *testing.T) {
		m := NewMockPlatform(t.TempDir())
		m.SerialValue = "R58M123XYZ"

		id, err := NewResolver(m).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, SourceHardwareSerial, id.Source)
		require.Equal(t, CanonicalID("R58M123XYZ"), id.ID)
		require.NotContains(t, id.ID, "R58M123XYZ")
		require.Zero(t, m.SecureIDCalls.Load())
	})

	t.Run("same serial gives same id across resolvers", func(t *testing.T) {
		m1 := NewMockPlatform(t.TempDir())
		m1.SerialValue = "HT7A1JT01234"
		m2 := NewMockPlatform(t.TempDir())
		m2.SerialValue = "HT7A1JT01234"

		id1, err := NewResolver(m1).Resolve(ctx)
		require.NoError(t, err)
		id2, err := NewResolver(m2).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, id1, id2)
	})

	t.Run("deny-listed serial falls through", func(t *testing.T) {
		m := NewMockPlatform(t.TempDir())
		m.SerialValue = "ABC-DEAD00BEEF-01"
		m.SecureIDValue = "3f1c2a7b9d0e4c55"

		id, err := NewResolver(m).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, SourcePlatformSecureID, id.Source)
		require.Equal(t, CanonicalID("3f1c2a7b9d0e4c55"), id.ID)
	})

	t.Run("unsupported serial falls through", func(t *testing.T) {
		m := NewMockPlatform(t.TempDir())
		m.SerialErr = ErrNotSupported
		m.SecureIDValue = "3f1c2a7b9d0e4c55"

		id, err := NewResolver(m).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, SourcePlatformSecureID, id.Source)
	})
}

func TestResolver_SecureIDFallsBackToInstallation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m := NewMockPlatform(dir)
	m.SecureIDValue = "3f1c2a7b" // shorter than the sentinel

	r := NewResolver(m)
	id, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceInstallation, id.Source)

	data, err := os.ReadFile(filepath.Join(dir, InstallationFileName))
	require.NoError(t, err)
	require.Equal(t, string(data), id.ID)

	again, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, id, again)

	// A fresh source in the same process must read, not regenerate.
	fresh, err := NewInstallationSource(dir, nil).Try(ctx)
	require.NoError(t, err)
	require.Equal(t, id.ID, fresh)
}

func TestResolver_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMockPlatform(t.TempDir())

	r := NewResolver(m)
	first, err := r.Resolve(ctx)
	require.NoError(t, err)
	second, err := r.Resolve(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int32(1), m.SerialCalls.Load())
}

func TestResolver_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	before, err := NewResolver(NewMockPlatform(dir)).Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceInstallation, before.Source)

	after, err := NewResolver(NewMockPlatform(dir)).Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestResolver_ConcurrentFirstResolve(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := NewResolver(NewMockPlatform(dir))

	const callers = 16
	ids := make([]Identity, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = r.Resolve(ctx)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestResolver_IdentityUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("missing files dir", func(t *testing.T) {
		m := NewMockPlatform(filepath.Join(t.TempDir(), "does-not-exist"))

		_, err := NewResolver(m).Resolve(ctx)
		require.ErrorIs(t, err, ErrIdentityUnavailable)
	})

	t.Run("failure is not cached", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "files")
		r := NewResolver(NewMockPlatform(dir))

		_, err := r.Resolve(ctx)
		require.ErrorIs(t, err, ErrIdentityUnavailable)

		require.NoError(t, os.Mkdir(dir, 0o700))
		id, err := r.Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, SourceInstallation, id.Source)
	})

	t.Run("empty chain", func(t *testing.T) {
		r := NewResolver(NewMockPlatform(t.TempDir()), WithSources())
		_, err := r.Resolve(ctx)
		require.ErrorIs(t, err, ErrIdentityUnavailable)
	})
}

type stubSource struct {
	kind SourceKind
	raw  string
	err  error
}

func (s stubSource) Kind() SourceKind { return s.kind }

func (s stubSource) Try(context.Context) (string, error) { return s.raw, s.err }

func TestResolver_CustomSources(t *testing.T) {
	ctx := context.Background()
	m := NewMockPlatform(t.TempDir())

	t.Run("unknown errors are skipped", func(t *testing.T) {
		r := NewResolver(m, WithSources(
			stubSource{kind: SourceHardwareSerial, err: errors.New("ioctl failed")},
			stubSource{kind: SourcePlatformSecureID, raw: "abc"},
		))
		id, err := r.Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, CanonicalID("abc"), id.ID)
	})

	t.Run("fatal error stops the chain", func(t *testing.T) {
		r := NewResolver(m, WithSources(
			stubSource{kind: SourceInstallation, err: ErrIdentityUnavailable},
			stubSource{kind: SourcePlatformSecureID, raw: "abc"},
		))
		_, err := r.Resolve(ctx)
		require.ErrorIs(t, err, ErrIdentityUnavailable)
	})
}

func TestResolver_SentinelOption(t *testing.T) {
	m := NewMockPlatform(t.TempDir())
	m.SecureIDValue = PlaceholderProductUUID

	id, err := NewResolver(m, WithSecureIDSentinel(PlaceholderProductUUID)).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, SourceInstallation, id.Source)
}

func TestResolver_PinnedIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("survives a source becoming unreadable", func(t *testing.T) {
		dir := t.TempDir()
		root := NewMockPlatform(dir)
		root.SerialValue = "R58M123XYZ"

		first, err := NewResolver(root).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, SourceHardwareSerial, first.Source)
		require.FileExists(t, filepath.Join(dir, PinFileName))

		// An unprivileged run cannot read the serial but sees a secure id.
		user := NewMockPlatform(dir)
		user.SerialErr = fs.ErrPermission
		user.SecureIDValue = "3f1c2a7b9d0e4c55"

		second, err := NewResolver(user).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Zero(t, user.SerialCalls.Load())
		require.Zero(t, user.SecureIDCalls.Load())
	})

	t.Run("installation identity is not pinned", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewResolver(NewMockPlatform(dir)).Resolve(ctx)
		require.NoError(t, err)
		require.NoFileExists(t, filepath.Join(dir, PinFileName))
	})

	t.Run("corrupt pin is replaced", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, PinFileName), []byte("{garbage"), 0o644))

		m := NewMockPlatform(dir)
		m.SerialValue = "R58M123XYZ"
		id, err := NewResolver(m).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, CanonicalID("R58M123XYZ"), id.ID)

		pinned, state, err := loadPin(filepath.Join(dir, PinFileName))
		require.NoError(t, err)
		require.Equal(t, pinValid, state)
		require.Equal(t, id, pinned)
	})

	t.Run("unreadable pin is fatal", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, PinFileName), 0o700))

		m := NewMockPlatform(dir)
		m.SerialValue = "R58M123XYZ"
		_, err := NewResolver(m).Resolve(ctx)
		require.ErrorIs(t, err, ErrIdentityUnavailable)
	})

	t.Run("missing files dir still resolves hardware ids", func(t *testing.T) {
		m := NewMockPlatform(filepath.Join(t.TempDir(), "does-not-exist"))
		m.SerialValue = "R58M123XYZ"

		id, err := NewResolver(m).Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, SourceHardwareSerial, id.Source)
	})

	t.Run("concurrent first runs agree", func(t *testing.T) {
		dir := t.TempDir()
		const callers = 8
		ids := make([]Identity, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m := NewMockPlatform(dir)
				if i%2 == 0 {
					m.SerialValue = "R58M123XYZ"
				} else {
					m.SecureIDValue = "3f1c2a7b9d0e4c55"
				}
				ids[i], errs[i] = NewResolver(m).Resolve(ctx)
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			require.Equal(t, ids[0], ids[i])
		}
	})
}
