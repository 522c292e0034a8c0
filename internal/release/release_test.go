package release

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), ".slipway", "releases.json"))
}

func TestLedger_ReadMissingFile(t *testing.T) {
	l := testLedger(t)

	h, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, h.Version)
	assert.Equal(t, 0, h.Serial)
	assert.Empty(t, h.Releases)
}

func TestLedger_AppendAssignsSerials(t *testing.T) {
	l := testLedger(t)

	first := &Release{Platform: "gcp", Service: "promptd", Image: "promptd:latest"}
	require.NoError(t, l.Append(first))
	assert.Equal(t, 1, first.Serial)
	assert.False(t, first.DeployedAt.IsZero())

	second := &Release{Platform: "gcp", Service: "promptd", Image: "promptd:latest", Digest: "sha256:abc"}
	require.NoError(t, l.Append(second))
	assert.Equal(t, 2, second.Serial)

	h, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, h.Serial)
	require.Len(t, h.Releases, 2)
	assert.Equal(t, 1, h.Releases[0].Serial)
	assert.Equal(t, "sha256:abc", h.Releases[1].Digest)
}

func TestLedger_AppendKeepsExplicitTimestamp(t *testing.T) {
	l := testLedger(t)
	deployed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rel := &Release{Platform: "aws", Service: "promptd", Image: "promptd:latest", DeployedAt: deployed}
	require.NoError(t, l.Append(rel))

	h, err := l.Read()
	require.NoError(t, err)
	assert.True(t, h.Releases[0].DeployedAt.Equal(deployed))
}

func TestLedger_ReadCorruptFile(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(l.path), 0755))
	require.NoError(t, os.WriteFile(l.path, []byte("{not json"), 0644))

	_, err := l.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse release history")
}

func TestLedger_LockConflict(t *testing.T) {
	l := testLedger(t)

	require.NoError(t, l.Lock())
	defer l.Unlock()

	err := l.Lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another deploy is in progress")
}

func TestLedger_UnlockAllowsRelock(t *testing.T) {
	l := testLedger(t)

	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}

func TestLedger_StaleLockIsTakenOver(t *testing.T) {
	l := testLedger(t)

	require.NoError(t, l.Lock())
	stale := time.Now().Add(-staleLockAge - time.Minute)
	require.NoError(t, os.Chtimes(l.lockPath(), stale, stale))

	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}

func TestLedger_UnlockWithoutLock(t *testing.T) {
	l := testLedger(t)
	assert.NoError(t, l.Unlock())
}
