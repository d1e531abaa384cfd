package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/store"
	"github.com/w-h-a/calls/store/storetest"
)

func TestFileStore(t *testing.T) {
	storetest.Run(t, NewStore(store.WithLocation(t.TempDir())))
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(store.WithLocation(dir))
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"metadata":`), 0o644))
	_, err := s.Load(ctx, "broken")
	require.ErrorIs(t, err, store.ErrCorrupt)

	invalid := `{"metadata":{"call_id":"bad_risk"},"transcript":"x","compliance_and_risk":{"required_phrases_present":[],"missing_required_phrases":[],"forbidden_phrases_detected":[],"pii_detected":[],"risk_level":"severe"},"raw_oracle_outputs":{}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_risk.json"), []byte(invalid), 0o644))
	_, err = s.Load(ctx, "bad_risk")
	require.ErrorIs(t, err, store.ErrCorrupt)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "renamed.json"), []byte(`{"metadata":{"call_id":"other"},"transcript":"x"}`), 0o644))
	_, err = s.Load(ctx, "renamed")
	require.ErrorIs(t, err, store.ErrCorrupt)
}

func TestFileStore_ListIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(store.WithLocation(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".x-123.tmp"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ids, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	s := NewStore(store.WithLocation(t.TempDir()))

	_, err := s.Load(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, store.ErrNotFound)
}
