package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag-dev/coderag/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot(fingerprint string) *Snapshot {
	recs := []types.IndexRecord{
		{
			Chunk: types.CodeChunk{
				ID:         "c1",
				SourceFile: "module_a.py",
				Language:   types.LangPython,
				Ordinal:    0,
				StartLine:  1,
				EndLine:    8,
				Text:       "def a():\n    return eval(x)",
			},
			Meta: types.Metadata{
				ChunkID: "c1", FileName: "module_a.py",
				Language: types.LangPython, IssueCount: 2,
				ComplexityScore: 3.5, ChunkIndex: 0,
			},
			Vector:     []float32{0.6, 0.8, 0},
			BackendTag: types.CapabilityFeatureHeuristic,
		},
		{
			Chunk: types.CodeChunk{
				ID:              "c2",
				SourceFile:      "module_a.py",
				Language:        types.LangPython,
				Ordinal:         1,
				StartLine:       7,
				EndLine:         15,
				Text:            "def b():\n    return 2",
				OverlapWithPrev: true,
			},
			Meta: types.Metadata{
				ChunkID: "c2", FileName: "module_a.py",
				Language: types.LangPython, ChunkIndex: 1,
			},
			Vector:     []float32{0, 1, 0},
			BackendTag: types.CapabilityFeatureHeuristic,
		},
	}
	return &Snapshot{
		Fingerprint: fingerprint,
		BackendTag:  types.CapabilityFeatureHeuristic,
		Dimension:   3,
		Vocabulary:  map[string]int{"def": 0, "return": 1, "eval": 2},
		Records:     recs,
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testSnapshot("fp-roundtrip")
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx, "fp-roundtrip")
	require.NoError(t, err)

	assert.Equal(t, want.BackendTag, got.BackendTag)
	assert.Equal(t, want.Dimension, got.Dimension)
	assert.Equal(t, want.Vocabulary, got.Vocabulary)
	require.Len(t, got.Records, len(want.Records))

	for i := range want.Records {
		assert.Equal(t, want.Records[i].Chunk, got.Records[i].Chunk)
		assert.Equal(t, want.Records[i].Meta, got.Records[i].Meta)
		assert.Equal(t, want.Records[i].Vector, got.Records[i].Vector)
		assert.Equal(t, want.Records[i].BackendTag, got.Records[i].BackendTag)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "never-saved")
	assert.ErrorIs(t, err, types.ErrSnapshotNotFound)
}

func TestStore_SaveReplacesPrior(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testSnapshot("fp-replace")
	require.NoError(t, store.Save(ctx, first))

	second := testSnapshot("fp-replace")
	second.Records = second.Records[:1]
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx, "fp-replace")
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)
}

func TestStore_SchemaVersionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("fp-version")))

	_, err := store.db.Exec(`UPDATE snapshots SET schema_version = '0' WHERE fingerprint = ?`, "fp-version")
	require.NoError(t, err)

	_, err = store.Load(ctx, "fp-version")
	assert.ErrorIs(t, err, types.ErrSnapshotNotFound)
}

func TestStore_CorruptVocabulary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("fp-corrupt")))

	_, err := store.db.Exec(`UPDATE snapshots SET vocabulary = X'DEADBEEF' WHERE fingerprint = ?`, "fp-corrupt")
	require.NoError(t, err)

	_, err = store.Load(ctx, "fp-corrupt")
	assert.ErrorIs(t, err, types.ErrSnapshotNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSnapshot("fp-delete")))
	assert.True(t, store.Has(ctx, "fp-delete"))

	require.NoError(t, store.Delete(ctx, "fp-delete"))
	assert.False(t, store.Has(ctx, "fp-delete"))

	_, err := store.Load(ctx, "fp-delete")
	assert.ErrorIs(t, err, types.ErrSnapshotNotFound)
}

func TestStore_NilVectorRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := testSnapshot("fp-keyword")
	snap.BackendTag = types.CapabilityKeywordOnly
	snap.Dimension = 0
	snap.Vocabulary = nil
	for i := range snap.Records {
		snap.Records[i].Vector = nil
		snap.Records[i].BackendTag = types.CapabilityKeywordOnly
	}
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, "fp-keyword")
	require.NoError(t, err)
	for _, rec := range got.Records {
		assert.Nil(t, rec.Vector)
	}
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	now := time.Now()
	a := StateOf("a.py", []byte("x = 1"), now)
	b := StateOf("b.py", []byte("y = 2"), now)

	base := Fingerprint([]FileState{a, b})

	changed := StateOf("a.py", []byte("x = 99"), now)
	assert.NotEqual(t, base, Fingerprint([]FileState{changed, b}))

	// Same states in a different order produce the same fingerprint.
	assert.Equal(t, base, Fingerprint([]FileState{b, a}))
}

func TestFingerprint_SensitiveToModTime(t *testing.T) {
	now := time.Now()
	a := StateOf("a.py", []byte("x = 1"), now)
	later := StateOf("a.py", []byte("x = 1"), now.Add(time.Second))

	assert.NotEqual(t,
		Fingerprint([]FileState{a}),
		Fingerprint([]FileState{later}))
}

func TestVectorCodec(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	assert.Equal(t, vec, deserializeVector(serializeVector(vec)))
	assert.Nil(t, serializeVector(nil))
	assert.Nil(t, deserializeVector(nil))
}
