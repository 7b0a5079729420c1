package backend

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag-dev/coderag/internal/embedder"
	"github.com/coderag-dev/coderag/pkg/types"
)

func chunkRecord(id, file, text string, ordinal int) types.IndexRecord {
	return types.IndexRecord{
		Chunk: types.CodeChunk{
			ID: id, SourceFile: file, Language: types.LangPython,
			Ordinal: ordinal, StartLine: 1, EndLine: 1, Text: text,
		},
		Meta: types.Metadata{
			ChunkID: id, FileName: file,
			Language: types.LangPython, ChunkIndex: ordinal,
		},
	}
}

func addViaBackend(t *testing.T, b Backend, recs ...types.IndexRecord) {
	t.Helper()
	for i := range recs {
		vec, err := b.EmbedChunk(context.Background(), recs[i].Chunk.Text)
		require.NoError(t, err)
		recs[i].Vector = vec
		recs[i].BackendTag = b.Capability()
	}
	require.NoError(t, b.Add(recs))
}

func TestVectorBackend_FeatureSearchFindsRiskyCode(t *testing.T) {
	b := newVectorBackend(embedder.NewFeatureEmbedder(embedder.NewCache(128)))
	defer func() { _ = b.Close() }()

	addViaBackend(t, b,
		chunkRecord("risky", "loader.py", "def load(data):\n    return pickle.loads(data)", 0),
		chunkRecord("plain", "mathutil.py", "def add(a, b):\n    return a + b", 0),
	)
	b.Freeze()

	result, err := b.Search(context.Background(), "unsafe deserialization with pickle.loads", 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "risky", result[0].Record.Chunk.ID)
	assert.Greater(t, result[0].Score, result[1].Score)
}

func TestVectorBackend_RestoreRebuildsVocabulary(t *testing.T) {
	src := newVectorBackend(embedder.NewFeatureEmbedder(embedder.NewCache(128)))
	addViaBackend(t, src, chunkRecord("c1", "a.py", "def handler(request):\n    return request.body", 0))
	src.Freeze()

	restored := newVectorBackend(embedder.NewFeatureEmbedder(embedder.NewCache(128)))
	require.NoError(t, restored.Restore(src.Records(), src.Vocabulary()))

	assert.Equal(t, src.Size(), restored.Size())
	assert.Equal(t, src.Vocabulary(), restored.Vocabulary())

	// Identical queries score identically against the restored index.
	want, err := src.Search(context.Background(), "request handler", 1)
	require.NoError(t, err)
	got, err := restored.Search(context.Background(), "request handler", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].Record.Chunk.ID, got[0].Record.Chunk.ID)
	assert.InDelta(t, want[0].Score, got[0].Score, 1e-6)
}

func TestKeywordBackend_OverlapScoring(t *testing.T) {
	b := newKeywordBackend()

	addViaBackend(t, b,
		chunkRecord("conn", "db.py", "def connect(dsn):\n    return psycopg2.connect(dsn)", 0),
		chunkRecord("query", "db.py", "def query(conn, sql):\n    return conn.execute(sql)", 1),
		chunkRecord("other", "ui.py", "def render(template):\n    return template.format()", 0),
	)

	result, err := b.Search(context.Background(), "execute sql query", 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "query", result[0].Record.Chunk.ID)
	assert.InDelta(t, 1.0, result[0].Score, 1e-6)
}

func TestKeywordBackend_NoOverlapIsEmpty(t *testing.T) {
	b := newKeywordBackend()
	addViaBackend(t, b, chunkRecord("c1", "a.py", "def add(a, b):\n    return a + b", 0))

	result, err := b.Search(context.Background(), "websocket frame parsing", 5)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestKeywordBackend_TieBreakByInsertionOrder(t *testing.T) {
	b := newKeywordBackend()
	addViaBackend(t, b,
		chunkRecord("first", "a.py", "def parse(data): pass", 0),
		chunkRecord("second", "b.py", "def parse(data): pass", 0),
	)

	result, err := b.Search(context.Background(), "parse data", 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "first", result[0].Record.Chunk.ID)
	assert.Equal(t, "second", result[1].Record.Chunk.ID)
}

func TestKeywordBackend_IdempotentAdd(t *testing.T) {
	b := newKeywordBackend()
	rec := chunkRecord("c1", "a.py", "def connect(): pass", 0)

	addViaBackend(t, b, rec)
	addViaBackend(t, b, rec)
	assert.Equal(t, 1, b.Size())

	// Replacement updates the token set in place.
	updated := rec
	updated.Chunk.Text = "def disconnect(): pass"
	addViaBackend(t, b, updated)
	assert.Equal(t, 1, b.Size())

	result, err := b.Search(context.Background(), "disconnect", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
}

func TestKeywordBackend_KLimitsResults(t *testing.T) {
	b := newKeywordBackend()
	for i := 0; i < 5; i++ {
		addViaBackend(t, b, chunkRecord(
			fmt.Sprintf("c%d", i), "a.py", "def handler(): pass", i))
	}

	result, err := b.Search(context.Background(), "handler", 3)
	require.NoError(t, err)
	assert.Len(t, result, 3)

	result, err = b.Search(context.Background(), "handler", 0)
	require.NoError(t, err)
	assert.Empty(t, result)
}
