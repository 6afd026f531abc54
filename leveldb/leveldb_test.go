package leveldb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

func TestDatabase(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "db"), 0, 0, false)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("a"))
	assert.True(t, IsNotFoundErr(err))

	require.NoError(t, db.Put([]byte("p:1"), []byte("one")))
	require.NoError(t, db.Put([]byte("p:2"), []byte("two")))
	require.NoError(t, db.Put([]byte("q:1"), []byte("other")))

	has, err := db.Has([]byte("p:1"))
	require.NoError(t, err)
	assert.True(t, has)

	iter := db.NewIterator([]byte("p:"), nil)
	var values []string
	for iter.Next() {
		values = append(values, string(iter.Value()))
	}
	iter.Release()
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"one", "two"}, values)

	batch := db.NewBatch()
	batch.Put([]byte("p:3"), []byte("three"))
	batch.Delete([]byte("p:1"))
	assert.Equal(t, 5+len("p:1"), batch.ValueSize())
	require.NoError(t, batch.Write())
	has, _ = db.Has([]byte("p:1"))
	assert.False(t, has)
}

func TestHistoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	store, err := OpenHistory(path, "calc-test")
	require.NoError(t, err)

	result := int64(15)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveSubmission(&types.SubmissionRecord{
			ID:        id,
			Address:   "alice",
			Opcode:    "Add",
			Status:    types.StatusSubmitted,
			Timestamp: int64(100 + i),
		}))
	}
	require.NoError(t, store.SaveSubmission(&types.SubmissionRecord{ID: "z", Address: "bob", Timestamp: 1}))

	// updating keeps a single index entry
	require.NoError(t, store.SaveSubmission(&types.SubmissionRecord{
		ID:        "b",
		Address:   "alice",
		Opcode:    "Add",
		Status:    types.StatusFinalized,
		Result:    &result,
		Timestamp: 101,
	}))

	rec, err := store.GetSubmission("b")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFinalized, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, result, *rec.Result)

	_, err = store.GetSubmission("missing")
	assert.Equal(t, types.ErrRecordNotFound, err)

	records, err := store.FindSubmissions("alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{records[0].ID, records[1].ID, records[2].ID})

	records, err = store.FindSubmissions("alice", 1, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)

	records, err = store.FindSubmissions("carol", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	require.NoError(t, store.Close())

	_, err = OpenHistory(path, "another")
	assert.True(t, errors.Is(err, ErrIdentifierMismatch))

	store, err = OpenHistory(path, "calc-test")
	require.NoError(t, err)
	defer store.Close()
	_, err = store.GetSubmission("a")
	assert.NoError(t, err)
}
