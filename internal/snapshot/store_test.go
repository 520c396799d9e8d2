package snapshot

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-recommender/internal/dataset"
	"github.com/spigell/job-recommender/internal/similarity"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	users := &dataset.Users{Items: []*dataset.UserProfile{
		{ID: 3, Name: "Chi", Industry: "it", DesiredSalary: dataset.Known(20), Experience: dataset.Unknown()},
		{ID: 1, Name: "An", Industry: "kế toán", DesiredSalary: dataset.Unknown(), Experience: dataset.Known(1.5)},
	}}
	jobs := &dataset.Jobs{Items: []*dataset.JobPosting{
		{ID: 20, Title: "dev", Industry: "it", Salary: dataset.Known(25)},
		{ID: 10, Title: "kế toán viên", Industry: "kế toán"},
		{ID: 30, Title: "tester", Industry: "it", Experience: dataset.Known(0)},
	}}

	m := similarity.NewMatrix(2, 3)
	copy(m.Data, []float64{0.91, 0.1, 1.0 / 3, -0.02, 0.5, math.Nextafter(1, 0)})

	snap, err := New(users, jobs, similarity.DefaultWeights, m)
	require.NoError(t, err)
	return snap
}

func openStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "snapshots.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	snap := testSnapshot(t)

	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, snap.ID)
	require.NoError(t, err)

	assert.Equal(t, snap.ID, loaded.ID)
	assert.True(t, snap.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, snap.Weights, loaded.Weights)
	assert.Equal(t, []int64{3, 1}, loaded.Users.IDs())
	assert.Equal(t, []int64{20, 10, 30}, loaded.Jobs.IDs())
	assert.Equal(t, snap.Users.Items, loaded.Users.Items)
	assert.Equal(t, snap.Jobs.Items, loaded.Jobs.Items)
	assert.True(t, snap.Matrix.Equal(loaded.Matrix), "matrix must survive bit-for-bit")
}

func TestLatestAndList(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Latest(ctx)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	older := testSnapshot(t)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testSnapshot(t)

	require.NoError(t, store.Save(ctx, newer))
	require.NoError(t, store.Save(ctx, older))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, newer.ID, summaries[0].ID)
	assert.Equal(t, older.ID, summaries[1].ID)
	assert.Equal(t, 2, summaries[0].Users)
	assert.Equal(t, 3, summaries[0].Jobs)
	assert.Equal(t, similarity.DefaultWeights, summaries[0].Weights)
}

func TestLoadMissing(t *testing.T) {
	store := openStore(t)

	_, err := store.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestFailedSaveKeepsEarlierSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	snap := testSnapshot(t)
	require.NoError(t, store.Save(ctx, snap))

	// same id violates the primary key after the header insert attempt
	duplicate := testSnapshot(t)
	duplicate.ID = snap.ID
	require.Error(t, store.Save(ctx, duplicate))

	misaligned := testSnapshot(t)
	misaligned.Matrix = similarity.NewMatrix(1, 3)
	err := store.Save(ctx, misaligned)
	require.Error(t, err)
	assert.True(t, dataset.IsShapeError(err))

	loaded, err := store.Load(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, snap.Matrix.Equal(loaded.Matrix))

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	snap := testSnapshot(t)
	require.NoError(t, store.Save(ctx, snap))

	require.NoError(t, store.Delete(ctx, snap.ID))

	_, err := store.Load(ctx, snap.ID)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	err = store.Delete(ctx, snap.ID)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestNewRejectsMisalignedMatrix(t *testing.T) {
	users := &dataset.Users{Items: []*dataset.UserProfile{{ID: 1}}}
	jobs := &dataset.Jobs{Items: []*dataset.JobPosting{{ID: 1}}}

	_, err := New(users, jobs, similarity.DefaultWeights, similarity.NewMatrix(1, 2))
	require.Error(t, err)
	assert.True(t, dataset.IsShapeError(err))

	_, err = New(users, jobs, similarity.Weights{}, similarity.NewMatrix(1, 1))
	require.Error(t, err)
}

func TestRowCodec(t *testing.T) {
	row := []float64{0, -0.5, math.Inf(1), math.MaxFloat64, math.SmallestNonzeroFloat64}
	out := make([]float64, len(row))
	require.NoError(t, decodeRow(encodeRow(row), out))
	assert.Equal(t, row, out)

	assert.Error(t, decodeRow([]byte{1, 2, 3}, out))
}
