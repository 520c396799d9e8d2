package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcludedJobsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")

	excluded, err := LoadExcludedJobs(path)
	require.NoError(t, err)
	assert.Empty(t, excluded.Items)

	shown := []*JobPosting{
		{ID: 10, Title: "lập trình viên go", Company: "FPT"},
		{ID: 11, Title: "kỹ sư dữ liệu", Company: "VNG"},
	}
	excluded.Append(ToExcluded(1, shown))
	excluded.Append(ToExcluded(1, []*JobPosting{{ID: 11, Title: "duplicate"}, {ID: 12}}))
	excluded.Append(ToExcluded(2, []*JobPosting{{ID: 10}}))
	require.NoError(t, excluded.ToFile(path))

	loaded, err := LoadExcludedJobs(path)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 4)
	assert.Equal(t, int64(10), loaded.Items[0].ID)
	assert.Equal(t, "FPT", loaded.Items[0].Company)
	assert.Equal(t, "kỹ sư dữ liệu", loaded.Items[1].Title)
	assert.False(t, loaded.Items[0].ExcludedAt.IsZero())
	assert.Equal(t, int64(1), loaded.Items[0].UserID)
	assert.Equal(t, map[int64]struct{}{10: {}, 11: {}, 12: {}}, loaded.IDsFor(1))
	assert.Equal(t, map[int64]struct{}{10: {}}, loaded.IDsFor(2))
	assert.Empty(t, loaded.IDsFor(3))
}

func TestExcludedJobsWithoutUserApplyToEveryone(t *testing.T) {
	excluded := &ExcludedJobs{Items: []*ExcludedJob{{ID: 5}, {UserID: 2, ID: 6}}}

	assert.Equal(t, map[int64]struct{}{5: {}}, excluded.IDsFor(1))
	assert.Equal(t, map[int64]struct{}{5: {}, 6: {}}, excluded.IDsFor(2))
}
