package similarity

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-recommender/internal/dataset"
)

func fixtureUsers() *dataset.Users {
	return &dataset.Users{Items: []*dataset.UserProfile{
		{
			ID:               1,
			Name:             "An",
			Industry:         "công nghệ thông tin",
			DesiredJob:       "lập trình viên backend",
			DesiredWorkplace: "Hà Nội",
			DesiredSalary:    dataset.Known(20),
			Experience:       dataset.Known(2),
			Skills:           "go python sql",
			Degree:           "cử nhân",
		},
		{
			ID:               2,
			Name:             "Bình",
			Industry:         "kế toán",
			DesiredJob:       "kế toán tổng hợp",
			DesiredWorkplace: "Đà Nẵng",
			DesiredSalary:    dataset.Unknown(),
			Experience:       dataset.Known(3),
			Skills:           "excel báo cáo thuế",
			Degree:           "thạc sĩ",
		},
	}}
}

func fixtureJobs() *dataset.Jobs {
	return &dataset.Jobs{Items: []*dataset.JobPosting{
		{
			ID:           10,
			Title:        "lập trình viên backend",
			Company:      "Acme",
			Industry:     "công nghệ thông tin",
			Address:      "Hà Nội",
			Salary:       dataset.Known(25),
			Experience:   dataset.Known(3),
			Requirements: "go python sql cử nhân",
		},
		{
			ID:           11,
			Title:        "kế toán viên",
			Company:      "Beta",
			Industry:     "kế toán",
			Address:      "Đà Nẵng",
			Salary:       dataset.Known(12),
			Experience:   dataset.Known(1),
			Requirements: "excel thuế kubernetes",
		},
		{
			ID:           12,
			Title:        "nhân viên kho",
			Company:      "Gamma",
			Industry:     "logistics",
			Address:      "Huế",
			Salary:       dataset.Unknown(),
			Experience:   dataset.Known(0),
			Requirements: "",
		},
	}}
}

func TestBuildShapeAndDeterminism(t *testing.T) {
	users, jobs := fixtureUsers(), fixtureJobs()

	first, err := Build(context.Background(), users, jobs, DefaultWeights)
	require.NoError(t, err)
	second, err := Build(context.Background(), users, jobs, DefaultWeights)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Rows)
	assert.Equal(t, 3, first.Cols)
	assert.Len(t, first.Data, 6)
	assert.Zero(t, first.NonFinite())
	assert.True(t, first.Equal(second), "repeated builds must be bit-identical")
}

func TestBuildBounds(t *testing.T) {
	users, jobs := fixtureUsers(), fixtureJobs()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		raw := make([]float64, 6)
		sum := 0.0
		for k := range raw {
			raw[k] = rng.Float64()
			sum += raw[k]
		}
		w := Weights{
			Industry:   raw[0] / sum,
			Job:        raw[1] / sum,
			Experience: raw[2] / sum,
			Salary:     raw[3] / sum,
			Skills:     raw[4] / sum,
			Degree:     raw[5] / sum,
		}

		m, err := Build(context.Background(), users, jobs, w)
		require.NoError(t, err)
		for _, v := range m.Data {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0+1e-9)
		}
	}
}

func TestComponents(t *testing.T) {
	users, jobs := fixtureUsers(), fixtureJobs()

	c, err := NewBuilder(nil).Components(context.Background(), users, jobs)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, c.Industry.At(0, 0), 1e-9, "identical industry text")
	assert.InDelta(t, 1.0, c.Job.At(0, 0), 1e-9, "identical title text")
	assert.Zero(t, c.Industry.At(0, 1))
	assert.Zero(t, c.Industry.At(0, 2), "job-only terms are out of vocabulary")
	assert.Zero(t, c.Skills.At(0, 2), "empty requirements project to a zero vector")

	// max known job salary is 25
	assert.InDelta(t, 1-5.0/25, c.Salary.At(0, 0), 1e-12)
	assert.InDelta(t, 1-8.0/25, c.Salary.At(0, 1), 1e-12)
	assert.Equal(t, 1.0, c.Salary.At(0, 2), "unknown job salary is neutral")
	assert.Equal(t, 1.0, c.Salary.At(1, 0), "unknown user salary is neutral")

	// max job experience is 3
	assert.InDelta(t, 1-1.0/3, c.Experience.At(0, 0), 1e-12)
	assert.InDelta(t, 1-2.0/3, c.Experience.At(1, 1), 1e-12)
	assert.InDelta(t, 0.0, c.Experience.At(1, 2), 1e-12)
}

func TestBlend(t *testing.T) {
	users, jobs := fixtureUsers(), fixtureJobs()

	c, err := NewBuilder(nil).Components(context.Background(), users, jobs)
	require.NoError(t, err)

	onlyIndustry := Weights{Industry: 1}
	m := c.Blend(onlyIndustry)
	assert.True(t, m.Equal(c.Industry))

	m = c.Blend(DefaultWeights)
	want := 0.3*c.Industry.At(1, 1) + 0.25*c.Job.At(1, 1) + 0.15*c.Experience.At(1, 1) +
		0.1*c.Salary.At(1, 1) + 0.15*c.Skills.At(1, 1) + 0.05*c.Degree.At(1, 1)
	assert.InDelta(t, want, m.At(1, 1), 1e-12)
}

func TestProximityIsNotClamped(t *testing.T) {
	m := proximity(
		[]dataset.Number{dataset.Known(30)},
		[]dataset.Number{dataset.Known(10), dataset.Unknown()},
	)
	assert.InDelta(t, -1.0, m.At(0, 0), 1e-12)
	assert.Equal(t, 1.0, m.At(0, 1))
}

func TestProximityDenominatorFloor(t *testing.T) {
	m := proximity(
		[]dataset.Number{dataset.Known(0.5)},
		[]dataset.Number{dataset.Known(0), dataset.Known(0.2)},
	)
	assert.InDelta(t, 0.5, m.At(0, 0), 1e-12)
	assert.InDelta(t, 0.7, m.At(0, 1), 1e-12)
}

func TestBuildFailures(t *testing.T) {
	t.Run("empty users", func(t *testing.T) {
		_, err := Build(context.Background(), &dataset.Users{}, fixtureJobs(), DefaultWeights)
		require.Error(t, err)
		assert.True(t, dataset.IsShapeError(err))
	})

	t.Run("empty jobs", func(t *testing.T) {
		_, err := Build(context.Background(), fixtureUsers(), &dataset.Jobs{}, DefaultWeights)
		require.Error(t, err)
		assert.True(t, dataset.IsShapeError(err))
	})

	t.Run("empty vocabulary", func(t *testing.T) {
		users := fixtureUsers()
		for _, u := range users.Items {
			u.Degree = "a"
		}
		_, err := Build(context.Background(), users, fixtureJobs(), DefaultWeights)
		require.Error(t, err)
		assert.True(t, dataset.IsShapeError(err))
		assert.Contains(t, err.Error(), "degree")
	})

	t.Run("invalid weights", func(t *testing.T) {
		_, err := Build(context.Background(), fixtureUsers(), fixtureJobs(), Weights{Industry: 0.5})
		require.Error(t, err)
		assert.True(t, dataset.IsShapeError(err))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Build(ctx, fixtureUsers(), fixtureJobs(), DefaultWeights)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestVectorizerVocabularyIsUserSideOnly(t *testing.T) {
	v, ok := Fit([]string{"go python", "go sql"})
	require.True(t, ok)
	assert.Equal(t, 3, v.Size())
	assert.True(t, v.Has("go"))
	assert.False(t, v.Has("kubernetes"))

	vectors := v.Transform([]string{"kubernetes docker", "go"})
	assert.Empty(t, vectors[0].Indices)
	assert.Zero(t, Cosine(vectors[0], vectors[1]))
}

func TestVectorizerIDF(t *testing.T) {
	v, ok := Fit([]string{"go python", "go sql"})
	require.True(t, ok)

	// "go" appears in both documents, "python" in one.
	goIDF := v.idf[v.vocabulary["go"]]
	pythonIDF := v.idf[v.vocabulary["python"]]
	assert.InDelta(t, 1.0, goIDF, 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, pythonIDF, 1e-12)

	vec := v.Transform([]string{"go python"})[0]
	norm := 0.0
	for _, val := range vec.Values {
		norm += val * val
	}
	assert.InDelta(t, 1.0, norm, 1e-12)
}

func TestFitEmpty(t *testing.T) {
	_, ok := Fit([]string{"", "a b c", "  "})
	assert.False(t, ok)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"công_nghệ", "thông", "tin", "cc"}, Tokenize("Công_nghệ Thông-tin a CC"))
	assert.Empty(t, Tokenize("a b - c"))
}

func TestWeightsFromMap(t *testing.T) {
	w, err := WeightsFromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights, w)

	w, err = WeightsFromMap(map[string]any{
		"industry":   "0.5",
		"job":        0.5,
		"experience": 0,
		"salary":     0,
		"skills":     0,
		"degree":     0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, w.Industry)
	assert.Equal(t, 0.5, w.Job)

	_, err = WeightsFromMap(map[string]any{"industry": 1, "bonus": 0})
	require.Error(t, err)
	assert.True(t, dataset.IsShapeError(err))

	_, err = WeightsFromMap(map[string]any{"industry": 0.6, "job": 0.6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestNewWeights(t *testing.T) {
	w, err := NewWeights(0.3, 0.25, 0.15, 0.1, 0.15, 0.05)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights, w)

	_, err = NewWeights(1.2, -0.2, 0, 0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")

	_, err = NewWeights(math.NaN(), 1, 0, 0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finite")
}
