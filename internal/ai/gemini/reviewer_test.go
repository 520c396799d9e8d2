package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/dataset"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func reviewRequest() ai.Request {
	return ai.Request{
		User: &dataset.UserProfile{
			ID:            1,
			Name:          "An",
			Industry:      "it",
			DesiredJob:    "developer",
			DesiredSalary: dataset.Known(20),
			Experience:    dataset.Unknown(),
		},
		Job: &dataset.JobPosting{
			ID:     101,
			Title:  "backend developer",
			Salary: dataset.Known(25),
		},
		Score:  0.88,
		Reason: "Vị trí gần (hanoi)",
	}
}

func TestReviewerReview(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": true, "score": 0.9, "comment": "Phù hợp"}`}
	reviewer := NewReviewer(stub, zap.NewNop(), 0)

	assessment, err := reviewer.Review(context.Background(), reviewRequest())
	require.NoError(t, err)

	assert.True(t, assessment.Fit)
	assert.Equal(t, 0.9, assessment.Score)
	assert.Equal(t, "Phù hợp", assessment.Comment)
	assert.Equal(t, stub.response, assessment.Raw)
	assert.Equal(t, systemPrompt, stub.lastSystem)
	assert.NotEmpty(t, systemPrompt)

	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(stub.lastMessage), &payload))
	assert.Equal(t, "backend developer", payload["job"]["title"])
	assert.Nil(t, payload["user"]["experience"], "unknown values are sent as null")
	assert.Equal(t, 0.88, payload["recommendation"]["score"])
	assert.Equal(t, "Vị trí gần (hanoi)", payload["recommendation"]["reason"])
}

func TestReviewerSanitizesNonFiniteScore(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": false, "score": 0}`}
	req := reviewRequest()
	req.Score = math.NaN()

	_, err := NewReviewer(stub, nil, 0).Review(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, stub.lastMessage, `"score": 0`)
}

func TestReviewerErrors(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	reviewer := NewReviewer(stub, zap.NewNop(), 10)

	_, err := reviewer.Review(context.Background(), reviewRequest())
	assert.EqualError(t, err, "boom")

	_, err = reviewer.Review(context.Background(), ai.Request{Job: &dataset.JobPosting{ID: 1}})
	assert.Error(t, err)

	_, err = reviewer.Review(context.Background(), ai.Request{User: &dataset.UserProfile{ID: 1}})
	assert.Error(t, err)

	stub.err = nil
	stub.response = "not json at all"
	_, err = reviewer.Review(context.Background(), reviewRequest())
	assert.Error(t, err)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		fit     bool
		score   float64
		comment string
	}{
		{
			name:    "code block",
			raw:     "```json\n{\"fit\": true, \"score\": \"0.8\", \"comment\": \"Tốt\"}\n```",
			fit:     true,
			score:   0.8,
			comment: "Tốt",
		},
		{
			name:  "prose around object",
			raw:   "Here is my answer: {\"fit\": \"yes\", \"score\": 0.4} thanks",
			fit:   true,
			score: 0.4,
		},
		{
			name:  "score out of range is clamped",
			raw:   `{"fit": 1, "score": 7}`,
			fit:   true,
			score: 1,
		},
		{
			name:    "missing score",
			raw:     `{"fit": "no", "comment": {"text": "x"}}`,
			fit:     false,
			score:   0,
			comment: `{"text":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment, err := parseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.fit, assessment.Fit)
			assert.Equal(t, tt.score, assessment.Score)
			assert.Equal(t, tt.comment, assessment.Comment)
		})
	}
}
