package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/provider"
)

// perQuestionClient answers each question with a canned response, failing
// the questions whose text appears in failTexts.
type perQuestionClient struct {
	mu        sync.Mutex
	response  string
	failTexts map[string]error
}

func (c *perQuestionClient) Call(_ context.Context, req provider.Request) (*provider.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for text, err := range c.failTexts {
		if strings.Contains(req.Prompt, text) {
			return nil, err
		}
	}
	return &provider.Response{
		Text:  c.response,
		Usage: model.TokenUsage{InputTokens: 5, OutputTokens: 5, CostUSD: 0.0005},
	}, nil
}

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:       uuid.NewString(),
			Text:     fmt.Sprintf("What do reviewers think of CRM vendor %d?", i),
			Category: "recommendations",
		}
	}
	return qs
}

func newTestEngine(gen, extract provider.Client) *Engine {
	a := NewAnalyzer(gen, extract, nil)
	a.retryBase.BaseDelay = 1
	a.retryBase.MaxDelay = 1
	a.retryBase.MaxJitter = 1
	return NewEngine(a)
}

func TestEngine_Run_AllQuestionsSucceed(t *testing.T) {
	cfg := testRunConfig(t)
	gen := &perQuestionClient{response: testGeneratedText}
	extract := &perQuestionClient{response: testAnalysisJSON}

	questions := testQuestions(5)
	result, err := newTestEngine(gen, extract).Run(context.Background(), questions, cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, result.AnalysisID)
	assert.Len(t, result.Questions, 5)
	assert.Zero(t, result.FailedQuestions)
	assert.Equal(t, model.RunStatusCompleted, RunStatusFor(result))
	assert.Equal(t, []string{"recommendations"}, result.Categories)
	assert.InDelta(t, 0.88, result.OverallConfidence, 1e-9)

	// One synthetic priority source per question.
	assert.Equal(t, 5, result.TotalSources)
	assert.Equal(t, 5, result.PrioritySources)

	// Usage aggregates both calls of all five questions.
	assert.Equal(t, 50, result.TokenUsage.InputTokens)
	assert.InDelta(t, 0.005, result.TokenUsage.CostUSD, 1e-9)

	require.NotNil(t, result.BrandSummaryByType)
	require.Len(t, result.BrandSummary.TargetBrands, 1)
	assert.Equal(t, 10, result.BrandSummary.TargetBrands[0].Frequency)
}

func TestEngine_Run_FailedQuestionDegradesToErrorAnalysis(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.MaxRetries = 2

	questions := testQuestions(5)
	gen := &perQuestionClient{
		response:  testGeneratedText,
		failTexts: map[string]error{questions[2].Text: provider.ErrTimeout},
	}
	extract := &perQuestionClient{response: testAnalysisJSON}

	engine := newTestEngine(gen, extract)

	var failedIDs []string
	engine.OnFailure = func(q model.Question, err error) {
		failedIDs = append(failedIDs, q.ID)
		assert.ErrorIs(t, err, provider.ErrTimeout)
	}

	result, err := engine.Run(context.Background(), questions, cfg)
	require.NoError(t, err)

	assert.Len(t, result.Questions, 5)
	assert.Equal(t, 1, result.FailedQuestions)
	assert.Equal(t, model.RunStatusPartiallyFailed, RunStatusFor(result))
	assert.Equal(t, []string{questions[2].ID}, failedIDs)

	// The failed slot keeps its position and carries the error analysis.
	errQA := result.Questions[2]
	assert.Equal(t, questions[2].ID, errQA.QuestionID)
	assert.Zero(t, errQA.ConfidenceScore)
	assert.Empty(t, errQA.BrandMentions)

	// Zero-confidence failures drag the mean down.
	assert.InDelta(t, 0.88*4/5, result.OverallConfidence, 1e-9)

	// Error analyses contribute no sources.
	assert.Equal(t, 4, result.TotalSources)
}

func TestEngine_Run_ProgressReported(t *testing.T) {
	cfg := testRunConfig(t)
	gen := &perQuestionClient{response: testGeneratedText}
	extract := &perQuestionClient{response: testAnalysisJSON}

	engine := newTestEngine(gen, extract)

	var mu sync.Mutex
	var last int
	engine.OnProgress = func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		last = completed
	}

	_, err := engine.Run(context.Background(), testQuestions(4), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, last)
}

func TestEngine_Run_RejectsEmptyInput(t *testing.T) {
	cfg := testRunConfig(t)
	engine := newTestEngine(&perQuestionClient{}, &perQuestionClient{})

	_, err := engine.Run(context.Background(), nil, cfg)
	assert.Error(t, err)

	_, err = engine.Run(context.Background(), testQuestions(1), nil)
	assert.Error(t, err)
}

func TestEngine_Run_CancelledContextAborts(t *testing.T) {
	cfg := testRunConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &perQuestionClient{response: testGeneratedText}
	extract := &perQuestionClient{response: testAnalysisJSON}

	_, err := newTestEngine(gen, extract).Run(ctx, testQuestions(3), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanConfidence_IncludesZeros(t *testing.T) {
	analyses := []model.QuestionAnalysis{
		{ConfidenceScore: 0.9},
		{ConfidenceScore: 0.0},
		{ConfidenceScore: 0.6},
	}
	assert.InDelta(t, 0.5, meanConfidence(analyses), 1e-9)
	assert.Zero(t, meanConfidence(nil))
}
