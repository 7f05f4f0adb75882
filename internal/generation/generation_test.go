package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCard(t *testing.T, word, example string) *domain.Flashcard {
	t.Helper()
	card, err := domain.NewFlashcard(domain.FlashcardParams{
		Word:            word,
		SourceLanguage:  "English",
		TargetLanguage:  "Spanish",
		Definition:      "the definition of " + word,
		ShortDefinition: "short " + word,
		Example:         example,
	}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return card
}

// mockProvider is a testify mock of Provider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GenerateDefinition(ctx context.Context, word, src, tgt string) (*WordDefinition, error) {
	args := m.Called(ctx, word, src, tgt)
	def, _ := args.Get(0).(*WordDefinition)
	return def, args.Error(1)
}

func (m *mockProvider) GenerateQuestion(ctx context.Context, card *domain.Flashcard, kind QuestionKind, pool []*domain.Flashcard) (*QuestionDraft, error) {
	args := m.Called(ctx, card, kind, pool)
	draft, _ := args.Get(0).(*QuestionDraft)
	return draft, args.Error(1)
}

func (m *mockProvider) ClassifyLevel(ctx context.Context, word, src string) (domain.CEFRLevel, error) {
	args := m.Called(ctx, word, src)
	return args.Get(0).(domain.CEFRLevel), args.Error(1)
}

func TestFromStatus(t *testing.T) {
	t.Parallel()

	cause := errors.New("upstream")
	testCases := []struct {
		status int
		want   error
	}{
		{401, ErrAuthRequired},
		{403, ErrAuthRequired},
		{402, ErrAuthRequired},
		{429, ErrRateLimited},
		{400, ErrInvalidConfig},
		{404, ErrInvalidConfig},
		{500, ErrServer},
		{503, ErrServer},
	}

	for _, tc := range testCases {
		err := FromStatus(tc.status, cause)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}

	assert.True(t, IsRetryable(FromStatus(429, cause)))
	assert.True(t, IsRetryable(FromStatus(502, cause)))
	assert.False(t, IsRetryable(FromStatus(401, cause)))
	assert.False(t, IsRetryable(ErrDecode))
}

func TestFromTransport(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, FromTransport(&net.OpError{Op: "dial", Err: errors.New("refused")}), ErrNetwork)
	assert.ErrorIs(t, FromTransport(errors.New("boom")), ErrServer)
	assert.Equal(t, context.Canceled, FromTransport(context.Canceled))
}

func TestDecodeQuestion(t *testing.T) {
	t.Parallel()

	text := "Sure! Here is your question:\n```json\n" +
		`{"question": "What is the meaning of 'apple'?", "options": ["a fruit", "a car", "a city", "a song"], "correctAnswerIndex": 0, "tip": "Think of orchards."}` +
		"\n```"

	draft, err := DecodeQuestion(text, KindDefinition)
	require.NoError(t, err)
	assert.Equal(t, "What is the meaning of 'apple'?", draft.Prompt)
	assert.Len(t, draft.Options, 4)
	assert.Equal(t, KindDefinition, draft.Kind)
	answer, err := draft.Answer()
	require.NoError(t, err)
	assert.Equal(t, "a fruit", answer)

	testCases := map[string]string{
		"no json":         "I cannot help with that.",
		"broken json":     `{"question": "x", "options": [}`,
		"missing prompt":  `{"options": ["a"], "correctAnswerIndex": 0}`,
		"no options":      `{"question": "x", "options": [], "correctAnswerIndex": 0}`,
		"index too large": `{"question": "x", "options": ["a", "b"], "correctAnswerIndex": 5}`,
	}
	for name, text := range testCases {
		_, err := DecodeQuestion(text, KindDefinition)
		assert.ErrorIs(t, err, ErrDecode, name)
	}
}

func TestDecodeDefinition(t *testing.T) {
	t.Parallel()

	def, err := DecodeDefinition(`{"definition": "a round fruit", "translation": "manzana"}`, "apple")
	require.NoError(t, err)
	assert.Equal(t, "apple", def.Word)
	assert.Equal(t, "manzana", def.Translation)

	_, err = DecodeDefinition(`{"definition": "a round fruit"}`, "apple")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]domain.CEFRLevel{
		"B2":         domain.CEFRB2,
		" c1\n":      domain.CEFRC1,
		"Level: a2.": domain.CEFRA2,
		"\"C2\"":     domain.CEFRC2,
	} {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("intermediate")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestQuestionPrompt(t *testing.T) {
	t.Parallel()

	card := testCard(t, "gregarious", "She is gregarious at parties.")
	other := testCard(t, "shy", "")

	for _, kind := range QuestionKinds {
		prompt, err := QuestionPrompt(card, kind, []*domain.Flashcard{card, other})
		require.NoError(t, err, kind)
		assert.Contains(t, prompt, "gregarious")
		assert.Contains(t, prompt, "Exactly 4 options")
		assert.Contains(t, prompt, "Other words in this exam: shy")
	}

	_, err := QuestionPrompt(card, QuestionKind("riddle"), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	prompt, err := DefinitionPrompt("apple", "English", "Spanish")
	require.NoError(t, err)
	assert.Contains(t, prompt, `"apple" in English with translation to Spanish`)

	prompt, err = LevelPrompt("apple", "English")
	require.NoError(t, err)
	assert.Contains(t, prompt, "A1, A2, B1, B2, C1, C2")
}

func TestLocalGenerator_Questions(t *testing.T) {
	t.Parallel()

	g := NewLocalGenerator(rand.New(rand.NewSource(7)))
	ctx := context.Background()
	card := testCard(t, "Ubiquitous", "Smartphones are ubiquitous today.")
	pool := []*domain.Flashcard{card, testCard(t, "rare", ""), testCard(t, "scarce", "")}

	for _, kind := range QuestionKinds {
		draft, err := g.GenerateQuestion(ctx, card, kind, pool)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, draft.Prompt)
		assert.Len(t, draft.Options, 4, kind)
		assert.Equal(t, 0, draft.CorrectIndex)
		assert.NotEmpty(t, draft.Hint)
	}

	draft, err := g.GenerateQuestion(ctx, card, KindFillInBlank, pool)
	require.NoError(t, err)
	assert.Contains(t, draft.Prompt, Blank)
	assert.NotContains(t, strings.ToLower(draft.Prompt), "ubiquitous")

	draft, err = g.GenerateQuestion(ctx, card, KindDefinition, pool)
	require.NoError(t, err)
	assert.Equal(t, "the definition of Ubiquitous", draft.Options[0])
	assert.Equal(t, FallbackDistractors, draft.Options[1:])

	_, err = g.GenerateQuestion(ctx, card, QuestionKind("riddle"), pool)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLocalGenerator_FillInBlankWithoutExample(t *testing.T) {
	t.Parallel()

	g := NewLocalGenerator(rand.New(rand.NewSource(1)))
	card := testCard(t, "serene", "")

	draft, err := g.GenerateQuestion(context.Background(), card, KindFillInBlank, nil)
	require.NoError(t, err)
	assert.Contains(t, draft.Prompt, Blank)
	assert.Equal(t, []string{"serene", "alternative", "different", "another"}, draft.Options)
}

func TestLocalGenerator_ClassifyLevel(t *testing.T) {
	t.Parallel()

	g := NewLocalGenerator(nil)
	ctx := context.Background()

	testCases := map[string]domain.CEFRLevel{
		"Hello":         domain.CEFRA1,
		"ephemeral":     domain.CEFRC2,
		"cat":           domain.CEFRA1,
		"tree":          domain.CEFRA2,
		"garden":        domain.CEFRA2,
		"kindness":      domain.CEFRB2,
		"elephant":      domain.CEFRB1,
		"extraordinary": domain.CEFRC2,
		"independent":   domain.CEFRC1,
	}
	for word, want := range testCases {
		got, err := g.ClassifyLevel(ctx, word, "English")
		require.NoError(t, err)
		assert.Equal(t, want, got, word)
	}

	_, err := g.ClassifyLevel(ctx, "  ", "English")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLocalGenerator_Definition(t *testing.T) {
	t.Parallel()

	def, err := NewLocalGenerator(nil).GenerateDefinition(context.Background(), " Apple ", "English", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Apple", def.Word)
	assert.NotEmpty(t, def.Definition)
	assert.NotEmpty(t, def.Translation)
}

func TestResilient_FallsBackOnPrimaryError(t *testing.T) {
	t.Parallel()

	primary := new(mockProvider)
	ctx := context.Background()
	card := testCard(t, "apple", "")

	primary.On("GenerateDefinition", mock.Anything, "apple", "English", "Spanish").
		Return(nil, FromStatus(401, errors.New("bad key")))
	primary.On("GenerateQuestion", mock.Anything, card, KindDefinition, mock.Anything).
		Return(nil, ErrDecode)
	primary.On("ClassifyLevel", mock.Anything, "apple", "English").
		Return(domain.CEFRLevel(""), ErrNetwork)

	r := NewResilient(primary, NewLocalGenerator(nil), nil, discardLogger())

	def, err := r.GenerateDefinition(ctx, "apple", "English", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "apple", def.Word)

	draft, err := r.GenerateQuestion(ctx, card, KindDefinition, nil)
	require.NoError(t, err)
	assert.Len(t, draft.Options, 4)

	level, err := r.ClassifyLevel(ctx, "apple", "English")
	require.NoError(t, err)
	assert.True(t, level.Valid())

	primary.AssertExpectations(t)
}

func TestResilient_UsesPrimaryWhenHealthy(t *testing.T) {
	t.Parallel()

	primary := new(mockProvider)
	want := &WordDefinition{Word: "apple", Definition: "a fruit", Translation: "manzana"}
	primary.On("GenerateDefinition", mock.Anything, "apple", "English", "Spanish").Return(want, nil).Once()
	primary.On("ClassifyLevel", mock.Anything, "apple", "English").Return(domain.CEFRA1, nil).Once()

	r := NewResilient(primary, nil, rate.NewLimiter(rate.Inf, 1), discardLogger())

	got, err := r.GenerateDefinition(context.Background(), "apple", "English", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "manzana", got.Translation)
	assert.NotSame(t, want, got, "callers receive their own copy")

	level, err := r.ClassifyLevel(context.Background(), "apple", "English")
	require.NoError(t, err)
	assert.Equal(t, domain.CEFRA1, level)

	primary.AssertExpectations(t)
}

// slowProvider counts definition calls and blocks until released.
type slowProvider struct {
	LocalGenerator
	calls   atomic.Int32
	release chan struct{}
}

func (p *slowProvider) GenerateDefinition(ctx context.Context, word, src, tgt string) (*WordDefinition, error) {
	p.calls.Add(1)
	<-p.release
	return &WordDefinition{Word: word, Definition: "remote", Translation: "remote"}, nil
}

func TestResilient_CollapsesConcurrentDefinitions(t *testing.T) {
	t.Parallel()

	primary := &slowProvider{release: make(chan struct{})}
	r := NewResilient(primary, nil, nil, discardLogger())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*WordDefinition, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			def, err := r.GenerateDefinition(context.Background(), "apple", "English", "Spanish")
			if err == nil {
				results[i] = def
			}
		}(i)
	}

	// give every caller time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(primary.release)
	wg.Wait()

	assert.Equal(t, int32(1), primary.calls.Load())
	for _, def := range results {
		require.NotNil(t, def)
		assert.Equal(t, "remote", def.Definition)
	}
}

func TestResilient_NilPrimaryUsesFallback(t *testing.T) {
	t.Parallel()

	r := NewResilient(nil, nil, nil, nil)
	def, err := r.GenerateDefinition(context.Background(), "apple", "English", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "apple", def.Word)
}

func TestRetry(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
	log := discardLogger()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), log, policy, func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return ErrServer
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), log, policy, func(ctx context.Context) error {
			attempts++
			return ErrAuthRequired
		})
		assert.ErrorIs(t, err, ErrAuthRequired)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := Retry(context.Background(), log, policy, func(ctx context.Context) error {
			attempts++
			return ErrRateLimited
		})
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 4, attempts)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, log, RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}, func(ctx context.Context) error {
			return ErrNetwork
		})
		assert.ErrorIs(t, err, ErrNetwork)
	})
}
