package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/babelchat/server/internal/stats"
	"github.com/babelchat/server/internal/testutil"
	"github.com/babelchat/server/internal/types"
)

func newTestPipeline(t *testing.T, provider Provider, su *stats.MockStatsUpdater) *Pipeline {
	su.On("RegisterMetric", MetricTranslationFailures).Once()
	return NewPipeline(provider, types.DefaultLanguages(), time.Second, testutil.TestLogger(t), su)
}

func TestTranslateAllTargets(t *testing.T) {
	provider := &MockProvider{}
	defer provider.AssertExpectations(t)
	provider.On("TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangKorean).Return("안녕하세요", nil).Once()
	provider.On("TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangMalay).Return("helo", nil).Once()

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)

	p := newTestPipeline(t, provider, su)
	translations := p.Translate(context.Background(), "hello", types.LangEnglish)

	assert.Equal(t, types.TranslationMap{
		types.LangEnglish: "hello",
		types.LangKorean:  "안녕하세요",
		types.LangMalay:   "helo",
	}, translations)
}

func TestTranslateSourceNeverHitsProvider(t *testing.T) {
	provider := &MockProvider{}
	defer provider.AssertExpectations(t)
	provider.On("TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangKorean).Return("안녕하세요", nil).Once()
	provider.On("TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangMalay).Return("helo", nil).Once()

	su := &stats.MockStatsUpdater{}
	p := newTestPipeline(t, provider, su)
	p.Translate(context.Background(), "hello", types.LangEnglish)

	provider.AssertNotCalled(t, "TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangEnglish)
}

func TestTranslatePartialFailure(t *testing.T) {
	provider := &MockProvider{}
	defer provider.AssertExpectations(t)
	provider.On("TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangKorean).Return("안녕하세요", nil).Once()
	provider.On("TranslateOne", mock.Anything, "hello", types.LangEnglish, types.LangMalay).
		Return("", errors.New("provider unavailable")).Once()

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", MetricTranslationFailures).Once()

	p := newTestPipeline(t, provider, su)
	translations := p.Translate(context.Background(), "hello", types.LangEnglish)

	assert.Equal(t, "hello", translations[types.LangEnglish])
	assert.Equal(t, "안녕하세요", translations[types.LangKorean])
	assert.NotContains(t, translations, types.LangMalay, "failed language must be absent, never partial")
}

func TestTranslateFullFailureDegradesToSource(t *testing.T) {
	provider := &MockProvider{}
	provider.On("TranslateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("provider unreachable"))

	su := &stats.MockStatsUpdater{}
	su.On("Incr", MetricTranslationFailures).Times(2)
	defer su.AssertExpectations(t)

	p := newTestPipeline(t, provider, su)
	translations := p.Translate(context.Background(), "hello", types.LangEnglish)

	assert.Equal(t, types.TranslationMap{types.LangEnglish: "hello"}, translations)
}
