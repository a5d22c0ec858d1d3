package translate

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/babelchat/server/internal/types"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) TranslateOne(ctx context.Context, text string, from, to types.Language) (string, error) {
	args := m.Called(ctx, text, from, to)
	return args.String(0), args.Error(1)
}

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, content string, source types.Language) types.TranslationMap {
	args := m.Called(ctx, content, source)
	return args.Get(0).(types.TranslationMap)
}
