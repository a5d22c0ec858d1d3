// Package translate resolves per-message translations across the configured
// language set. Individual language failures are absorbed: the resulting map
// simply omits languages that could not be translated, and recipients fall
// back to the original text.
package translate

import (
	"context"

	"github.com/babelchat/server/internal/types"
)

// Provider performs a single translation request.
type Provider interface {
	TranslateOne(ctx context.Context, text string, from, to types.Language) (string, error)
}

// Translator is the surface the message dispatcher depends on.
type Translator interface {
	Translate(ctx context.Context, content string, source types.Language) types.TranslationMap
}
