package translate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/babelchat/server/internal/stats"
	"github.com/babelchat/server/internal/types"
)

const MetricTranslationFailures = "NumTranslationFailures"

// Pipeline fans a message out to the provider once per target language and
// joins the results into a translation map.
type Pipeline struct {
	provider Provider
	targets  []types.Language
	timeout  time.Duration
	log      *zerolog.Logger
	stats    stats.StatsProvider
}

func NewPipeline(provider Provider, targets []types.Language, timeout time.Duration, logger *zerolog.Logger, su stats.StatsProvider) *Pipeline {
	su.RegisterMetric(MetricTranslationFailures)

	return &Pipeline{
		provider: provider,
		targets:  targets,
		timeout:  timeout,
		log:      logger,
		stats:    su,
	}
}

// Translate resolves content into every configured target language. The
// source language entry is always content verbatim. Requests run
// concurrently, each bounded by the pipeline timeout; a failed or timed-out
// language is left out of the map. Translate never fails: at worst the map
// holds only the source entry.
func (p *Pipeline) Translate(ctx context.Context, content string, source types.Language) types.TranslationMap {
	translations := types.TranslationMap{source: content}

	var mu sync.Mutex
	var g errgroup.Group

	for _, target := range p.targets {
		if target == source {
			continue
		}

		target := target
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			text, err := p.provider.TranslateOne(reqCtx, content, source, target)
			if err != nil {
				p.stats.Incr(MetricTranslationFailures)
				p.log.Warn().Err(err).
					Str("from", string(source)).
					Str("to", string(target)).
					Msg("translation failed")
				return nil
			}

			mu.Lock()
			translations[target] = text
			mu.Unlock()
			return nil
		})
	}

	g.Wait()

	return translations
}
