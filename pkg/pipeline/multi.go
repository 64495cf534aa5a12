package pipeline

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"botchat/pkg/chat"
	"botchat/pkg/config"
)

// BotResult pairs a bot id with its pipeline outcome for a fan-out turn.
type BotResult struct {
	BotID  string
	Result Result
}

// RunAll fans one message out to every bot concurrently. Each bot runs its own
// full chain with independent reprocessing counters; one bot's failure never
// affects another's turn, since Run resolves all failures to safe content.
// Results come back ordered by bot id for stable presentation.
func (p *Pipeline) RunAll(ctx context.Context, msg chat.Message, bots []config.Bot, cc *chat.Context) []BotResult {
	results := make([]BotResult, 0, len(bots))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range bots {
		bot := &bots[i]
		g.Go(func() error {
			res := p.Run(gctx, msg, bot, cc)
			mu.Lock()
			results = append(results, BotResult{BotID: bot.ID, Result: res})
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait is for joining only.
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].BotID < results[b].BotID })
	return results
}
