package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// BotUsage is aggregated token usage for one bot, read back from Prometheus.
type BotUsage struct {
	BotID            string `json:"bot_id"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// QueryService reads aggregated usage back from a Prometheus server.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{client: client, queryAPI: v1.NewAPI(client)}, nil
}

// BotUsage retrieves aggregated token usage for one bot across all models.
func (q *QueryService) BotUsage(ctx context.Context, botID string) (*BotUsage, error) {
	usage := &BotUsage{BotID: botID}

	promptQuery := fmt.Sprintf(`sum(chat_llm_tokens_total{bot_id=%q, type="prompt"})`, botID)
	promptResult, _, err := q.queryAPI.Query(ctx, promptQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	if vector, ok := promptResult.(model.Vector); ok && len(vector) > 0 {
		usage.PromptTokens = int64(vector[0].Value)
	}

	completionQuery := fmt.Sprintf(`sum(chat_llm_tokens_total{bot_id=%q, type="completion"})`, botID)
	completionResult, _, err := q.queryAPI.Query(ctx, completionQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	if vector, ok := completionResult.(model.Vector); ok && len(vector) > 0 {
		usage.CompletionTokens = int64(vector[0].Value)
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage, nil
}

// ReprocessingCycles retrieves the per-outcome reprocessing cycle counts for
// one bot.
func (q *QueryService) ReprocessingCycles(ctx context.Context, botID string) (map[string]int64, error) {
	query := fmt.Sprintf(`sum by (outcome) (chat_reprocessing_cycles_total{bot_id=%q})`, botID)
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query reprocessing cycles: %w", err)
	}

	out := make(map[string]int64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			if outcome, ok := sample.Metric["outcome"]; ok {
				out[string(outcome)] = int64(sample.Value)
			}
		}
	}
	return out, nil
}
