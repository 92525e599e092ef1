package chat

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/alphamind/gateway/internal/infra/llm"
)

// UsageTotals is the per-user aggregate over all recorded completions.
type UsageTotals struct {
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// UsageStore records token consumption and cost per user and model.
// Cost is computed at record time from the catalog pricing so later
// pricing changes never rewrite history.
type UsageStore struct {
	db *sql.DB
}

// NewUsageStore creates a store over an open database.
func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Record stores one completion's token usage for userID. Pricing is
// USD per million tokens; local models carry zero pricing and record
// zero cost.
func (s *UsageStore) Record(ctx context.Context, userID, model string, pricing llm.Pricing, usage llm.Usage) error {
	cost := float64(usage.PromptTokens)*pricing.Input/1_000_000 +
		float64(usage.CompletionTokens)*pricing.Output/1_000_000
	if cost < 0 {
		cost = 0
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, user_id, model, prompt_tokens, completion_tokens, cost) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, model, usage.PromptTokens, usage.CompletionTokens, cost,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// TotalsForUser aggregates userID's recorded usage. A user with no
// records gets zero totals, not an error.
func (s *UsageStore) TotalsForUser(ctx context.Context, userID string) (*UsageTotals, error) {
	var t UsageTotals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(cost), 0)
		 FROM usage_records WHERE user_id = ?`,
		userID,
	).Scan(&t.Requests, &t.PromptTokens, &t.CompletionTokens, &t.Cost)
	if err != nil {
		return nil, fmt.Errorf("usage totals: %w", err)
	}
	return &t, nil
}
