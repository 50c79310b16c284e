// Package history rebuilds the conversation window handed to the generation
// backend from the append-only turn log.
package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/models"
)

// DefaultLimit is how many recent turns are considered for a window
const DefaultLimit = 10

// TurnReader loads the most recent turns of a conversation, newest first
type TurnReader interface {
	RecentTurns(ctx context.Context, tenantID, userID string, limit int) ([]models.Turn, error)
}

// Assembler produces generation-ready history windows
type Assembler struct {
	turns  TurnReader
	limit  int
	logger zerolog.Logger
}

// NewAssembler creates a new history assembler. A non-positive limit falls back to DefaultLimit.
func NewAssembler(turns TurnReader, limit int, logger zerolog.Logger) *Assembler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Assembler{
		turns:  turns,
		limit:  limit,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Assemble returns the conversation window for a user: chronological, text
// only, starting with a user turn and strictly alternating roles.
func (a *Assembler) Assemble(ctx context.Context, tenantID, userID string) ([]models.Turn, error) {
	return a.AssembleExcluding(ctx, tenantID, userID, "")
}

// AssembleExcluding is Assemble with the turn identified by currentTurnID left
// out of the window. The event processor persists the inbound turn before
// assembling and sends that turn as the prompt itself, so it must not also
// appear as history.
func (a *Assembler) AssembleExcluding(ctx context.Context, tenantID, userID, currentTurnID string) ([]models.Turn, error) {
	recent, err := a.turns.RecentTurns(ctx, tenantID, userID, a.limit)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}

	chronological := make([]models.Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		t := recent[i]
		if currentTurnID != "" && t.TurnID == currentTurnID {
			continue
		}
		if t.IsText() {
			chronological = append(chronological, t)
		}
	}

	window, dropped := Repair(chronological)
	for _, t := range dropped {
		a.logger.Warn().
			Str("tenant_id", tenantID).
			Str("user_id", userID).
			Str("turn_id", t.TurnID).
			Str("sender", t.Sender).
			Msg("skipping turn to keep user/assistant alternation")
	}

	return window, nil
}

// Repair walks turns in order, keeping each turn whose sender matches the
// expected role and flipping the expectation. Mismatches are dropped without
// moving the cursor. The first kept turn is always from the user.
func Repair(turns []models.Turn) (kept, dropped []models.Turn) {
	kept = make([]models.Turn, 0, len(turns))
	expected := models.SenderUser

	for _, t := range turns {
		if t.Sender != expected {
			dropped = append(dropped, t)
			continue
		}
		kept = append(kept, t)
		expected = nextRole(expected)
	}

	return kept, dropped
}

func nextRole(role string) string {
	if role == models.SenderUser {
		return models.SenderAssistant
	}
	return models.SenderUser
}
