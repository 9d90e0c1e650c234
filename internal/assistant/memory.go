package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stephly/internal/core"
	"stephly/internal/store"
)

// BuildContext summarises the user's last conversations, unacknowledged
// insights and remembered preferences for the model.
func (a *Assistant) BuildContext(ctx context.Context, userID int64) (string, error) {
	convs, err := a.store.ListConversations(ctx, userID, HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("list conversations: %w", err)
	}
	insights, err := a.store.ListInsights(ctx, userID, true)
	if err != nil {
		return "", fmt.Errorf("list insights: %w", err)
	}
	prefs, err := a.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Previous Conversations (%d):\n", len(convs))
	if len(convs) == 0 {
		b.WriteString("No previous conversations\n")
	}
	// oldest first, like a transcript
	for i := len(convs) - 1; i >= 0; i-- {
		c := convs[i]
		fmt.Fprintf(&b, "[%s] User: %s\nAI: %s...\n", c.Context.Page, c.UserMessage, truncate(c.AIResponse, 100))
		if i > 0 {
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nActive Insights (%d):\n", len(insights))
	if len(insights) == 0 {
		b.WriteString("No active insights\n")
	}
	for _, in := range insights {
		fmt.Fprintf(&b, "- [%s] %s\n", in.Type, in.Message)
	}

	raw, _ := json.MarshalIndent(prefs, "", "  ")
	fmt.Fprintf(&b, "\nUser Preferences:\n%s", raw)
	return strings.TrimSpace(b.String()), nil
}

// Preferences returns the remembered preferences, empty when none were saved.
func (a *Assistant) Preferences(ctx context.Context, userID int64) (core.Preferences, error) {
	m, err := a.store.GetMemory(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return core.Preferences{}, nil
	}
	if err != nil {
		return core.Preferences{}, fmt.Errorf("load memory: %w", err)
	}
	return m.Preferences, nil
}

func (a *Assistant) SavePreferences(ctx context.Context, userID int64, prefs core.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	return a.store.SaveMemory(ctx, core.AIMemory{UserID: userID, Preferences: prefs})
}

// History returns the newest conversations first.
func (a *Assistant) History(ctx context.Context, userID int64, limit int) ([]core.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	return a.store.ListConversations(ctx, userID, limit)
}

func (a *Assistant) Insights(ctx context.Context, userID int64, unacknowledgedOnly bool) ([]core.Insight, error) {
	return a.store.ListInsights(ctx, userID, unacknowledgedOnly)
}

func (a *Assistant) AcknowledgeInsight(ctx context.Context, userID, id int64) error {
	return a.store.AcknowledgeInsight(ctx, userID, id)
}

// ClearAIData forgets the user's conversations and insights. Preferences are
// kept.
func (a *Assistant) ClearAIData(ctx context.Context, userID int64) error {
	if err := a.store.ClearAIData(ctx, userID); err != nil {
		return fmt.Errorf("clear AI data: %w", err)
	}
	a.logger.InfoContext(ctx, "AI data cleared", "user_id", userID)
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
