package intent

import (
	"context"
	"regexp"
	"strings"

	"stephly/internal/log"
)

var (
	questionKeywords          = []string{"how", "what", "can i", "should i", "help me", "advice", "suggest", "recommend", "tips"}
	createBudgetKeywords      = []string{"set budget", "create budget", "make budget", "add budget"}
	createTodoKeywords        = []string{"plan to", "need to pay", "upcoming expense", "remind me to pay", "add todo", "add a todo", "create todo", "create a todo", "plan expense", "need to buy", "have to pay", "todo for"}
	editTransactionKeywords   = []string{"edit transaction", "change transaction", "update transaction", "modify transaction", "fix transaction"}
	deleteTransactionKeywords = []string{"delete transaction", "remove transaction", "delete the", "remove the"}
	deleteTodoKeywords        = []string{"delete todo", "remove todo", "cancel todo", "delete planned expense"}
	goalKeywords              = []string{"my goal is", "set goal", "set a goal", "new goal"}
	incomeKeywords            = []string{"received", "got", "earned", "gave me", "paid me", "salary", "bonus", "add income", "record income", "to my income", "to income", "add to income"}
	expenseKeywords           = []string{"spent", "paid", "bought", "cost", "expense", "purchase", "add expense", "record expense"}
	reportKeywords            = []string{"show report", "view analytics", "open analytics"}

	hasDigit     = regexp.MustCompile(`\d+`)
	goalPatterns = caseInsensitive(goalKeywords)
)

// caseInsensitive matches keywords on the original text, so match offsets
// stay valid even where lower-casing changes byte lengths.
func caseInsensitive(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(keywords))
	for i, k := range keywords {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k))
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Detector maps chat messages to actions. Questions never trigger actions.
type Detector struct {
	extractor *Extractor
	logger    *log.Logger
}

func NewDetector(extractor *Extractor, logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.Discard()
	}
	return &Detector{extractor: extractor, logger: logger.WithComponent(log.ComponentIntent)}
}

// Detect classifies message. Only create and add actions call the model to
// extract fields; the keyword checks run in a fixed order and the first
// match wins.
func (d *Detector) Detect(ctx context.Context, message string) Action {
	a := d.classify(ctx, message)
	d.logger.DebugContext(ctx, "Intent detected", log.FieldIntent, string(a.Type))
	return a
}

func (d *Detector) classify(ctx context.Context, message string) Action {
	lower := strings.ToLower(message)

	if containsAny(lower, questionKeywords) {
		return Action{Type: None}
	}

	if containsAny(lower, createBudgetKeywords) {
		return Action{
			Type:              CreateBudget,
			Data:              d.extractor.Extract(ctx, message),
			NeedsConfirmation: true,
			Confirmation:      "Create a budget",
		}
	}

	if containsAny(lower, createTodoKeywords) {
		return Action{
			Type:         CreateTodo,
			Data:         d.extractor.Extract(ctx, message),
			Confirmation: "Add to planned expenses",
		}
	}

	if containsAny(lower, deleteTransactionKeywords) {
		return Action{
			Type:              DeleteTransaction,
			Data:              Data{UserMessage: message},
			NeedsConfirmation: true,
			Confirmation:      "Delete transaction",
		}
	}

	if containsAny(lower, editTransactionKeywords) {
		return Action{
			Type:              EditTransaction,
			Data:              Data{UserMessage: message},
			NeedsConfirmation: true,
			Confirmation:      "Edit transaction",
		}
	}

	if containsAny(lower, deleteTodoKeywords) {
		return Action{
			Type:              DeleteTodo,
			Data:              Data{UserMessage: message},
			NeedsConfirmation: true,
			Confirmation:      "Delete planned expense",
		}
	}

	if goal, ok := goalText(message); ok {
		return Action{Type: SetGoal, Data: Data{Goal: goal, UserMessage: message}}
	}

	amount := hasDigit.MatchString(lower)

	if amount && containsAny(lower, incomeKeywords) {
		return Action{
			Type:         AddTransaction,
			Data:         d.extractor.Extract(ctx, message),
			Confirmation: "Add this income",
		}
	}

	if amount && containsAny(lower, expenseKeywords) {
		return Action{
			Type:         AddTransaction,
			Data:         d.extractor.Extract(ctx, message),
			Confirmation: "Add this expense",
		}
	}

	if containsAny(lower, reportKeywords) {
		return Action{Type: ViewReport}
	}

	return Action{Type: None}
}

// goalText returns what follows a goal keyword, e.g. "my goal is to save
// 5000 by December" yields "to save 5000 by December".
func goalText(message string) (string, bool) {
	for _, re := range goalPatterns {
		loc := re.FindStringIndex(message)
		if loc == nil {
			continue
		}
		goal := strings.TrimSpace(message[loc[1]:])
		goal = strings.TrimLeft(goal, ":- ")
		if goal == "" {
			return "", false
		}
		return goal, true
	}
	return "", false
}
