// Package intent decides whether a chat message asks the app to do something
// and carries that action out.
package intent

import (
	"encoding/json"
	"strconv"
	"strings"
)

type ActionType string

const (
	CreateBudget      ActionType = "create_budget"
	AddTransaction    ActionType = "add_transaction"
	DeleteTransaction ActionType = "delete_transaction"
	EditTransaction   ActionType = "edit_transaction"
	DeleteBudget      ActionType = "delete_budget"
	EditBudget        ActionType = "edit_budget"
	ViewReport        ActionType = "view_report"
	SetGoal           ActionType = "set_goal"
	CreateTodo        ActionType = "create_todo"
	DeleteTodo        ActionType = "delete_todo"
	EditTodo          ActionType = "edit_todo"
	None              ActionType = "none"
)

// Action is a detected intent and the fields extracted for it.
type Action struct {
	Type              ActionType `json:"type"`
	Data              Data       `json:"data"`
	Confirmation      string     `json:"confirmation,omitempty"`
	NeedsConfirmation bool       `json:"needsConfirmation"`
}

// Data holds whatever the extractor found. Every field is optional.
type Data struct {
	Amount      Number `json:"amount,omitempty"`
	Category    string `json:"category,omitempty"`
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`
	Date        string `json:"date,omitempty"`
	Month       Number `json:"month,omitempty"`
	Year        Number `json:"year,omitempty"`
	Goal        string `json:"goal,omitempty"`
	UserMessage string `json:"userMessage,omitempty"`
}

// Result is what the assistant tells the user after running an action.
type Result struct {
	Message string  `json:"message"`
	Success bool    `json:"success"`
	Action  *Action `json:"action,omitempty"`
}

// Number accepts a JSON number or a numeric string ("200", "₵1,500.50").
// Anything unparsable decodes to 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*n = 0
			return nil
		}
		s = strings.NewReplacer("₵", "", ",", "", " ", "").Replace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

func (n Number) Float() float64 { return float64(n) }

func (n Number) Int() int { return int(n) }

// title prefers the title, then the description, then fallback.
func (d Data) title(fallback string) string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	if t := strings.TrimSpace(d.Description); t != "" {
		return t
	}
	return fallback
}
