package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"stephly/internal/services"
	"stephly/internal/store/memory"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestDetect(t *testing.T) {
	gen := &fakeGenerator{reply: `{"amount": 50, "category": "Food", "type": "expense", "title": "Lunch"}`}
	d := NewDetector(NewExtractor(gen, nil), nil)

	tests := []struct {
		msg          string
		want         ActionType
		confirmation bool
	}{
		{"How can I save more?", None, false},
		{"What should I spend on food", None, false},
		{"set budget for food 500", CreateBudget, true},
		{"I need to pay rent 1200", CreateTodo, false},
		{"delete the last transaction", DeleteTransaction, true},
		{"edit transaction from yesterday", EditTransaction, true},
		{"cancel todo shoes", DeleteTodo, true},
		{"my goal is to save 5000 by December", SetGoal, false},
		{"ȺȺȺ My Goal Is: buy a house", SetGoal, false},
		{strings.Repeat("Ⱥ", 12) + " my goal is", None, false},
		{"received 3000 salary", AddTransaction, false},
		{"spent 50 on lunch", AddTransaction, false},
		{"spent money on lunch", None, false},
		{"open analytics", ViewReport, false},
		{"hello there", None, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			a := d.Detect(context.Background(), tt.msg)
			if a.Type != tt.want {
				t.Fatalf("Detect(%q) = %s, want %s", tt.msg, a.Type, tt.want)
			}
			if a.NeedsConfirmation != tt.confirmation {
				t.Errorf("NeedsConfirmation = %v, want %v", a.NeedsConfirmation, tt.confirmation)
			}
		})
	}
}

func TestGoalText(t *testing.T) {
	tests := []struct {
		msg  string
		want string
		ok   bool
	}{
		{"my goal is to save 5000 by December", "to save 5000 by December", true},
		{"New Goal: emergency fund", "emergency fund", true},
		{"ȺȺȺ My Goal Is: buy a house", "buy a house", true},
		{"İİİ trip, my goal is to visit Accra", "to visit Accra", true},
		{strings.Repeat("Ⱥ", 12) + " my goal is", "", false},
		{"no goals here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, ok := goalText(tt.msg)
			if ok != tt.ok || got != tt.want {
				t.Errorf("goalText(%q) = %q, %v, want %q, %v", tt.msg, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDetect_QuestionsSkipModel(t *testing.T) {
	gen := &fakeGenerator{reply: `{}`}
	d := NewDetector(NewExtractor(gen, nil), nil)
	d.Detect(context.Background(), "should i spent 50 on lunch?")
	if gen.calls != 0 {
		t.Fatalf("model called %d times for a question", gen.calls)
	}
}

func TestDetect_GuidanceCarriesMessage(t *testing.T) {
	d := NewDetector(NewExtractor(&fakeGenerator{}, nil), nil)
	a := d.Detect(context.Background(), "remove transaction 12")
	if a.Data.UserMessage != "remove transaction 12" {
		t.Fatalf("data should carry the message, got %+v", a.Data)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  Data
	}{
		{
			name:  "object in prose",
			reply: "Here you go:\n```json\n{\"amount\": \"1,200.50\", \"category\": \"Rent\", \"type\": \"expense\", \"title\": \"House rent\"}\n```",
			want:  Data{Amount: 1200.5, Category: "Rent", Type: "expense", Title: "House rent"},
		},
		{
			name:  "array uses first element",
			reply: `[{"amount": 20, "category": "Light"}, {"amount": 30, "category": "Water"}]`,
			want:  Data{Amount: 20, Category: "Light"},
		},
		{name: "garbage", reply: "no idea", want: Data{}},
		{name: "broken json", reply: `{"amount": }`, want: Data{}},
		{name: "model error", err: errors.New("quota"), want: Data{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewExtractor(&fakeGenerator{reply: tt.reply, err: tt.err}, nil).Extract(context.Background(), "x")
			if got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNumber_Unmarshal(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "₵300", "c": "lots", "d": null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 12.5 || v.B != 300 || v.C != 0 || v.D != 0 {
		t.Errorf("unexpected numbers: %+v", v)
	}
}

type executorFixture struct {
	exec  *Executor
	store *memory.Store
	txs   *services.TransactionService
}

func newExecutor(t *testing.T) executorFixture {
	t.Helper()
	st := memory.New()
	txs := services.NewTransactionService(st, nil, nil)
	budgets := services.NewBudgetService(st, nil)
	todos := services.NewTodoService(st, txs, nil)
	e := NewExecutor(budgets, txs, todos, st, nil)
	e.now = func() time.Time { return time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC) }
	return executorFixture{exec: e, store: st, txs: txs}
}

func TestExecute_CreateBudget(t *testing.T) {
	f := newExecutor(t)
	ctx := context.Background()

	res := f.exec.Execute(ctx, Action{Type: CreateBudget, Data: Data{Amount: 500}}, 1)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	for _, want := range []string{"Category: General", "Limit: ₵500", "Period: 7/2025"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message missing %q:\n%s", want, res.Message)
		}
	}

	// Second call with the same category replaces the limit.
	f.exec.Execute(ctx, Action{Type: CreateBudget, Data: Data{Amount: 750, Category: "General"}}, 1)
	budgets, _ := f.store.ListBudgets(ctx, 1, 7, 2025)
	if len(budgets) != 1 || budgets[0].Limit.Cents != 75000 {
		t.Fatalf("expected upsert, got %+v", budgets)
	}

	res = f.exec.Execute(ctx, Action{Type: CreateBudget, Data: Data{Category: "Food"}}, 1)
	if res.Success || !strings.Contains(res.Message, "couldn't create the budget") {
		t.Errorf("zero limit should fail, got %+v", res)
	}
}

func TestExecute_AddTransaction(t *testing.T) {
	f := newExecutor(t)
	ctx := context.Background()

	res := f.exec.Execute(ctx, Action{Type: AddTransaction, Data: Data{Amount: 3000, Type: "income", Category: "Salary", Date: "not a date"}}, 1)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if !strings.HasPrefix(res.Message, "💰 Transaction added successfully!") || !strings.Contains(res.Message, "Type: Income") {
		t.Errorf("unexpected message:\n%s", res.Message)
	}

	list, _ := f.txs.List(ctx, 1, 0)
	if len(list) != 1 {
		t.Fatalf("expected one transaction, got %d", len(list))
	}
	got := list[0]
	if got.Title != "Transaction" || got.Date.String() != "2025-07-04" || got.Amount.Cents != 300000 {
		t.Errorf("defaults not applied: %+v", got)
	}

	res = f.exec.Execute(ctx, Action{Type: AddTransaction, Data: Data{Amount: 20, Description: "Bus fare"}}, 1)
	if !res.Success || !strings.HasPrefix(res.Message, "💸") || !strings.Contains(res.Message, "Category: Other") || !strings.Contains(res.Message, "Title: Bus fare") {
		t.Errorf("unexpected expense result: %+v", res)
	}
}

func TestExecute_CreateTodo(t *testing.T) {
	f := newExecutor(t)
	ctx := context.Background()

	res := f.exec.Execute(ctx, Action{Type: CreateTodo, Data: Data{Title: "Apples"}}, 1)
	if res.Success || !strings.Contains(res.Message, "I need the amount") {
		t.Fatalf("missing amount should ask for it, got %+v", res)
	}

	res = f.exec.Execute(ctx, Action{Type: CreateTodo, Data: Data{Amount: 200}}, 1)
	if !res.Success || !strings.Contains(res.Message, "TODO: Planned expense") {
		t.Fatalf("unexpected result: %+v", res)
	}
	todos, _ := f.store.ListTodos(ctx, 1)
	if len(todos) != 1 || todos[0].Category != "Other" {
		t.Fatalf("unexpected todos: %+v", todos)
	}
}

func TestExecute_GuidanceAndOthers(t *testing.T) {
	f := newExecutor(t)
	ctx := context.Background()

	tests := []struct {
		action  Action
		success bool
		prefix  string
	}{
		{Action{Type: DeleteTransaction}, false, "To delete a specific transaction"},
		{Action{Type: EditTransaction}, false, "To edit a transaction"},
		{Action{Type: DeleteTodo}, false, "To delete a planned expense"},
		{Action{Type: ViewReport}, true, "I'll show you the reports"},
		{Action{Type: EditBudget}, false, "I'm not sure how to help"},
		{Action{Type: SetGoal, Data: Data{Goal: "save 5000"}}, true, "Great! I've noted your goal: save 5000."},
	}
	for _, tt := range tests {
		t.Run(string(tt.action.Type), func(t *testing.T) {
			res := f.exec.Execute(ctx, tt.action, 1)
			if res.Success != tt.success || !strings.HasPrefix(res.Message, tt.prefix) {
				t.Errorf("Execute(%s) = %+v", tt.action.Type, res)
			}
			if res.Action == nil || res.Action.Type != tt.action.Type {
				t.Errorf("result should echo the action")
			}
		})
	}

	m, err := f.store.GetMemory(ctx, 1)
	if err != nil || len(m.Preferences.FinancialGoals) != 1 || m.Preferences.FinancialGoals[0] != "save 5000" {
		t.Fatalf("goal not remembered: %+v %v", m, err)
	}
}
