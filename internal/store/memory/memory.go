package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stephly/internal/core"
	"stephly/internal/store"
)

type data struct {
	users         map[int64]core.UserProfile
	transactions  map[int64]core.Transaction
	budgets       map[int64]core.Budget
	todos         map[int64]core.Todo
	conversations map[int64]core.Conversation
	insights      map[int64]core.Insight
	memories      map[int64]core.AIMemory
}

func newData() data {
	return data{
		users:         map[int64]core.UserProfile{},
		transactions:  map[int64]core.Transaction{},
		budgets:       map[int64]core.Budget{},
		todos:         map[int64]core.Todo{},
		conversations: map[int64]core.Conversation{},
		insights:      map[int64]core.Insight{},
		memories:      map[int64]core.AIMemory{},
	}
}

func (d data) clone() data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.budgets {
		c.budgets[k] = v
	}
	for k, v := range d.todos {
		c.todos[k] = v
	}
	for k, v := range d.conversations {
		c.conversations[k] = v
	}
	for k, v := range d.insights {
		c.insights[k] = v
	}
	for k, v := range d.memories {
		c.memories[k] = v
	}
	return c
}

// Store keeps everything in process memory. It backs the memory backend and
// the service tests.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID int64
	d      data
	now    func() time.Time
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

func New() *Store {
	return &Store{d: newData(), now: time.Now}
}

// SetClock overrides the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// WithTx runs fn and restores the previous state if it returns an error.
// Transactions are serialized against each other.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	nextID := s.nextID
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.nextID = nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u core.UserProfile) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = core.NormalizeEmail(u.Email)
	for _, existing := range s.d.users {
		if existing.Email == u.Email {
			return core.UserProfile{}, store.ErrConflict
		}
	}
	now := s.now().UTC()
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = now, now
	s.d.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return core.UserProfile{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = core.NormalizeEmail(email)
	for _, u := range s.d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.UserProfile{}, store.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u core.UserProfile) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.d.users[u.ID]
	if !ok {
		return core.UserProfile{}, store.ErrNotFound
	}
	existing.Name = u.Name
	existing.PreferredCurrency = u.PreferredCurrency
	existing.MonthlyIncome = u.MonthlyIncome
	existing.UpdatedAt = s.now().UTC()
	s.d.users[u.ID] = existing
	return existing, nil
}

// Transactions

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	t.ID = s.id()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now
	s.d.transactions[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.d.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = store.DefaultTransactionLimit
	}
	s.mu.Lock()
	out := s.userTransactions(userID, func(core.Transaction) bool { return true })
	s.mu.Unlock()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListTransactionsInMonth(_ context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userTransactions(userID, func(t core.Transaction) bool {
		return t.Date.Year() == year && t.Date.Month() == month
	}), nil
}

// userTransactions must be called with mu held.
func (s *Store) userTransactions(userID int64, keep func(core.Transaction) bool) []core.Transaction {
	out := []core.Transaction{}
	for _, t := range s.d.transactions {
		if t.UserID == userID && keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.d.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Transaction{}, store.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.Version = existing.Version + 1
	t.UpdatedAt = s.now().UTC()
	s.d.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.d.transactions[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.d.transactions, id)
	return nil
}

// Budgets

func (s *Store) SetBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Spent = core.Money{}
	for id, existing := range s.d.budgets {
		if existing.UserID == b.UserID && existing.Category == b.Category &&
			existing.Month == b.Month && existing.Year == b.Year {
			existing.Limit = b.Limit
			s.d.budgets[id] = existing
			return existing, nil
		}
	}
	b.ID = s.id()
	s.d.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, userID int64, category string, month, year int) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.d.budgets {
		if b.UserID == userID && b.Category == category && b.Month == month && b.Year == year {
			return b, nil
		}
	}
	return core.Budget{}, store.ErrNotFound
}

func (s *Store) ListBudgets(_ context.Context, userID int64, month, year int) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Budget{}
	for _, b := range s.d.budgets {
		if b.UserID == userID && b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) DeleteBudget(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.d.budgets[id]
	if !ok || b.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.d.budgets, id)
	return nil
}

// Todos

func (s *Store) AddTodo(_ context.Context, t core.Todo) (core.Todo, error) {
	if err := t.Validate(); err != nil {
		return core.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	t.Completed = false
	t.CreatedAt = s.now().UTC()
	s.d.todos[t.ID] = t
	return t, nil
}

func (s *Store) GetTodo(_ context.Context, userID, id int64) (core.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.d.todos[id]
	if !ok || t.UserID != userID {
		return core.Todo{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTodos(_ context.Context, userID int64) ([]core.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Todo{}
	for _, t := range s.d.todos {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return !out[i].Completed
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListDueTodos(_ context.Context, before core.Date) ([]core.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Todo{}
	for _, t := range s.d.todos {
		if t.Completed || t.DueDate.IsEmpty() || t.DueDate.After(before.Time) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateTodo(_ context.Context, t core.Todo) (core.Todo, error) {
	if err := t.Validate(); err != nil {
		return core.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.d.todos[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Todo{}, store.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	s.d.todos[t.ID] = t
	return t, nil
}

func (s *Store) MarkTodoCompleted(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.d.todos[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	if t.Completed {
		return store.ErrAlreadyCompleted
	}
	t.Completed = true
	s.d.todos[id] = t
	return nil
}

func (s *Store) DeleteTodo(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.d.todos[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.d.todos, id)
	return nil
}

// Conversations

func (s *Store) SaveConversation(_ context.Context, c core.Conversation) (core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now().UTC()
	}
	s.d.conversations[c.ID] = c
	return c, nil
}

func (s *Store) ListConversations(_ context.Context, userID int64, limit int) ([]core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Conversation{}
	for _, c := range s.d.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Insights

func (s *Store) SaveInsight(_ context.Context, i core.Insight) (core.Insight, error) {
	if err := i.Validate(); err != nil {
		return core.Insight{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.id()
	if i.Timestamp.IsZero() {
		i.Timestamp = s.now().UTC()
	}
	s.d.insights[i.ID] = i
	return i, nil
}

func (s *Store) ListInsights(_ context.Context, userID int64, unacknowledgedOnly bool) ([]core.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Insight{}
	for _, i := range s.d.insights {
		if i.UserID != userID || (unacknowledgedOnly && i.Acknowledged) {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Timestamp.Equal(out[b].Timestamp) {
			return out[a].Timestamp.After(out[b].Timestamp)
		}
		return out[a].ID > out[b].ID
	})
	if len(out) > store.MaxInsights {
		out = out[:store.MaxInsights]
	}
	return out, nil
}

func (s *Store) AcknowledgeInsight(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.d.insights[id]
	if !ok || i.UserID != userID {
		return store.ErrNotFound
	}
	i.Acknowledged = true
	s.d.insights[id] = i
	return nil
}

func (s *Store) HasInsight(_ context.Context, userID int64, message string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.d.insights {
		if i.UserID == userID && i.Message == message && !i.Timestamp.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// AI memory

func (s *Store) SaveMemory(_ context.Context, m core.AIMemory) error {
	if err := m.Preferences.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m.LastUpdated = s.now().UTC()
	m.Preferences.FinancialGoals = append([]string(nil), m.Preferences.FinancialGoals...)
	s.d.memories[m.UserID] = m
	return nil
}

func (s *Store) GetMemory(_ context.Context, userID int64) (core.AIMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.d.memories[userID]
	if !ok {
		return core.AIMemory{}, store.ErrNotFound
	}
	m.Preferences.FinancialGoals = append([]string(nil), m.Preferences.FinancialGoals...)
	return m, nil
}

func (s *Store) ClearAIData(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.d.conversations {
		if c.UserID == userID {
			delete(s.d.conversations, id)
		}
	}
	for id, i := range s.d.insights {
		if i.UserID == userID {
			delete(s.d.insights, id)
		}
	}
	return nil
}
