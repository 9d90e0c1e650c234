package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

// Repository implements store.Store over database/sql for SQLite and
// PostgreSQL.
type Repository struct {
	db      *sql.DB // nil inside WithTx
	q       *Queries
	dialect Dialect
	logger  *log.Logger
	now     func() time.Time
}

var (
	_ store.Store      = (*Repository)(nil)
	_ store.Transactor = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the SQLite file and migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open(SQLite, dbPath, logger)
}

// NewPostgresRepository connects to dsn and migrates the schema.
func NewPostgresRepository(dsn string, logger *log.Logger) (*Repository, error) {
	return Open(Postgres, dsn, logger)
}

// Open connects with the dialect's driver, pings, and runs migrations.
func Open(d Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		q:       New(db, d),
		dialect: d,
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

// Dialect reports which SQL flavour backs the repository.
func (r *Repository) Dialect() Dialect { return r.dialect }

// WithTx runs fn inside a database transaction, committing when it returns nil.
func (r *Repository) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txRepo := &Repository{q: r.q.WithTx(tx), dialect: r.dialect, logger: r.logger, now: r.now}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.ErrorContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) stamp() time.Time {
	return r.now().UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// Users

const userColumns = `id, name, email, password_hash, preferred_currency, monthly_income, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (core.UserProfile, error) {
	var u core.UserProfile
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PreferredCurrency,
		&u.MonthlyIncome.Cents, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error) {
	now := r.stamp()
	u.Email = core.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	err := r.q.queryRow(ctx,
		`INSERT INTO users (name, email, password_hash, preferred_currency, monthly_income, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.PreferredCurrency, u.MonthlyIncome.Cents, now, now,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.UserProfile{}, store.ErrConflict
		}
		return core.UserProfile{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.UserProfile, error) {
	u, err := scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.UserProfile{}, notFound(err)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.UserProfile, error) {
	u, err := scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email)))
	if err != nil {
		return core.UserProfile{}, notFound(err)
	}
	return u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error) {
	err := affected(r.q.exec(ctx,
		`UPDATE users SET name = ?, preferred_currency = ?, monthly_income = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.PreferredCurrency, u.MonthlyIncome.Cents, r.stamp(), u.ID))
	if err != nil {
		return core.UserProfile{}, notFound(err)
	}
	return r.GetUser(ctx, u.ID)
}

// Transactions

const transactionColumns = `id, user_id, type, title, amount_cents, category, tx_date, note, version, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (core.Transaction, error) {
	var t core.Transaction
	var typ string
	err := row.Scan(&t.ID, &t.UserID, &typ, &t.Title, &t.Amount.Cents, &t.Category,
		dateValue{&t.Date}, &t.Note, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	t.Type = core.TransactionType(typ)
	return t, err
}

func (r *Repository) listTransactions(ctx context.Context, query string, args ...interface{}) ([]core.Transaction, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := r.stamp()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now
	err := r.q.queryRow(ctx,
		`INSERT INTO transactions (user_id, type, title, amount_cents, category, tx_date, note, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		t.UserID, string(t.Type), t.Title, t.Amount.Cents, t.Category, dateValue{&t.Date}, t.Note, t.Version, now, now,
	).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction inserted",
		log.FieldTransactionID, t.ID,
		log.FieldUserID, t.UserID,
		log.FieldAmountCents, t.Amount.Cents)
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.q.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Transaction{}, notFound(err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = store.DefaultTransactionLimit
	}
	out, err := r.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ?
		 ORDER BY tx_date DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) ListTransactionsInMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	start, end := monthRange(year, month)
	out, err := r.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND tx_date >= ? AND tx_date < ?
		 ORDER BY tx_date DESC, id DESC`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list transactions in month: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := affected(r.q.exec(ctx,
		`UPDATE transactions
		 SET type = ?, title = ?, amount_cents = ?, category = ?, tx_date = ?, note = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Title, t.Amount.Cents, t.Category, dateValue{&t.Date}, t.Note, r.stamp(), t.ID, t.UserID))
	if err != nil {
		return core.Transaction{}, notFound(err)
	}
	return r.GetTransaction(ctx, t.UserID, t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	err := affected(r.q.exec(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	return notFound(err)
}

// Budgets

const budgetColumns = `id, user_id, category, limit_cents, month, year`

func scanBudget(row interface{ Scan(...interface{}) error }) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit.Cents, &b.Month, &b.Year)
	return b, err
}

func (r *Repository) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.Spent = core.Money{}
	err := r.q.queryRow(ctx,
		`INSERT INTO budgets (user_id, category, limit_cents, month, year) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category, month, year) DO UPDATE SET limit_cents = excluded.limit_cents
		 RETURNING id`,
		b.UserID, b.Category, b.Limit.Cents, b.Month, b.Year,
	).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}
	return b, nil
}

func (r *Repository) GetBudget(ctx context.Context, userID int64, category string, month, year int) (core.Budget, error) {
	b, err := scanBudget(r.q.queryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND category = ? AND month = ? AND year = ?`,
		userID, category, month, year))
	if err != nil {
		return core.Budget{}, notFound(err)
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64, month, year int) ([]core.Budget, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND month = ? AND year = ? ORDER BY category`,
		userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id int64) error {
	return notFound(affected(r.q.exec(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)))
}

// Todos

const todoColumns = `id, user_id, title, amount_cents, category, due_date, note, completed, created_at`

func scanTodo(row interface{ Scan(...interface{}) error }) (core.Todo, error) {
	var t core.Todo
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount.Cents, &t.Category,
		dateValue{&t.DueDate}, &t.Note, &t.Completed, &t.CreatedAt)
	return t, err
}

func (r *Repository) listTodos(ctx context.Context, query string, args ...interface{}) ([]core.Todo, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) AddTodo(ctx context.Context, t core.Todo) (core.Todo, error) {
	if err := t.Validate(); err != nil {
		return core.Todo{}, err
	}
	t.Completed = false
	t.CreatedAt = r.stamp()
	err := r.q.queryRow(ctx,
		`INSERT INTO todos (user_id, title, amount_cents, category, due_date, note, completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		t.UserID, t.Title, t.Amount.Cents, t.Category, dateValue{&t.DueDate}, t.Note, false, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return core.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

func (r *Repository) GetTodo(ctx context.Context, userID, id int64) (core.Todo, error) {
	t, err := scanTodo(r.q.queryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Todo{}, notFound(err)
	}
	return t, nil
}

func (r *Repository) ListTodos(ctx context.Context, userID int64) ([]core.Todo, error) {
	out, err := r.listTodos(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = ? ORDER BY completed ASC, created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return out, nil
}

func (r *Repository) ListDueTodos(ctx context.Context, before core.Date) ([]core.Todo, error) {
	out, err := r.listTodos(ctx,
		`SELECT `+todoColumns+` FROM todos
		 WHERE completed = ? AND due_date <> '' AND due_date <= ? ORDER BY id`, false, before.String())
	if err != nil {
		return nil, fmt.Errorf("list due todos: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateTodo(ctx context.Context, t core.Todo) (core.Todo, error) {
	if err := t.Validate(); err != nil {
		return core.Todo{}, err
	}
	err := affected(r.q.exec(ctx,
		`UPDATE todos SET title = ?, amount_cents = ?, category = ?, due_date = ?, note = ?, completed = ?
		 WHERE id = ? AND user_id = ?`,
		t.Title, t.Amount.Cents, t.Category, dateValue{&t.DueDate}, t.Note, t.Completed, t.ID, t.UserID))
	if err != nil {
		return core.Todo{}, notFound(err)
	}
	return r.GetTodo(ctx, t.UserID, t.ID)
}

func (r *Repository) MarkTodoCompleted(ctx context.Context, userID, id int64) error {
	err := affected(r.q.exec(ctx,
		`UPDATE todos SET completed = ? WHERE id = ? AND user_id = ? AND completed = ?`, true, id, userID, false))
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, err := r.GetTodo(ctx, userID, id); err != nil {
		return err
	}
	return store.ErrAlreadyCompleted
}

func (r *Repository) DeleteTodo(ctx context.Context, userID, id int64) error {
	return notFound(affected(r.q.exec(ctx, `DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)))
}

// Conversations

func (r *Repository) SaveConversation(ctx context.Context, c core.Conversation) (core.Conversation, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = r.stamp()
	}
	err := r.q.queryRow(ctx,
		`INSERT INTO conversations (user_id, user_message, ai_response, page, balance_cents, recent_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		c.UserID, c.UserMessage, c.AIResponse, c.Context.Page, c.Context.Balance.Cents,
		c.Context.RecentTransactions, c.Timestamp.UTC(),
	).Scan(&c.ID)
	if err != nil {
		return core.Conversation{}, fmt.Errorf("save conversation: %w", err)
	}
	return c, nil
}

func (r *Repository) ListConversations(ctx context.Context, userID int64, limit int) ([]core.Conversation, error) {
	query := `SELECT id, user_id, user_message, ai_response, page, balance_cents, recent_count, created_at
		 FROM conversations WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()
	out := []core.Conversation{}
	for rows.Next() {
		var c core.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.UserMessage, &c.AIResponse, &c.Context.Page,
			&c.Context.Balance.Cents, &c.Context.RecentTransactions, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Insights

func (r *Repository) SaveInsight(ctx context.Context, i core.Insight) (core.Insight, error) {
	if err := i.Validate(); err != nil {
		return core.Insight{}, err
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = r.stamp()
	}
	err := r.q.queryRow(ctx,
		`INSERT INTO insights (user_id, type, message, acknowledged, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		i.UserID, string(i.Type), i.Message, i.Acknowledged, i.Timestamp.UTC(),
	).Scan(&i.ID)
	if err != nil {
		return core.Insight{}, fmt.Errorf("save insight: %w", err)
	}
	return i, nil
}

func (r *Repository) ListInsights(ctx context.Context, userID int64, unacknowledgedOnly bool) ([]core.Insight, error) {
	query := `SELECT id, user_id, type, message, acknowledged, created_at FROM insights WHERE user_id = ?`
	args := []interface{}{userID}
	if unacknowledgedOnly {
		query += ` AND acknowledged = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, store.MaxInsights)

	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()
	out := []core.Insight{}
	for rows.Next() {
		var i core.Insight
		var typ string
		if err := rows.Scan(&i.ID, &i.UserID, &typ, &i.Message, &i.Acknowledged, &i.Timestamp); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		i.Type = core.InsightType(typ)
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *Repository) AcknowledgeInsight(ctx context.Context, userID, id int64) error {
	return notFound(affected(r.q.exec(ctx,
		`UPDATE insights SET acknowledged = ? WHERE id = ? AND user_id = ?`, true, id, userID)))
}

func (r *Repository) HasInsight(ctx context.Context, userID int64, message string, since time.Time) (bool, error) {
	var n int
	err := r.q.queryRow(ctx,
		`SELECT COUNT(*) FROM insights WHERE user_id = ? AND message = ? AND created_at >= ?`,
		userID, message, since.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check insight: %w", err)
	}
	return n > 0, nil
}

// AI memory

func (r *Repository) SaveMemory(ctx context.Context, m core.AIMemory) error {
	if err := m.Preferences.Validate(); err != nil {
		return err
	}
	prefs, err := json.Marshal(m.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = r.q.exec(ctx,
		`INSERT INTO ai_memory (user_id, preferences, last_updated) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET preferences = excluded.preferences, last_updated = excluded.last_updated`,
		m.UserID, string(prefs), r.stamp())
	if err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

func (r *Repository) GetMemory(ctx context.Context, userID int64) (core.AIMemory, error) {
	m := core.AIMemory{UserID: userID}
	var prefs string
	err := r.q.queryRow(ctx, `SELECT preferences, last_updated FROM ai_memory WHERE user_id = ?`, userID).
		Scan(&prefs, &m.LastUpdated)
	if err != nil {
		return core.AIMemory{}, notFound(err)
	}
	if err := json.Unmarshal([]byte(prefs), &m.Preferences); err != nil {
		return core.AIMemory{}, fmt.Errorf("decode preferences: %w", err)
	}
	return m, nil
}

func (r *Repository) ClearAIData(ctx context.Context, userID int64) error {
	return r.WithTx(ctx, func(s store.Store) error {
		tr := s.(*Repository)
		if _, err := tr.q.exec(ctx, `DELETE FROM conversations WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear conversations: %w", err)
		}
		if _, err := tr.q.exec(ctx, `DELETE FROM insights WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear insights: %w", err)
		}
		return nil
	})
}
