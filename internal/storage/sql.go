package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"quiz-bot/internal/quiz"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about.
	sqlx.BindDriver(string(DriverSQLite), sqlx.QUESTION)
}

type Config struct {
	Driver          Driver
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds the retry loop around the first connection.
	ConnectTimeout time.Duration
}

func (c Config) dsn() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.DBName,
		), nil
	case DriverSQLite:
		path := c.SQLitePath
		if path == "" {
			path = "quizbot.db"
		}
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path), nil
	default:
		return "", fmt.Errorf("unsupported driver: %q", c.Driver)
	}
}

// SQLStorage implements quiz.Store and quiz.ResponseStore on PostgreSQL or SQLite.
type SQLStorage struct {
	db     *sqlx.DB
	driver Driver
	logger *zap.Logger
	now    func() time.Time
}

var (
	_ quiz.Store         = (*SQLStorage)(nil)
	_ quiz.ResponseStore = (*SQLStorage)(nil)
)

func NewSQLStorage(ctx context.Context, cfg Config, logger *zap.Logger) (*SQLStorage, error) {
	const operation = "storage.NewSQLStorage"

	connStr, err := cfg.dsn()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	var db *sqlx.DB

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	if cfg.ConnectTimeout > 0 {
		retryPolicy.MaxElapsedTime = cfg.ConnectTimeout
	}
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to database...", zap.String("driver", string(cfg.Driver)))

	err = backoff.RetryNotify(
		func() error {
			var connErr error
			db, connErr = sqlx.ConnectContext(ctx, string(cfg.Driver), connStr)
			if connErr != nil {
				return fmt.Errorf("connect: %w", connErr)
			}
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("Database connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection also serializes our transactions.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := RunMigrations(ctx, db.DB, cfg.Driver, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	logger.Info("Successfully connected to database")
	return &SQLStorage{
		db:     db,
		driver: cfg.Driver,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion reports the applied migration version.
func (s *SQLStorage) SchemaVersion(ctx context.Context) (int64, error) {
	return Version(ctx, s.db.DB, s.driver)
}

// Rollback undoes the latest migration.
func (s *SQLStorage) Rollback(ctx context.Context) error {
	return RollbackMigration(ctx, s.db.DB, s.driver, s.logger)
}

// lockQuizRow locks the quiz row for the rest of the transaction. SQLite has no
// row locks; its single writer connection gives the same guarantee.
func (s *SQLStorage) lockQuizRow() string {
	if s.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (s *SQLStorage) Create(ctx context.Context, draft quiz.Draft) (int64, error) {
	const operation = "storage.Create"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, quiz.Unavailable(operation, err)
	}
	defer tx.Rollback()

	var quizID int64
	err = tx.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO quizzes (title, description, creator_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), draft.Title, draft.Description, draft.CreatorID, s.now().Unix()).Scan(&quizID)
	if err != nil {
		return 0, quiz.Unavailable(operation, fmt.Errorf("insert quiz: %w", err))
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO questions (quiz_id, position, prompt, answer) VALUES (?, 0, ?, ?)
	`), quizID, draft.First.Prompt, draft.First.Answer); err != nil {
		return 0, quiz.Unavailable(operation, fmt.Errorf("insert question: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, quiz.Unavailable(operation, err)
	}
	return quizID, nil
}

func (s *SQLStorage) AppendQuestion(ctx context.Context, quizID int64, q quiz.Question) error {
	const operation = "storage.AppendQuestion"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Unavailable(operation, err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.GetContext(ctx, &locked,
		s.db.Rebind(`SELECT id FROM quizzes WHERE id = ?`+s.lockQuizRow()), quizID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", operation, quizID, quiz.ErrNotFound)
	}
	if err != nil {
		return quiz.Unavailable(operation, err)
	}

	var next int
	if err := tx.GetContext(ctx, &next, s.db.Rebind(
		`SELECT COALESCE(MAX(position) + 1, 0) FROM questions WHERE quiz_id = ?`), quizID); err != nil {
		return quiz.Unavailable(operation, err)
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO questions (quiz_id, position, prompt, answer) VALUES (?, ?, ?, ?)
	`), quizID, next, q.Prompt, q.Answer); err != nil {
		return quiz.Unavailable(operation, err)
	}

	if err := tx.Commit(); err != nil {
		return quiz.Unavailable(operation, err)
	}
	return nil
}

type quizRow struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	CreatorID   int64  `db:"creator_id"`
	CreatedAt   int64  `db:"created_at"`
}

func (s *SQLStorage) Get(ctx context.Context, quizID int64) (quiz.Quiz, error) {
	const operation = "storage.Get"

	var row quizRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, title, description, creator_id, created_at
		FROM quizzes
		WHERE id = ?
	`), quizID)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Quiz{}, fmt.Errorf("%s %d: %w", operation, quizID, quiz.ErrNotFound)
	}
	if err != nil {
		return quiz.Quiz{}, quiz.Unavailable(operation, err)
	}

	var questions []quiz.Question
	if err := s.db.SelectContext(ctx, &questions, s.db.Rebind(`
		SELECT prompt, answer FROM questions WHERE quiz_id = ? ORDER BY position
	`), quizID); err != nil {
		return quiz.Quiz{}, quiz.Unavailable(operation, err)
	}

	return quiz.Quiz{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		CreatorID:   row.CreatorID,
		Questions:   questions,
		CreatedAt:   time.Unix(row.CreatedAt, 0),
	}, nil
}

func (s *SQLStorage) Delete(ctx context.Context, quizID int64) error {
	const operation = "storage.Delete"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Unavailable(operation, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM questions WHERE quiz_id = ?`), quizID); err != nil {
		return quiz.Unavailable(operation, err)
	}

	res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM quizzes WHERE id = ?`), quizID)
	if err != nil {
		return quiz.Unavailable(operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return quiz.Unavailable(operation, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", operation, quizID, quiz.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return quiz.Unavailable(operation, err)
	}
	return nil
}

func (s *SQLStorage) ListByCreator(ctx context.Context, creatorID int64) ([]quiz.Summary, error) {
	const operation = "storage.ListByCreator"

	var out []quiz.Summary
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT q.id, q.title, COUNT(qs.position) AS question_count
		FROM quizzes q
		LEFT JOIN questions qs ON qs.quiz_id = q.id
		WHERE q.creator_id = ?
		GROUP BY q.id, q.title
		ORDER BY q.id
	`), creatorID)
	if err != nil {
		return nil, quiz.Unavailable(operation, err)
	}
	return out, nil
}

func (s *SQLStorage) Record(ctx context.Context, r quiz.Response) error {
	const operation = "storage.Record"

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO responses (user_id, quiz_id, question_index, is_correct, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), r.UserID, r.QuizID, r.QuestionIndex, r.Correct, createdAt.Unix())
	if err != nil {
		return quiz.Unavailable(operation, err)
	}
	return nil
}

type responseRow struct {
	UserID        int64 `db:"user_id"`
	QuizID        int64 `db:"quiz_id"`
	QuestionIndex int   `db:"question_index"`
	Correct       bool  `db:"is_correct"`
	CreatedAt     int64 `db:"created_at"`
}

func (s *SQLStorage) ListByQuiz(ctx context.Context, quizID int64) ([]quiz.Response, error) {
	const operation = "storage.ListByQuiz"

	var rows []responseRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT user_id, quiz_id, question_index, is_correct, created_at
		FROM responses
		WHERE quiz_id = ?
		ORDER BY id
	`), quizID); err != nil {
		return nil, quiz.Unavailable(operation, err)
	}

	out := make([]quiz.Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, quiz.Response{
			UserID:        row.UserID,
			QuizID:        row.QuizID,
			QuestionIndex: row.QuestionIndex,
			Correct:       row.Correct,
			CreatedAt:     time.Unix(row.CreatedAt, 0),
		})
	}
	return out, nil
}
