package postgres

import (
	"context"
	"database/sql"
	"errors"

	"quiz-backend/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store implements the user, quiz and result repositories on Postgres.
// Writes go through bun (transactions, models); reads go through a pgx pool.
type Store struct {
	db   *bun.DB
	pool *pgxpool.Pool
}

func NewStore(db *bun.DB, pool *pgxpool.Pool) *Store {
	return &Store{db: db, pool: pool}
}

// Open connects both handles to dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewStore(db, pool), nil
}

// DB exposes the bun handle for migrations.
func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Close() error {
	s.pool.Close()
	return s.db.Close()
}

// Constraint names from the schema migration.
const (
	constraintUsername    = "users_username_key"
	constraintQuizOwner   = "quizzes_user_id_fkey"
	constraintResultQuiz  = "results_quiz_id_fkey"
	constraintResultUser  = "results_user_id_fkey"
	sqlstateUniqueViolate = "23505"
	sqlstateFKViolate     = "23503"
)

// translateError maps constraint violations to domain errors.
func translateError(err error) error {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return err
	}
	constraint := pgErr.Field('n')
	switch pgErr.Field('C') {
	case sqlstateUniqueViolate:
		if constraint == constraintUsername {
			return domain.ErrUsernameTaken
		}
	case sqlstateFKViolate:
		switch constraint {
		case constraintResultQuiz:
			return domain.ErrQuizNotFound
		case constraintResultUser, constraintQuizOwner:
			return domain.ErrUserNotFound
		}
	}
	return err
}
