package postgres

import (
	"context"
	"errors"
	"time"

	"travelbook/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// DefaultPaymentHold is how long a started payment keeps its dates.
const DefaultPaymentHold = 30 * time.Minute

type Store struct {
	pool        DB
	paymentHold time.Duration
	now         func() time.Time
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithPaymentHold sets how long an awaiting_payment booking blocks its
// dates. Non-positive values keep the default.
func WithPaymentHold(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.paymentHold = d
		}
	}
}

func NewStore(pool DB, opts ...Option) *Store {
	s := &Store{pool: pool, paymentHold: DefaultPaymentHold, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
