package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrAccountNotFound = errors.New("account not found")

// Ref selects one trading account: the user's permanent account, or the
// account scoped to an event registration. It is the single account-context
// value the execution engine is parameterized over.
type Ref struct {
	UserID  string
	Kind    types.AccountKind
	EventID string
}

func MainRef(userID string) Ref {
	return Ref{UserID: userID, Kind: types.AccountMain}
}

func EventRef(userID, eventID string) Ref {
	return Ref{UserID: userID, Kind: types.AccountEvent, EventID: eventID}
}

func (r Ref) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	switch r.Kind {
	case types.AccountMain:
		return nil
	case types.AccountEvent:
		if r.EventID == "" {
			return errors.New("event_id is required for event accounts")
		}
		return nil
	default:
		return fmt.Errorf("unknown account kind %q", r.Kind)
	}
}

type Service struct {
	pool           *pgxpool.Pool
	openingBalance decimal.Decimal
}

func NewService(pool *pgxpool.Pool, openingBalance decimal.Decimal) *Service {
	return &Service{pool: pool, openingBalance: openingBalance}
}

const accountColumns = "id, kind, user_id, event_id, cash, used_margin, created_at, updated_at"

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	var kind string
	err := row.Scan(&a.ID, &kind, &a.UserID, &a.EventID, &a.Cash, &a.UsedMargin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Kind = types.AccountKind(kind)
	return a, nil
}

// EnsureForUpdate resolves and row-locks the account for ref inside tx. Main
// accounts are created lazily with the configured opening balance; event
// accounts must already exist (they are seeded at registration time).
func (s *Service) EnsureForUpdate(ctx context.Context, tx pgx.Tx, ref Ref) (model.Account, error) {
	if err := ref.Validate(); err != nil {
		return model.Account{}, err
	}
	if ref.Kind == types.AccountEvent {
		a, err := scanAccount(tx.QueryRow(ctx,
			"select "+accountColumns+" from accounts where kind = 'event' and user_id = $1 and event_id = $2 for update",
			ref.UserID, ref.EventID))
		if errors.Is(err, pgx.ErrNoRows) {
			return a, ErrAccountNotFound
		}
		return a, err
	}
	a, err := scanAccount(tx.QueryRow(ctx,
		"select "+accountColumns+" from accounts where kind = 'main' and user_id = $1 for update",
		ref.UserID))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return a, err
	}
	now := time.Now().UTC()
	return scanAccount(tx.QueryRow(ctx,
		"insert into accounts (kind, user_id, cash, used_margin, created_at, updated_at) values ('main', $1, $2, 0, $3, $3) returning "+accountColumns,
		ref.UserID, s.openingBalance, now))
}

// GetForUpdate row-locks an account by id (used by the forced square-off
// path, which starts from a position rather than a Ref).
func (s *Service) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (model.Account, error) {
	a, err := scanAccount(tx.QueryRow(ctx,
		"select "+accountColumns+" from accounts where id = $1 for update", accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrAccountNotFound
	}
	return a, err
}

// Get is the read-only resolve used by portfolio aggregation. A main account
// that has never traded reads as the opening balance without being persisted.
func (s *Service) Get(ctx context.Context, ref Ref) (model.Account, error) {
	if err := ref.Validate(); err != nil {
		return model.Account{}, err
	}
	var row pgx.Row
	if ref.Kind == types.AccountEvent {
		row = s.pool.QueryRow(ctx,
			"select "+accountColumns+" from accounts where kind = 'event' and user_id = $1 and event_id = $2",
			ref.UserID, ref.EventID)
	} else {
		row = s.pool.QueryRow(ctx,
			"select "+accountColumns+" from accounts where kind = 'main' and user_id = $1",
			ref.UserID)
	}
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if ref.Kind == types.AccountMain {
			return model.Account{
				Kind:   types.AccountMain,
				UserID: ref.UserID,
				Cash:   s.openingBalance,
			}, nil
		}
		return a, ErrAccountNotFound
	}
	return a, err
}

// CreateEventAccount eagerly creates the event-scoped account seeded with the
// event's configured balance. Invoked by the registration flow over the
// internal API; re-registration is rejected by the unique index.
func (s *Service) CreateEventAccount(ctx context.Context, userID, eventID string, balance decimal.Decimal) (model.Account, error) {
	if userID == "" || eventID == "" {
		return model.Account{}, errors.New("user_id and event_id are required")
	}
	if balance.IsNegative() {
		return model.Account{}, errors.New("opening balance must not be negative")
	}
	now := time.Now().UTC()
	a, err := scanAccount(s.pool.QueryRow(ctx,
		"insert into accounts (kind, user_id, event_id, cash, used_margin, created_at, updated_at) values ('event', $1, $2, $3, 0, $4, $4) returning "+accountColumns,
		userID, eventID, balance, now))
	if err != nil {
		return a, fmt.Errorf("create event account: %w", err)
	}
	return a, nil
}

// UpdateFunds persists the cash/usedMargin pair computed by the funds rules.
func (s *Service) UpdateFunds(ctx context.Context, tx pgx.Tx, accountID string, f Funds) error {
	_, err := tx.Exec(ctx,
		"update accounts set cash = $1, used_margin = $2, updated_at = $3 where id = $4",
		f.Cash, f.UsedMargin, time.Now().UTC(), accountID)
	return err
}
