package accessRepository

import (
	"context"

	"HotelGate/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
	EnsureSchema(ctx context.Context) error
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Events:   &eventRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, queryCreateTable); err != nil {
		r.log.WithField("error", err.Error()).Error("Failed to create access_events table")
		return err
	}
	return nil
}

type Client struct {
	Events interface {
		Insert(ctx context.Context, event entity.AccessEvent) error
		ListByBooking(ctx context.Context, bookingID int64, limit int) ([]entity.AccessEvent, error)
		ListRecent(ctx context.Context, limit int) ([]entity.AccessEvent, error)
	}

	Commit   func() error
	Rollback func() error
}

type eventRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
