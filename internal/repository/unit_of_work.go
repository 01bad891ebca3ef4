package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepos bundles the repositories bound to one transaction.
type TxRepos struct {
	Consultations ConsultationRepository
	Messages      MessageRepository
	Attachments   AttachmentRepository
}

// UnitOfWork scopes a set of repository operations to one transaction on one
// pooled connection. The connection is released on every exit path: commit on
// success, rollback on error or panic.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx TxRepos) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) WithinTx(ctx context.Context, fn func(tx TxRepos) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	// Rollback after a successful commit is a no-op.
	defer tx.Rollback(ctx) //nolint:errcheck

	repos := TxRepos{
		Consultations: NewConsultationRepository(tx),
		Messages:      NewMessageRepository(tx),
		Attachments:   NewAttachmentRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
