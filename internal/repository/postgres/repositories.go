package postgres

import "github.com/prn-tf/squidcoin/internal/repository"

// NewRepositories returns every PostgreSQL repository bound to db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:        NewUserRepository(db),
		Transaction: NewTransactionRepository(db),
		File:        NewFileRepository(db),
	}
}
