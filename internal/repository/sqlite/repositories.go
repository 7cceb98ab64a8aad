package sqlite

import "github.com/prn-tf/squidcoin/internal/repository"

// NewRepositories returns every SQLite repository bound to db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:        NewUserRepository(db),
		Transaction: NewTransactionRepository(db),
		File:        NewFileRepository(db),
	}
}
