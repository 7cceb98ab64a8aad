package service

import "github.com/prn-tf/squidcoin/internal/repository"

// Page size bounds for list operations.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// page clamps client paging parameters.
func page(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Offset: offset, Limit: limit}
}
