package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

const fileColumns = `hash, name, type, size, description, is_published, fee, created_at, updated_at`

// fileRepository implements repository.FileRepository for SQLite.
type fileRepository struct {
	db *DB
}

// NewFileRepository creates a new SQLite file repository.
func NewFileRepository(db *DB) repository.FileRepository {
	return &fileRepository{db: db}
}

func scanFile(row rowScanner) (*domain.FileData, error) {
	f := &domain.FileData{}
	var published int
	var fee, createdAt, updatedAt string

	err := row.Scan(
		&f.Hash,
		&f.Name,
		&f.Type,
		&f.Size,
		&f.Description,
		&published,
		&fee,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if f.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("invalid fee for file %s: %w", f.Hash, err)
	}
	f.IsPublished = published != 0
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)

	return f, nil
}

// Create registers a new file.
func (r *fileRepository) Create(ctx context.Context, f *domain.FileData) error {
	query := `
		INSERT INTO files (` + fileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		f.Hash,
		f.Name,
		f.Type,
		f.Size,
		f.Description,
		boolToInt(f.IsPublished),
		f.Fee.String(),
		formatTime(f.CreatedAt),
		formatTime(f.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrFileAlreadyExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByHash retrieves a file by content hash.
func (r *fileRepository) GetByHash(ctx context.Context, hash string) (*domain.FileData, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE hash = ?`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// List returns registered files, newest first.
func (r *fileRepository) List(ctx context.Context, opts repository.FileListOptions) (*repository.ListResult[domain.FileData], error) {
	where := ""
	args := []any{}
	if opts.PublishedOnly {
		where = " WHERE is_published = 1"
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	query := `SELECT ` + fileColumns + ` FROM files` + where + ` ORDER BY created_at DESC, hash LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := make([]*domain.FileData, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return &repository.ListResult[domain.FileData]{
		Items:  files,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update updates the mutable fields of a file.
func (r *fileRepository) Update(ctx context.Context, f *domain.FileData) error {
	query := `
		UPDATE files
		SET name = ?, type = ?, size = ?, description = ?, is_published = ?, fee = ?, updated_at = ?
		WHERE hash = ?
	`

	f.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		f.Name,
		f.Type,
		f.Size,
		f.Description,
		boolToInt(f.IsPublished),
		f.Fee.String(),
		formatTime(f.UpdatedAt),
		f.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}

// DeleteByHash removes a file record.
func (r *fileRepository) DeleteByHash(ctx context.Context, hash string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}

// Ensure fileRepository implements repository.FileRepository.
var _ repository.FileRepository = (*fileRepository)(nil)
