package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

const fileSelect = `
	SELECT hash, name, type, size, description, is_published, fee::text, created_at, updated_at
	FROM files
`

// fileRepository implements repository.FileRepository.
type fileRepository struct {
	db *DB
}

// NewFileRepository creates a new PostgreSQL file repository.
func NewFileRepository(db *DB) repository.FileRepository {
	return &fileRepository{db: db}
}

func scanFile(row pgx.Row) (*domain.FileData, error) {
	f := &domain.FileData{}
	var fee string

	err := row.Scan(
		&f.Hash,
		&f.Name,
		&f.Type,
		&f.Size,
		&f.Description,
		&f.IsPublished,
		&fee,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if f.Fee, err = parseDecimal(fee); err != nil {
		return nil, fmt.Errorf("invalid fee for file %s: %w", f.Hash, err)
	}
	return f, nil
}

// Create registers a new file.
func (r *fileRepository) Create(ctx context.Context, f *domain.FileData) error {
	query := `
		INSERT INTO files (hash, name, type, size, description, is_published, fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		f.Hash,
		f.Name,
		f.Type,
		f.Size,
		f.Description,
		f.IsPublished,
		f.Fee.String(),
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return domain.ErrFileAlreadyExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByHash retrieves a file by content hash.
func (r *fileRepository) GetByHash(ctx context.Context, hash string) (*domain.FileData, error) {
	f, err := scanFile(r.db.Pool.QueryRow(ctx, fileSelect+" WHERE hash = $1", hash))
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
	// $1 toggles the published filter so one statement serves both cases.
	const where = ` WHERE (NOT $1::boolean OR is_published)`

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM files`+where, opts.PublishedOnly).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		fileSelect+where+` ORDER BY created_at DESC, hash LIMIT $2 OFFSET $3`,
		opts.PublishedOnly, opts.Limit, opts.Offset,
	)
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
		SET name = $2, type = $3, size = $4, description = $5, is_published = $6, fee = $7, updated_at = $8
		WHERE hash = $1
	`

	f.UpdatedAt = time.Now().UTC()

	result, err := r.db.Pool.Exec(ctx, query,
		f.Hash,
		f.Name,
		f.Type,
		f.Size,
		f.Description,
		f.IsPublished,
		f.Fee.String(),
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}

// DeleteByHash removes a file record.
func (r *fileRepository) DeleteByHash(ctx context.Context, hash string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM files WHERE hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}

// Ensure fileRepository implements repository.FileRepository.
var _ repository.FileRepository = (*fileRepository)(nil)
