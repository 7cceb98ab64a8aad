package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/metrics"
	"github.com/prn-tf/squidcoin/internal/repository"
)

// FileService manages the file registry.
type FileService struct {
	fileRepo repository.FileRepository
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewFileService creates a new FileService.
func NewFileService(fileRepo repository.FileRepository, m *metrics.Metrics, logger zerolog.Logger) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		metrics:  m,
		logger:   logger.With().Str("service", "file").Logger(),
	}
}

// UploadFileInput carries a new file record.
// Fields are pointers so that an absent field is distinguishable from a zero value:
// a fee of 0 and isPublished=false are valid.
type UploadFileInput struct {
	Hash        *string
	Name        *string
	Type        *string
	Size        *int64
	Description *string
	IsPublished *bool
	Fee         *decimal.Decimal
}

// missing returns the name of the first absent field, or "".
func (in UploadFileInput) missing() string {
	switch {
	case in.Hash == nil:
		return "hash"
	case in.Name == nil:
		return "name"
	case in.Type == nil:
		return "type"
	case in.Size == nil:
		return "size"
	case in.Description == nil:
		return "description"
	case in.IsPublished == nil:
		return "isPublished"
	case in.Fee == nil:
		return "fee"
	}
	return ""
}

// Upload registers a file record.
// Duplicate hashes are rejected by the repository's primary key.
func (s *FileService) Upload(ctx context.Context, input UploadFileInput) (*domain.FileData, error) {
	if field := input.missing(); field != "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	file := domain.NewFileData(*input.Hash, *input.Name, *input.Type, *input.Size, *input.Description, *input.IsPublished, *input.Fee)
	if err := file.Validate(); err != nil {
		return nil, err
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		if errors.Is(err, domain.ErrFileAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("hash", file.Hash).Msg("failed to create file record")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.FileUploaded()
	s.logger.Info().
		Str("hash", file.Hash).
		Str("name", file.Name).
		Int64("size", file.Size).
		Bool("published", file.IsPublished).
		Msg("file registered")

	return file, nil
}

// List returns a page of file records.
func (s *FileService) List(ctx context.Context, publishedOnly bool, limit, offset int) (*repository.ListResult[domain.FileData], error) {
	result, err := s.fileRepo.List(ctx, repository.FileListOptions{
		ListOptions:   page(limit, offset),
		PublishedOnly: publishedOnly,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list files")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// Get returns the record for a hash.
// A malformed hash can never have been stored, so it reports ErrFileNotFound.
func (s *FileService) Get(ctx context.Context, hash string) (*domain.FileData, error) {
	if err := domain.ValidateHash(hash); err != nil {
		return nil, domain.ErrFileNotFound
	}
	file, err := s.fileRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil, domain.ErrFileNotFound
		}
		s.logger.Error().Err(err).Str("hash", hash).Msg("failed to get file")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return file, nil
}

// UpdateFileInput is a partial update. Nil fields are left unchanged.
type UpdateFileInput struct {
	Name        *string
	Type        *string
	Size        *int64
	Description *string
	IsPublished *bool
	Fee         *decimal.Decimal
}

// Update applies a partial update to a file record.
func (s *FileService) Update(ctx context.Context, hash string, input UpdateFileInput) (*domain.FileData, error) {
	file, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		file.Name = *input.Name
	}
	if input.Type != nil {
		file.Type = *input.Type
	}
	if input.Size != nil {
		file.Size = *input.Size
	}
	if input.Description != nil {
		file.Description = *input.Description
	}
	if input.IsPublished != nil {
		file.IsPublished = *input.IsPublished
	}
	if input.Fee != nil {
		file.Fee = *input.Fee
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	file.UpdatedAt = time.Now().UTC()

	if err := s.fileRepo.Update(ctx, file); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("hash", hash).Msg("failed to update file")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("hash", hash).Msg("file updated")
	return file, nil
}

// Delete removes a file record. A malformed hash reports ErrFileNotFound.
func (s *FileService) Delete(ctx context.Context, hash string) error {
	if err := domain.ValidateHash(hash); err != nil {
		return domain.ErrFileNotFound
	}
	if err := s.fileRepo.DeleteByHash(ctx, hash); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("hash", hash).Msg("failed to delete file")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("hash", hash).Msg("file deleted")
	return nil
}
