package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
	"github.com/prn-tf/squidcoin/internal/storage"
)

// DefaultPresignTTL is used when DownloadConfig.PresignTTL is zero.
const DefaultPresignTTL = 15 * time.Minute

// DownloadConfig configures presigned transfers.
type DownloadConfig struct {
	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// PresignTTL is the lifetime of issued URLs.
	PresignTTL time.Duration
}

// DownloadService hands out presigned URLs for file content.
type DownloadService struct {
	fileRepo repository.FileRepository
	store    storage.ObjectStore
	logger   zerolog.Logger
	config   DownloadConfig
}

// NewDownloadService creates a new DownloadService.
// store may be nil, in which case every request fails with ErrStorageUnavailable.
func NewDownloadService(fileRepo repository.FileRepository, store storage.ObjectStore, logger zerolog.Logger, config DownloadConfig) *DownloadService {
	if config.PresignTTL <= 0 {
		config.PresignTTL = DefaultPresignTTL
	}
	return &DownloadService{
		fileRepo: fileRepo,
		store:    store,
		logger:   logger.With().Str("service", "download").Logger(),
		config:   config,
	}
}

// DownloadTicket is a presigned download plus what it costs.
type DownloadTicket struct {
	URL       string          `json:"url"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Fee       decimal.Decimal `json:"fee"`
	Size      int64           `json:"size"`
}

// UploadTicket is a presigned upload for a registered file's content.
type UploadTicket struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RequestDownload presigns a GET for a published file's content.
func (s *DownloadService) RequestDownload(ctx context.Context, hash string) (*DownloadTicket, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	file, err := s.lookup(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !file.IsPublished {
		return nil, domain.ErrFileNotPublished
	}

	key := storage.ObjectKey(s.config.KeyPrefix, file.Hash)
	signed, err := s.store.PresignGet(ctx, key, s.config.PresignTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to presign download")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Str("hash", hash).Time("expires_at", signed.ExpiresAt).Msg("download presigned")
	return &DownloadTicket{
		URL:       signed.URL,
		ExpiresAt: signed.ExpiresAt,
		Fee:       file.Fee,
		Size:      file.Size,
	}, nil
}

// RequestUpload presigns a PUT so a provider can push a registered file's content.
func (s *DownloadService) RequestUpload(ctx context.Context, hash string) (*UploadTicket, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	file, err := s.lookup(ctx, hash)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(s.config.KeyPrefix, file.Hash)
	signed, err := s.store.PresignPut(ctx, key, s.config.PresignTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to presign upload")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().Str("hash", hash).Time("expires_at", signed.ExpiresAt).Msg("upload presigned")
	return &UploadTicket{URL: signed.URL, ExpiresAt: signed.ExpiresAt}, nil
}

func (s *DownloadService) lookup(ctx context.Context, hash string) (*domain.FileData, error) {
	if err := domain.ValidateHash(hash); err != nil {
		return nil, err
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
