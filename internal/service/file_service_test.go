package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func completeUpload() UploadFileInput {
	return UploadFileInput{
		Hash:        ptr("abc123"),
		Name:        ptr("song.mp3"),
		Type:        ptr("audio/mpeg"),
		Size:        ptr(int64(2048)),
		Description: ptr(""),
		IsPublished: ptr(false),
		Fee:         ptr(decimal.Zero),
	}
}

func TestFileService_Upload_ZeroValuesAccepted(t *testing.T) {
	repo := new(mockFileRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.FileData) bool {
		return f.Hash == "abc123" && !f.IsPublished && f.Fee.IsZero() && f.Description == ""
	})).Return(nil)
	svc := NewFileService(repo, nil, zerolog.Nop())

	file, err := svc.Upload(context.Background(), completeUpload())
	require.NoError(t, err)
	assert.False(t, file.IsPublished)
	assert.True(t, file.Fee.IsZero())
	repo.AssertExpectations(t)
}

func TestFileService_Upload_MissingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadFileInput)
		field  string
	}{
		{name: "hash", mutate: func(in *UploadFileInput) { in.Hash = nil }, field: "hash"},
		{name: "fee", mutate: func(in *UploadFileInput) { in.Fee = nil }, field: "fee"},
		{name: "published flag", mutate: func(in *UploadFileInput) { in.IsPublished = nil }, field: "isPublished"},
		{name: "description", mutate: func(in *UploadFileInput) { in.Description = nil }, field: "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockFileRepository)
			svc := NewFileService(repo, nil, zerolog.Nop())

			in := completeUpload()
			tt.mutate(&in)
			_, err := svc.Upload(context.Background(), in)
			require.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, err.Error(), tt.field)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestFileService_Upload_InvalidHashAndDuplicate(t *testing.T) {
	repo := new(mockFileRepository)
	svc := NewFileService(repo, nil, zerolog.Nop())

	in := completeUpload()
	in.Hash = ptr("../etc/passwd")
	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidHash)

	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrFileAlreadyExists)
	_, err = svc.Upload(context.Background(), completeUpload())
	assert.ErrorIs(t, err, domain.ErrFileAlreadyExists)
}

func TestFileService_List(t *testing.T) {
	repo := new(mockFileRepository)
	repo.On("List", mock.Anything, repository.FileListOptions{
		ListOptions:   repository.ListOptions{Offset: 10, Limit: 5},
		PublishedOnly: true,
	}).Return(&repository.ListResult[domain.FileData]{Total: 0}, nil)
	svc := NewFileService(repo, nil, zerolog.Nop())

	_, err := svc.List(context.Background(), true, 5, 10)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestFileService_Update(t *testing.T) {
	repo := new(mockFileRepository)
	existing := domain.NewFileData("abc123", "song.mp3", "audio/mpeg", 2048, "", false, decimal.Zero)
	repo.On("GetByHash", mock.Anything, "abc123").Return(existing, nil)
	repo.On("GetByHash", mock.Anything, "missing").Return(nil, domain.ErrFileNotFound)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	svc := NewFileService(repo, nil, zerolog.Nop())
	ctx := context.Background()

	file, err := svc.Update(ctx, "abc123", UpdateFileInput{IsPublished: ptr(true), Fee: ptr(decimal.RequireFromString("0.5"))})
	require.NoError(t, err)
	assert.True(t, file.IsPublished)
	assert.Equal(t, "0.5", file.Fee.String())
	assert.Equal(t, "song.mp3", file.Name)

	_, err = svc.Update(ctx, "abc123", UpdateFileInput{Fee: ptr(decimal.NewFromInt(-1))})
	assert.ErrorIs(t, err, domain.ErrNegativeFee)

	_, err = svc.Update(ctx, "missing", UpdateFileInput{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	_, err = svc.Update(ctx, "a.b", UpdateFileInput{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestFileService_MalformedHashIsNotFound(t *testing.T) {
	repo := new(mockFileRepository)
	svc := NewFileService(repo, nil, zerolog.Nop())
	ctx := context.Background()

	for _, hash := range []string{"a.b", "", "has space", "../etc"} {
		_, err := svc.Get(ctx, hash)
		assert.ErrorIs(t, err, domain.ErrFileNotFound, hash)
		assert.ErrorIs(t, svc.Delete(ctx, hash), domain.ErrFileNotFound, hash)
	}
	repo.AssertNotCalled(t, "GetByHash", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DeleteByHash", mock.Anything, mock.Anything)
}

func TestFileService_Delete(t *testing.T) {
	repo := new(mockFileRepository)
	repo.On("DeleteByHash", mock.Anything, "abc123").Return(nil)
	repo.On("DeleteByHash", mock.Anything, "missing").Return(domain.ErrFileNotFound)
	svc := NewFileService(repo, nil, zerolog.Nop())

	assert.NoError(t, svc.Delete(context.Background(), "abc123"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "missing"), domain.ErrFileNotFound)
}
