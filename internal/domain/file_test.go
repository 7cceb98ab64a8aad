package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFileData_Validate_AcceptsFalsyValues(t *testing.T) {
	f := NewFileData("abcd1234", "song.mp3", "audio/mpeg", 0, "", false, decimal.Zero)
	assert.NoError(t, f.Validate())
}

func TestFileData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FileData)
		wantErr error
	}{
		{name: "empty hash", mutate: func(f *FileData) { f.Hash = "" }, wantErr: ErrInvalidHash},
		{name: "hash with slash", mutate: func(f *FileData) { f.Hash = "../etc" }, wantErr: ErrInvalidHash},
		{name: "hash too long", mutate: func(f *FileData) { f.Hash = strings.Repeat("a", MaxHashLength+1) }, wantErr: ErrInvalidHash},
		{name: "empty name", mutate: func(f *FileData) { f.Name = "" }, wantErr: ErrInvalidFileName},
		{name: "empty type", mutate: func(f *FileData) { f.Type = "" }, wantErr: ErrInvalidFileType},
		{name: "negative size", mutate: func(f *FileData) { f.Size = -5 }, wantErr: ErrInvalidFileSize},
		{name: "negative fee", mutate: func(f *FileData) { f.Fee = decimal.NewFromInt(-1) }, wantErr: ErrNegativeFee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFileData("QmHash_01-x", "a.txt", "text/plain", 10, "desc", true, decimal.NewFromInt(2))
			tt.mutate(f)
			assert.ErrorIs(t, f.Validate(), tt.wantErr)
		})
	}
}
