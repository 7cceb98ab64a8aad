package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxHashLength bounds the stored content hash (SHA-256 hex or a CID).
const MaxHashLength = 255

// MaxFileNameLength bounds file names.
const MaxFileNameLength = 255

// FileData is the metadata record of an uploaded file, keyed by content hash.
type FileData struct {
	// Hash is the content hash and primary key.
	Hash string `json:"hash"`

	// Name is the original file name.
	Name string `json:"name"`

	// Type is the MIME type or extension.
	Type string `json:"type"`

	// Size is the content size in bytes.
	Size int64 `json:"size"`

	// Description is a free-form description. May be empty.
	Description string `json:"description"`

	// IsPublished marks the file as offered on the marketplace.
	IsPublished bool `json:"isPublished"`

	// Fee is the price asked per download. Zero is a valid fee.
	Fee decimal.Decimal `json:"fee"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewFileData creates a new FileData record.
func NewFileData(hash, name, fileType string, size int64, description string, published bool, fee decimal.Decimal) *FileData {
	now := time.Now().UTC()
	return &FileData{
		Hash:        hash,
		Name:        name,
		Type:        fileType,
		Size:        size,
		Description: description,
		IsPublished: published,
		Fee:         fee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the record invariants.
func (f *FileData) Validate() error {
	if err := ValidateHash(f.Hash); err != nil {
		return err
	}
	if f.Name == "" || len(f.Name) > MaxFileNameLength {
		return ErrInvalidFileName
	}
	if f.Type == "" {
		return ErrInvalidFileType
	}
	if f.Size < 0 {
		return ErrInvalidFileSize
	}
	if f.Fee.IsNegative() {
		return ErrNegativeFee
	}
	return nil
}

// ValidateHash checks the content hash format: 1-255 characters of
// letters, digits, '-' or '_'.
func ValidateHash(hash string) error {
	if len(hash) == 0 || len(hash) > MaxHashLength {
		return ErrInvalidHash
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ErrInvalidHash
		}
	}
	return nil
}
