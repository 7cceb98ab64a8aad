package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "files/ab/cd/abcdef12", ObjectKey("files", "abcdef12"))
	assert.Equal(t, "files/abc", ObjectKey("files", "abc"))
	assert.Equal(t, "ab/cd/abcd", ObjectKey("", "abcd"))
}

func TestShardDirs(t *testing.T) {
	cfg := PathConfig{Prefix: "p", ShardLevels: 3, ShardWidth: 1}
	assert.Equal(t, []string{"x", "y", "z"}, ShardDirs(cfg, "xyz123"))
	assert.Equal(t, "p/x/y/z/xyz123", ComputeKey(cfg, "xyz123"))
}

func newOfflineStore() *S3Store {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	})
	return NewS3StoreFromClient(client, "squid", zerolog.Nop())
}

func TestS3Store_Presign(t *testing.T) {
	store := newOfflineStore()
	ctx := context.Background()
	key := ObjectKey("files", "abcdef")

	get, err := store.PresignGet(ctx, key, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "GET", get.Method)

	u, err := url.Parse(get.URL)
	require.NoError(t, err)
	assert.Equal(t, "/squid/"+key, u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), get.ExpiresAt, 5*time.Second)

	put, err := store.PresignPut(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "PUT", put.Method)
	assert.True(t, strings.Contains(put.URL, "X-Amz-Signature="))

	_, err = store.PresignGet(ctx, "", time.Minute)
	assert.Error(t, err)
}
