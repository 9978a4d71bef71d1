package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"https://cdn.example.com", "contests/0xabc/ended.json", "https://cdn.example.com/contests/0xabc/ended.json"},
		{"https://cdn.example.com/", "/contests/a.json", "https://cdn.example.com/contests/a.json"},
		{"https://cdn.example.com/archive", "contests/a.json", "https://cdn.example.com/archive/contests/a.json"},
		{"https://cdn.example.com/archive/", "contests/a.json", "https://cdn.example.com/archive/contests/a.json"},
		{"https://cdn.example.com", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.base+"|"+tt.key, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, publicURL(base, tt.key))
		})
	}
}

func TestNoopUploader(t *testing.T) {
	u := NewNoopUploader()
	res, err := u.Upload(context.Background(), "k", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, "k", res.Key)
	assert.Empty(t, u.GetPublicURL("k"))
	assert.NoError(t, u.Delete(context.Background(), "k"))
}

func TestNewCloudflareR2Uploader_RequiresEveryField(t *testing.T) {
	cfg := CloudflareR2UploaderConfig{AccountID: "acc", BucketName: "b"}
	assert.True(t, cfg.Enabled())
	_, err := NewCloudflareR2Uploader(context.Background(), cfg)
	require.Error(t, err)
	assert.False(t, CloudflareR2UploaderConfig{}.Enabled())
}
