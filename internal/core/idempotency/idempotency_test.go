package idempotency

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"a", true},
		{"3f2b-41c9_ZZ", true},
		{strings.Repeat("k", 64), true},
		{strings.Repeat("k", 65), false},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{"ключ", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidKey(tt.key))
		})
	}
}

func TestRequestHash(t *testing.T) {
	assert.Equal(t, RequestHash([]byte(`{"a":1}`)), RequestHash([]byte(`{"a":1}`)))
	assert.NotEqual(t, RequestHash([]byte(`{"a":1}`)), RequestHash([]byte(`{"a":2}`)))
	assert.Len(t, RequestHash(nil), 64)
}

func TestRecord_Expired(t *testing.T) {
	now := time.Now()
	r := &Record{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, r.Expired(now))
	assert.True(t, r.Expired(now.Add(time.Minute)))
}
