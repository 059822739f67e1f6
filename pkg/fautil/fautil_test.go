package fautil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	savedIndentJSON = `{
	"action": "save",
	"success": true
}`
	savedMinifiedJSON = `{"action":"save","success":true}`
)

func TestMarshalJSON(t *testing.T) {
	_, err := MarshalJSON(func() {}, false)
	assert.Error(t, err)

	data := map[string]any{
		"action":  "save",
		"success": true,
	}
	out, err := MarshalJSON(data, false)
	assert.NoError(t, err)
	assert.Equal(t, savedMinifiedJSON, out)

	out, err = MarshalJSON(data, true)
	assert.NoError(t, err)
	assert.Equal(t, savedIndentJSON, out)

	out, err = MarshalJSON(map[string]string{"error": errors.New("failed").Error()}, false)
	assert.NoError(t, err)
	assert.Equal(t, `{"error":"failed"}`, out)
}

func TestStripHTML(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{"plain text", "plain text"},
		{"<b>Database error</b>: table <i>messages</i> missing", "Database error : table messages missing"},
		{"<br />\n  <span>a &amp; b</span>", "a & b"},
		{"", ""},
	}
	for _, tC := range testCases {
		t.Run(tC.in, func(t *testing.T) {
			assert.Equal(t, tC.expect, StripHTML(tC.in))
		})
	}
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/manage", nil)
	req.RemoteAddr = "192.168.56.1:4321"
	assert.Equal(t, "192.168.56.1", GetRealIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.2, 10.0.0.3")
	assert.Equal(t, "10.0.0.2", GetRealIP(req))

	req.Header.Set("CF-Connecting-IP", "10.0.0.9")
	assert.Equal(t, "10.0.0.9", GetRealIP(req))
}

func TestBcrypt(t *testing.T) {
	hash := BcryptSum("password")
	assert.NotEmpty(t, hash)
	assert.True(t, CompareBcrypt(hash, "password"))
	assert.False(t, CompareBcrypt(hash, "wrong"))
}

func TestRandomString(t *testing.T) {
	str := RandomString(31)
	assert.Len(t, str, 31)
	assert.NotEqual(t, str, RandomString(31))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestParseDuration(t *testing.T) {
	dur, err := ParseDuration("2h")
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Hour, dur)

	dur, err = ParseDuration("1w")
	assert.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, dur)

	_, err = ParseDuration("not a duration")
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	ctx, id := WithRequestID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, RequestID(ctx))
}
