package kestrel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookieString(t *testing.T) {
	c := &Cookie{
		Name:     "foo",
		Value:    "bar baz",
		Path:     "/",
		Domain:   "example.com",
		MaxAge:   3600,
		Secure:   true,
		HTTPOnly: true,
		SameSite: SameSiteLax,
	}

	s := c.String()
	assert.Contains(t, s, "foo=")
	assert.Contains(t, s, `"bar baz"`)
	assert.Contains(t, s, "; Path=/")
	assert.Contains(t, s, "; Domain=example.com")
	assert.Contains(t, s, "; Max-Age=3600")
	assert.Contains(t, s, "; Secure")
	assert.Contains(t, s, "; HttpOnly")
	assert.Contains(t, s, "; SameSite=Lax")
}

func TestCookieStringInvalidName(t *testing.T) {
	c := &Cookie{Name: "bad name", Value: "v"}
	assert.Equal(t, "", c.String())
}

func TestCookieStringExpires(t *testing.T) {
	c := &Cookie{Name: "foo", Value: "bar", Expires: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := c.String()
	assert.Contains(t, s, "; Expires=")
}

func TestValidCookieDomain(t *testing.T) {
	assert.True(t, validCookieDomain("example.com"))
	assert.True(t, validCookieDomain(".example.com"))
	assert.False(t, validCookieDomain(""))
	assert.False(t, validCookieDomain("-example.com"))
}
