package kestrel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitPath("/a//b/"))
	assert.Equal(t, []string{}, splitPath("/"))
	assert.Equal(t, []string{"a"}, splitPath("a"))
}

func TestValidateUTF8(t *testing.T) {
	assert.True(t, validateUTF8("hello, 世界"))
	assert.False(t, validateUTF8(string([]byte{0xff, 0xfe})))
}

func TestNextRuneASCII(t *testing.T) {
	r, size, ok := nextRune("abc")
	assert.True(t, ok)
	assert.Equal(t, 1, size)
	assert.Equal(t, 'a', r)
}

func TestNextRuneMultibyte(t *testing.T) {
	r, size, ok := nextRune("世")
	assert.True(t, ok)
	assert.Equal(t, 3, size)
	assert.Equal(t, '世', r)
}

func TestNextRuneMalformed(t *testing.T) {
	_, size, ok := nextRune(string([]byte{0xC0, 0x80}))
	assert.False(t, ok)
	assert.Equal(t, 1, size)
}

func TestHexDigest(t *testing.T) {
	assert.Equal(t, "00ff", hexDigest([]byte{0x00, 0xff}))
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "123", itoa(123))
	assert.Equal(t, "-45", itoa(-45))
}

func TestWeakETagStable(t *testing.T) {
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := weakETag(mod, 100)
	b := weakETag(mod, 100)
	assert.Equal(t, a, b)
	assert.Contains(t, a, `W/"`)
}

func TestFormatAndParseRFC9110RoundTrip(t *testing.T) {
	mod := time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)
	formatted := formatRFC9110(mod)
	assert.Equal(t, "Fri, 15 Mar 2024 12:30:45 GMT", formatted)

	parsed, ok := parseRFC9110(formatted)
	assert.True(t, ok)
	assert.True(t, mod.Equal(parsed))
}

func TestParseRFC9110OtherForms(t *testing.T) {
	parsed, ok := parseRFC9110("Sunday, 06-Nov-94 08:49:37 GMT")
	assert.True(t, ok)
	assert.Equal(t, 1994, parsed.Year())

	parsed, ok = parseRFC9110("Sun Nov  6 08:49:37 1994")
	assert.True(t, ok)
	assert.Equal(t, 1994, parsed.Year())
}

func TestParseRFC9110Invalid(t *testing.T) {
	_, ok := parseRFC9110("not a date")
	assert.False(t, ok)
}
