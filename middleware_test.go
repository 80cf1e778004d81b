package kestrel

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrdering(t *testing.T) {
	var trail []string
	tag := func(name string) Gas {
		return func(next Handler) Handler {
			return func(req *Request, res *Response) error {
				trail = append(trail, "in:"+name)
				err := next(req, res)
				trail = append(trail, "out:"+name)
				return err
			}
		}
	}

	terminal := func(req *Request, res *Response) error {
		trail = append(trail, "terminal")
		return nil
	}

	h := chain([]Gas{tag("a"), tag("b")}, terminal)

	ctx := newRequestContext(NewLogger("test"), http.MethodGet, "/")
	require.NoError(t, h(&Request{context: ctx}, newResponse(ctx)))

	assert.Equal(t, []string{"in:a", "in:b", "terminal", "out:b", "out:a"}, trail)
}

func TestWithErrorRecoveryCatchesPanic(t *testing.T) {
	h := WithErrorRecovery()(func(req *Request, res *Response) error {
		panic("boom")
	})

	ctx := newRequestContext(NewLogger("test"), http.MethodGet, "/")
	err := h(&Request{context: ctx}, newResponse(ctx))

	require.Error(t, err)
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
}

func TestWithErrorRecoveryPassesThroughError(t *testing.T) {
	want := NotFound()
	h := WithErrorRecovery()(func(req *Request, res *Response) error {
		return want
	})

	ctx := newRequestContext(NewLogger("test"), http.MethodGet, "/")
	err := h(&Request{context: ctx}, newResponse(ctx))

	assert.Same(t, want, err)
}
