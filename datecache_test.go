package kestrel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateCachePreSeeded(t *testing.T) {
	d := NewDateCache()
	assert.NotEmpty(t, d.Current())

	_, ok := parseRFC9110(d.Current())
	assert.True(t, ok)
}

func TestDateCacheRunStopsOnCancel(t *testing.T) {
	d := NewDateCache()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- d.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestDateCacheRunRefreshes(t *testing.T) {
	d := NewDateCache()
	before := d.Current()

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	<-done

	assert.NotEmpty(t, d.Current())
	assert.NotEqual(t, before, d.Current())
}
