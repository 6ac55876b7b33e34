// SPDX-License-Identifier: MIT

package requests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) WhitelistRequest(context.Context, []string, string, string, bool) error {
	s.calls++
	return s.err
}

func TestRouterPrefersPrimary(t *testing.T) {
	primary := &stubSender{}
	fallback := &stubSender{}
	r := &Router{Primary: primary, Fallback: fallback}

	err := r.WhitelistRequest(context.Background(), []string{"word"}, "msg", "user", false)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestRouterFallsBack(t *testing.T) {
	primary := &stubSender{err: errors.New("link down")}
	fallback := &stubSender{}
	r := &Router{Primary: primary, Fallback: fallback}

	err := r.WhitelistRequest(context.Background(), []string{"word"}, "msg", "user", false)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRouterBothFail(t *testing.T) {
	primary := &stubSender{err: errors.New("link down")}
	fallback := &stubSender{err: errors.New("webhook 500")}
	r := &Router{Primary: primary, Fallback: fallback}

	err := r.WhitelistRequest(context.Background(), []string{"word"}, "msg", "user", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook 500")
	assert.Contains(t, err.Error(), "link down")
}

func TestRouterPrimaryOnly(t *testing.T) {
	primary := &stubSender{err: errors.New("link down")}
	r := &Router{Primary: primary}

	err := r.WhitelistRequest(context.Background(), []string{"word"}, "msg", "user", true)
	assert.ErrorContains(t, err, "link down")
}

// blockingSender waits until its context expires, like the server link does
// while the connection is down.
type blockingSender struct {
	calls int
}

func (s *blockingSender) WhitelistRequest(ctx context.Context, _ []string, _, _ string, _ bool) error {
	s.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestRouterFallsBackWhenPrimaryStalls(t *testing.T) {
	primary := &blockingSender{}
	fallback := &stubSender{}
	r := &Router{Primary: primary, Fallback: fallback, PrimaryTimeout: 10 * time.Millisecond}

	start := time.Now()
	err := r.WhitelistRequest(context.Background(), []string{"word"}, "msg", "user", false)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRouterPrimaryKeepsDeadlineWithoutFallback(t *testing.T) {
	primary := &blockingSender{}
	r := &Router{Primary: primary, PrimaryTimeout: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.WhitelistRequest(ctx, []string{"word"}, "msg", "user", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRouterNoTransports(t *testing.T) {
	r := &Router{}
	err := r.WhitelistRequest(context.Background(), []string{"word"}, "msg", "user", false)
	assert.ErrorContains(t, err, "no whitelist request transport")
}
