// SPDX-License-Identifier: MIT

package censor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/censord/internal/audit"
	"github.com/ManuGH/censord/internal/dataset"
	"github.com/ManuGH/censord/internal/state"
)

type reqCall struct {
	words         []string
	message       string
	username      string
	isUsernameReq bool
}

type fakeRequester struct {
	calls []reqCall
	err   error
}

func (f *fakeRequester) WhitelistRequest(_ context.Context, words []string, message, username string, isUsernameReq bool) error {
	f.calls = append(f.calls, reqCall{words: words, message: message, username: username, isUsernameReq: isUsernameReq})
	return f.err
}

type fakeAlerter struct {
	calls []reqCall
}

func (f *fakeAlerter) BlacklistAlert(_ context.Context, username, message string, words []string) error {
	f.calls = append(f.calls, reqCall{words: words, message: message, username: username})
	return nil
}

type fakeRecorder struct {
	decisions []audit.Decision
}

func (f *fakeRecorder) Record(_ context.Context, d audit.Decision) error {
	f.decisions = append(f.decisions, d)
	return nil
}

func (f *fakeRecorder) Close() error { return nil }

func newTestDatasets(t *testing.T) *dataset.Store {
	t.Helper()
	paths := dataset.NewPaths(t.TempDir())
	require.NoError(t, dataset.EnsureFiles(paths))

	files := map[string]any{
		dataset.FileBlacklist:      []string{"slur"},
		dataset.FileDictionary:     []string{"hello", "world"},
		dataset.FileRandomPrefixes: []string{"happy"},
		dataset.FileRandomSuffixes: []string{"dog"},
		dataset.FileUsernames:      []string{"knownuser"},
	}
	for name, value := range files {
		require.NoError(t, dataset.WriteJSON(paths.RemoteFile(name), value))
	}

	store, err := dataset.NewStore(paths)
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T) (*Service, *fakeRequester, *fakeAlerter, *fakeRecorder) {
	t.Helper()
	datasets := newTestDatasets(t)

	states, err := state.Open(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = states.Close() })

	requester := &fakeRequester{}
	alerter := &fakeAlerter{}
	recorder := &fakeRecorder{}
	svc := &Service{
		Datasets: datasets,
		State:    states,
		Audit:    recorder,
		Requests: requester,
		Alerts:   alerter,
	}
	return svc, requester, alerter, recorder
}

func TestProcessTrustedUserBypasses(t *testing.T) {
	svc, requester, _, recorder := newTestService(t)
	require.NoError(t, dataset.WriteJSON(
		svc.Datasets.Paths().RemoteFile(dataset.FileTrustedUsernames), []string{"moduser"}))
	require.NoError(t, svc.Datasets.Reload())

	result, err := svc.Process(context.Background(), "moduser", "anything goes zxqj")
	require.NoError(t, err)

	assert.Equal(t, "moduser", result.Username)
	assert.Equal(t, "anything goes zxqj", result.Message)
	assert.True(t, result.SendUsersMessage)
	assert.Empty(t, requester.calls)
	require.Len(t, recorder.decisions, 1)
	assert.Equal(t, VerdictTrusted, recorder.decisions[0].Verdict)
}

func TestProcessCleanMessage(t *testing.T) {
	svc, requester, _, recorder := newTestService(t)

	result, err := svc.Process(context.Background(), "knownuser", "hello world")
	require.NoError(t, err)

	assert.Equal(t, "knownuser", result.Username)
	assert.Equal(t, "hello world", result.Message)
	assert.True(t, result.SendUsersMessage)
	assert.Empty(t, result.BotReplies)
	assert.Empty(t, requester.calls)
	require.Len(t, recorder.decisions, 1)
	assert.Equal(t, VerdictClean, recorder.decisions[0].Verdict)
}

func TestProcessCensorsUnknownWords(t *testing.T) {
	svc, requester, _, recorder := newTestService(t)

	result, err := svc.Process(context.Background(), "knownuser", "hello zxqjv")
	require.NoError(t, err)

	assert.Equal(t, "hello *****", result.Message)
	assert.True(t, result.SendUsersMessage)
	require.Len(t, result.BotReplies, 1)
	assert.Contains(t, result.BotReplies[0], "zxqjv")

	require.Len(t, requester.calls, 1)
	assert.Equal(t, []string{"zxqjv"}, requester.calls[0].words)
	assert.False(t, requester.calls[0].isUsernameReq)

	require.Len(t, recorder.decisions, 1)
	assert.Equal(t, VerdictCensored, recorder.decisions[0].Verdict)
	assert.Equal(t, []string{"zxqjv"}, recorder.decisions[0].Words)
}

func TestProcessBlacklistedMessage(t *testing.T) {
	svc, requester, alerter, recorder := newTestService(t)

	result, err := svc.Process(context.Background(), "knownuser", "hello slur")
	require.NoError(t, err)

	assert.False(t, result.SendUsersMessage)
	assert.Equal(t, "hello slur", result.Message, "message returned unmodified, caller must not send it")
	require.Len(t, result.BotReplies, 1)
	assert.Contains(t, result.BotReplies[0], "blacklisted")

	assert.Empty(t, requester.calls, "no whitelist request for blacklisted content")
	require.Len(t, alerter.calls, 1)
	assert.Equal(t, []string{"slur"}, alerter.calls[0].words)

	require.Len(t, recorder.decisions, 1)
	assert.Equal(t, VerdictBlacklisted, recorder.decisions[0].Verdict)
}

func TestProcessAssignsTempUsername(t *testing.T) {
	svc, requester, _, _ := newTestService(t)

	// First message: temp name assigned, pending-approval reply, no request yet.
	result, err := svc.Process(context.Background(), "str4nger", "hello")
	require.NoError(t, err)

	assert.Equal(t, "HappyDog", result.Username)
	require.NotEmpty(t, result.BotReplies)
	assert.Contains(t, result.BotReplies[0], "pending approval")
	assert.Contains(t, result.BotReplies[0], "str4nger")
	assert.Empty(t, requester.calls)

	// Second message crosses the threshold and triggers the username request.
	result, err = svc.Process(context.Background(), "str4nger", "hello world")
	require.NoError(t, err)

	assert.Equal(t, "HappyDog", result.Username)
	require.Len(t, requester.calls, 1)
	assert.True(t, requester.calls[0].isUsernameReq)
	assert.Equal(t, []string{"str4nger"}, requester.calls[0].words)

	// Third message: request already sent, nothing new.
	_, err = svc.Process(context.Background(), "str4nger", "hello")
	require.NoError(t, err)
	assert.Len(t, requester.calls, 1)
}

func TestProcessNicknameReplacesUsername(t *testing.T) {
	svc, requester, _, _ := newTestService(t)
	require.NoError(t, dataset.WriteJSON(
		svc.Datasets.Paths().RemoteFile(dataset.FileNicknames),
		map[string]string{"str4nger": "Friend"}))
	require.NoError(t, svc.Datasets.Reload())

	result, err := svc.Process(context.Background(), "str4nger", "hello")
	require.NoError(t, err)

	assert.Equal(t, "Friend", result.Username)
	assert.Empty(t, requester.calls, "nicknamed users need no username request")
}
