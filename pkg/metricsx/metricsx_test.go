package metricsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.RenewalFinished(nil, 20*time.Millisecond)
	r.RenewalFinished(errors.New("boom"), time.Second)
	r.RenewalJoined()
	r.RequestReplayed()
	r.RequestReplayed()
	r.RequestRejected(&notesdk.AuthError{Op: "refresh", Err: notesdk.ErrSessionExpired})
	r.RequestRejected(&notesdk.AuthError{Op: "replay", Err: notesdk.ErrReplayRejected})

	require.InDelta(t, 1, testutil.ToFloat64(r.renewals.WithLabelValues("success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.renewals.WithLabelValues("failure")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.joined), 0)
	require.InDelta(t, 2, testutil.ToFloat64(r.replays), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.terminalFailures.WithLabelValues("session_expired")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.terminalFailures.WithLabelValues("replay_rejected")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(r.renewalDuration))
}

func TestReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{&notesdk.AuthError{Err: notesdk.ErrSessionExpired, Cause: notesdk.ErrNoRefreshToken}, "session_expired"},
		{&notesdk.AuthError{Err: notesdk.ErrReplayRejected}, "replay_rejected"},
		{&notesdk.AuthError{Err: notesdk.ErrSessionChanged}, "session_changed"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Reason(tt.err))
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	r := New()
	r.RequestReplayed()
	r.RenewalFinished(nil, 30*time.Millisecond)
	r.RenewalFinished(nil, 40*time.Millisecond)

	path := filepath.Join(t.TempDir(), "moondance.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "moondance_replays_total 1")
	require.Contains(t, string(data), "moondance_renewal_duration_seconds_count 2")
	require.Contains(t, string(data), `moondance_renewals_total{result="success"} 2`)
}
