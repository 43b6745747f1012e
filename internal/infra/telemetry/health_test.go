package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHealthTracker_Heartbeats(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewHealthTracker()
	tracker.now = func() time.Time { return now }

	require.Equal(t, HealthReport{Status: HealthStatusOK, Checks: []HealthCheck{}}, tracker.Report())

	beat := tracker.Register("retention", time.Minute)
	require.Equal(t, HealthStatusOK, tracker.Report().Status)

	now = now.Add(2 * time.Minute)
	report := tracker.Report()
	require.Equal(t, HealthStatusDegraded, report.Status)
	require.Equal(t, "heartbeat stale", report.Checks[0].Message)

	beat.Beat()
	require.Equal(t, HealthStatusOK, tracker.Report().Status)

	now = now.Add(time.Hour)
	beat.Stop()
	require.Equal(t, HealthStatusOK, tracker.Report().Status)
	require.Empty(t, tracker.Report().Checks)
}

func TestHealthTracker_Checks(t *testing.T) {
	tracker := NewHealthTracker()
	failing := errors.New("duplicate ids")

	tracker.SetCheck("catalog_index", func() error { return failing })
	tracker.SetCheck("store", func() error { return nil })

	report := tracker.Report()
	want := HealthReport{
		Status: HealthStatusDegraded,
		Checks: []HealthCheck{
			{Name: "catalog_index", Status: HealthStatusDegraded, Message: "duplicate ids"},
			{Name: "store", Status: HealthStatusOK},
		},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	tracker.SetCheck("catalog_index", nil)
	require.Equal(t, HealthStatusOK, tracker.Report().Status)
}

func TestHeartbeat_NilSafe(t *testing.T) {
	var beat *Heartbeat
	beat.Beat()
	beat.Stop()
}
