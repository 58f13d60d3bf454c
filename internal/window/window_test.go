package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestManager(t *testing.T, now time.Time, hooks Hooks) *Manager {
	t.Helper()
	return New("0 7 * * *", "0 19 * * *", "0 0 * * *", time.UTC, &fakeClock{now: now}, hooks, zap.NewNop())
}

func at(hour int) time.Time {
	return time.Date(2026, time.March, 3, hour, 30, 0, 0, time.UTC)
}

func TestActiveAt(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, at(12), Hooks{})
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before open", at(6), false},
		{"exactly at open hour", time.Date(2026, time.March, 3, 7, 0, 0, 0, time.UTC), true},
		{"mid window", at(12), true},
		{"last active hour", at(18), true},
		{"at close hour", time.Date(2026, time.March, 3, 19, 0, 0, 0, time.UTC), false},
		{"after close", at(22), false},
		{"midnight", time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, m.ActiveAt(tc.now))
		})
	}
}

func TestActiveAtMalformedExpressions(t *testing.T) {
	t.Parallel()

	m := New("not a cron", "0 19 * * *", "0 0 * * *", time.UTC, &fakeClock{now: at(12)}, Hooks{}, zap.NewNop())
	require.False(t, m.ActiveAt(at(12)))

	m = New("0 7 * * *", "bad", "0 0 * * *", time.UTC, &fakeClock{now: at(12)}, Hooks{}, zap.NewNop())
	require.False(t, m.ActiveAt(at(12)))
}

// Start must seed the active flag from the clock so a mid-window restart
// resumes processing immediately.
func TestStartSeedsActiveFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"restart inside window", at(10), true},
		{"restart outside window", at(21), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got bool
			m := newTestManager(t, tc.now, Hooks{SetActive: func(v bool) { got = v }})
			require.NoError(t, m.Start())
			defer m.Stop()
			require.Equal(t, tc.want, got)
		})
	}
}

func TestStartRejectsBadExpression(t *testing.T) {
	t.Parallel()

	m := New("61 25 * * *", "0 19 * * *", "0 0 * * *", time.UTC, &fakeClock{now: at(12)}, Hooks{SetActive: func(bool) {}}, zap.NewNop())
	require.Error(t, m.Start())
}

func TestOpenTriggerFlipsActiveAndDrains(t *testing.T) {
	t.Parallel()

	var active bool
	drained := 0
	m := newTestManager(t, at(6), Hooks{
		SetActive: func(v bool) { active = v },
		OnOpen:    func() { drained++ },
	})

	m.open()
	require.True(t, active)
	require.Equal(t, 1, drained)

	m.close()
	require.False(t, active)
	require.Equal(t, 1, drained, "closing must not trigger a drain")
}

func TestRotateTriggerPassesClockTime(t *testing.T) {
	t.Parallel()

	now := at(0)
	var got time.Time
	m := newTestManager(t, now, Hooks{
		SetActive: func(bool) {},
		Rotate: func(ts time.Time) error {
			got = ts
			return nil
		},
	})

	m.rotate()
	require.Equal(t, now, got)
}
