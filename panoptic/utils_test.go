package panoptic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/model"
)

func TestNextDailyRun(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "later today",
			now:      time.Date(2025, 3, 1, 5, 30, 0, 0, seoul),
			expected: time.Date(2025, 3, 1, 6, 0, 0, 0, seoul),
		},
		{
			name:     "exactly at the run time moves to tomorrow",
			now:      time.Date(2025, 3, 1, 6, 0, 0, 0, seoul),
			expected: time.Date(2025, 3, 2, 6, 0, 0, 0, seoul),
		},
		{
			name:     "month rollover",
			now:      time.Date(2025, 3, 31, 23, 0, 0, 0, seoul),
			expected: time.Date(2025, 4, 1, 6, 0, 0, 0, seoul),
		},
		{
			name:     "now given in utc",
			now:      time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 3, 2, 6, 0, 0, 0, seoul),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next := NextDailyRun(tc.now, 6, 0, seoul)
			assert.True(t, tc.expected.Equal(next), "expected %s, got %s", tc.expected, next)
		})
	}
}

func TestTriggerRoundTripOverBus(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	triggers, err := bus.Subscribe(ctx, TOPIC_COLLECT_TRIGGER)
	require.NoError(t, err)
	reports, err := bus.Subscribe(ctx, TOPIC_RUN_REPORT)
	require.NoError(t, err)

	sent := NewCollectTrigger(COLLECT_COURSES, TRIGGER_MANUAL, time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC))
	require.NoError(t, PublishTrigger(bus, sent))
	msg := <-triggers
	msg.Ack()
	received, err := DecodeTrigger(msg)
	require.NoError(t, err)
	assert.Equal(t, sent.ID, received.ID)
	assert.Equal(t, COLLECT_COURSES, received.Kind)
	assert.Equal(t, TRIGGER_MANUAL, received.Reason)

	require.NoError(t, PublishRunReport(bus, &model.RunReport{RunID: "run-1", CorpusSize: 3}))
	msg = <-reports
	msg.Ack()
	report, err := DecodeRunReport(msg)
	require.NoError(t, err)
	assert.Equal(t, 3, report.CorpusSize)
}

func TestDecodeTriggerRejectsUnknownKind(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	triggers, err := bus.Subscribe(ctx, TOPIC_COLLECT_TRIGGER)
	require.NoError(t, err)

	require.NoError(t, publishJson(bus, TOPIC_COLLECT_TRIGGER, "", map[string]string{"kind": "weekly"}))
	msg := <-triggers
	msg.Ack()
	_, err = DecodeTrigger(msg)
	assert.Error(t, err)
}

type countingModule struct {
	runs      int
	failUntil int
	shutdown  bool
}

func (m *countingModule) RunModule(ctx context.Context) error {
	m.runs++
	if m.runs <= m.failUntil {
		return assert.AnError
	}
	return nil
}
func (m *countingModule) Name() string { return "counting" }
func (m *countingModule) Shutdown()    { m.shutdown = true }

func TestEngineRunsAndShutsDownModules(t *testing.T) {
	module := &countingModule{}
	engine := NewEngine([]Module{module}, context.Background(), NewEventBus())
	engine.Run()
	assert.Equal(t, 1, module.runs)

	engine.Shutdown()
	engine.Shutdown()
	assert.True(t, module.shutdown)
}

func TestGracefulRestartStopsWithContext(t *testing.T) {
	module := &countingModule{failUntil: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RunModuleWithGracefulRestart(ctx, module)
	assert.Equal(t, 1, module.runs)
}
