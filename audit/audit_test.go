package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink_RecordsInArrivalOrder(t *testing.T) {
	sink := NewMemorySink()
	sink.Record(Event{Kind: KindGateVerdict, ConversationKey: "conv-1", At: time.Now()})
	sink.Record(Event{Kind: KindRoute, ConversationKey: "conv-1"})
	sink.Record(Event{Kind: KindGateVerdict, ConversationKey: "conv-2"})

	events := sink.Events()
	require.Len(t, events, 3)
	assert.Equal(t, KindGateVerdict, events[0].Kind)
	assert.Equal(t, KindRoute, events[1].Kind)

	verdicts := sink.OfKind(KindGateVerdict)
	require.Len(t, verdicts, 2)
	assert.Equal(t, "conv-1", verdicts[0].ConversationKey)
	assert.Equal(t, "conv-2", verdicts[1].ConversationKey)
}

func TestMemorySink_EventsReturnsCopy(t *testing.T) {
	sink := NewMemorySink()
	sink.Record(Event{Kind: KindCommit})

	events := sink.Events()
	events[0].Kind = KindError

	assert.Equal(t, KindCommit, sink.Events()[0].Kind)
}

type countingLogger struct {
	infos int
	args  []any
}

func (l *countingLogger) Debug(string, ...any) {}
func (l *countingLogger) Info(_ string, args ...any) {
	l.infos++
	l.args = args
}
func (l *countingLogger) Warn(string, ...any)  {}
func (l *countingLogger) Error(string, ...any) {}

func TestLogSink_EmitsOneLinePerEvent(t *testing.T) {
	logger := &countingLogger{}
	sink := NewLogSink(logger)

	sink.Record(Event{
		Kind:            KindEscalation,
		ConversationKey: "conv-1",
		TurnID:          "turn-9",
		Fields:          map[string]any{"ticket_id": "tk-1"},
	})

	assert.Equal(t, 1, logger.infos)
	assert.Contains(t, logger.args, "ticket_id")
	assert.Contains(t, logger.args, "tk-1")
}

func TestNewLogSink_NilLoggerIsSafe(t *testing.T) {
	sink := NewLogSink(nil)

	assert.NotPanics(t, func() { sink.Record(Event{Kind: KindCommit}) })
}
