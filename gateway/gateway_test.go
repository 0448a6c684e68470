package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angiesanchezm/genai-music/core"
)

func TestLoopback_InjectThenReceive(t *testing.T) {
	gw := NewLoopback(4)
	in := core.Inbound{ConversationKey: "conv-1", SenderIdentity: "+521555000111", Text: "hola"}

	require.NoError(t, gw.Inject(context.Background(), in))

	got, err := gw.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestLoopback_ReceiveHonorsCancellation(t *testing.T) {
	gw := NewLoopback(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gw.Receive(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopback_SendRecordsAndPublishes(t *testing.T) {
	gw := NewLoopback(4)

	require.NoError(t, gw.Send(context.Background(), "conv-1", "respuesta"))

	sent := gw.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, Outbound{ConversationKey: "conv-1", Text: "respuesta"}, sent[0])

	select {
	case out := <-gw.Outbound():
		assert.Equal(t, "respuesta", out.Text)
	default:
		t.Fatal("expected the reply on the outbound channel")
	}
}

func TestLoopback_SendNeverBlocksWithoutConsumer(t *testing.T) {
	gw := NewLoopback(1)

	// Fill the outbound channel, then keep sending.
	for i := 0; i < 5; i++ {
		require.NoError(t, gw.Send(context.Background(), "conv-1", "r"))
	}

	assert.Len(t, gw.Sent(), 5, "the record is authoritative even when nobody drains")
}

func TestLoopback_SentReturnsCopy(t *testing.T) {
	gw := NewLoopback(1)
	require.NoError(t, gw.Send(context.Background(), "conv-1", "uno"))

	sent := gw.Sent()
	sent[0].Text = "mutado"

	assert.Equal(t, "uno", gw.Sent()[0].Text)
}
