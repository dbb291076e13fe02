package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradeflow/internal/adapters/out/notify"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failing struct{ err error }

func (f failing) Notify(context.Context, string, string, map[string]any) error { return f.err }

type counting struct{ calls int }

func (c *counting) Notify(context.Context, string, string, map[string]any) error {
	c.calls++
	return nil
}

func TestFanout_DeliversToEveryChannel(t *testing.T) {
	down := errors.New("smtp down")
	first, last := &counting{}, &counting{}
	fanout := notify.NewFanout(first, failing{err: down}, last, notify.NewLogNotifier(discardLogger()))

	err := fanout.Notify(context.Background(), "DIRECTOR", "SLA_BREACHED", map[string]any{"item_id": "x"})

	require.ErrorIs(t, err, down)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, last.calls)
	require.NoError(t, notify.NewFanout().Notify(context.Background(), "owner", "E", nil))
}

func TestHub_BroadcastsToConnectedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := notify.NewHub(discardLogger())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Notify(ctx, "QC_INSPECTOR", "GOODS_RECEIVED", map[string]any{"lot": "GRN-1"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg notify.Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, "QC_INSPECTOR", msg.Target)
	assert.Equal(t, "GOODS_RECEIVED", msg.Event)
	assert.Equal(t, "GRN-1", msg.Payload["lot"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_SaturatedQueueFailsFast(t *testing.T) {
	hub := notify.NewHub(discardLogger())

	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		err = hub.Notify(context.Background(), "owner", "SLA_WARNING", nil)
	}
	require.ErrorIs(t, err, notify.ErrHubSaturated)
}
