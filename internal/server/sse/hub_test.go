package sse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h, cancel
}

func receive(t *testing.T, c Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c:
		require.True(t, ok, "client channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubBroadcastsProgress(t *testing.T) {
	h, _ := startHub(t)

	c := make(Client, 4)
	h.Register(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Progress("lote", "Procesando imagen 1 de 3...", 1, 3)

	ev := receive(t, c)
	assert.Equal(t, EventProgress, ev.Type)
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Procesando imagen 1 de 3...", data["message"])
	assert.EqualValues(t, 3, data["total"])
}

func TestHubUnregisterClosesClient(t *testing.T) {
	h, _ := startHub(t)

	c := make(Client, 1)
	h.Register(c)
	h.Unregister(c)

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c
	assert.False(t, ok)
}

func TestHubStopClosesClients(t *testing.T) {
	h, cancel := startHub(t)

	c := make(Client, 1)
	h.Register(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-h.done

	_, ok := <-c
	assert.False(t, ok)

	// Nach dem Stopp blockieren Register und Unregister nicht
	late := make(Client, 1)
	h.Register(late)
	_, ok = <-late
	assert.False(t, ok)
	h.Unregister(late)
}

func TestHubDropsSlowClient(t *testing.T) {
	h, _ := startHub(t)

	c := make(Client) // ungepuffert, nimmt nie etwas an
	h.Register(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.RunFinished(RunFinishedData{Mode: "individual", Processed: 2})
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
