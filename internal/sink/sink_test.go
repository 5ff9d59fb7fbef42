package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster(4, nil)
	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	ev := Event{Src: "a", Dst: "b", CapturedSize: 100}
	b.Publish(ev)

	select {
	case got := <-events:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(4, nil)
	events, unsubscribe := b.Subscribe()
	unsubscribe()

	_, ok := <-events
	assert.False(t, ok)
}

func TestBroadcaster_DropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBroadcaster(1, nil)
	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(Event{CapturedSize: 1})
	b.Publish(Event{CapturedSize: 2}) // buffer full, dropped

	got := <-events
	assert.Equal(t, int64(1), got.CapturedSize)
}

func TestBroadcaster_Count(t *testing.T) {
	b := NewBroadcaster(1, nil)
	assert.Equal(t, 0, b.Count())
	_, unsubscribe := b.Subscribe()
	assert.Equal(t, 1, b.Count())
	unsubscribe()
	assert.Equal(t, 0, b.Count())
}

func TestHTTPSink_Send(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "tok", 1000, time.Second, nil)
	err := s.Send(context.Background(), Event{Src: "a", Dst: "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", received.Src)
}

func TestHTTPSink_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "", 1000, time.Second, nil)
	err := s.Send(context.Background(), Event{})
	assert.Error(t, err)
}

func TestCLIRenderer_RenderWithMatch(t *testing.T) {
	var buf bytes.Buffer
	r := NewCLIRenderer(&buf)
	r.Render(Event{
		Src: "10.0.0.1", Dst: "10.0.0.2", CapturedSize: 50000, Elapsed: 1.5,
		Best: &Match{Title: "Show", Probability: 0.9, Position: 120},
	})
	assert.Contains(t, buf.String(), "Show")
}

func TestCLIRenderer_RenderNoMatch(t *testing.T) {
	var buf bytes.Buffer
	r := NewCLIRenderer(&buf)
	r.Render(Event{Src: "a", Dst: "b"})
	assert.Contains(t, buf.String(), "no match")
}

