package controllers

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSendAndCloseAll(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	defer client.Close()

	frames := make(chan ws.Frame, 2)
	go func() {
		for {
			f, err := ws.ReadFrame(client)
			if err != nil {
				close(frames)
				return
			}
			frames <- f
		}
	}()

	s := hub.Open(context.Background(), server)
	require.Equal(t, 1, hub.Len())

	require.NoError(t, s.send(streamFrame{Type: frameSnapshot, Values: []stopResponse{{ID: "A1"}}}))
	f := <-frames
	assert.Equal(t, ws.OpText, f.Header.OpCode)
	var got map[string]any
	require.NoError(t, json.Unmarshal(f.Payload, &got))
	assert.Equal(t, "snapshot", got["type"])
	assert.NotContains(t, got, "data")

	hub.CloseAll()
	assert.Equal(t, 0, hub.Len())
	f = <-frames
	assert.Equal(t, ws.OpClose, f.Header.OpCode)
	code, _ := ws.ParseCloseFrameData(f.Payload)
	assert.Equal(t, ws.StatusGoingAway, code)

	assert.ErrorIs(t, s.send(streamFrame{Type: frameResult}), net.ErrClosed)
	assert.ErrorIs(t, s.Context().Err(), context.Canceled)
	hub.Close(s)
}

func TestHubCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	defer client.Close()
	go func() {
		_, _ = ws.ReadFrame(client)
	}()

	s := hub.Open(context.Background(), server)
	hub.Close(s)
	hub.Close(s)
	assert.Equal(t, 0, hub.Len())
}

func TestStreamCancelledWhenClientLeaves(t *testing.T) {
	tests := []struct {
		name  string
		leave func(t *testing.T, client net.Conn)
	}{
		{"close frame", func(t *testing.T, client net.Conn) {
			body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
			require.NoError(t, ws.WriteFrame(client, ws.MaskFrame(ws.NewCloseFrame(body))))
		}},
		{"connection dropped", func(t *testing.T, client net.Conn) {
			require.NoError(t, client.Close())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			server, client := net.Pipe()
			defer client.Close()
			defer server.Close()

			s := hub.Open(context.Background(), server)
			require.NoError(t, s.Context().Err())

			tt.leave(t, client)
			select {
			case <-s.Context().Done():
			case <-time.After(2 * time.Second):
				t.Fatal("stream context not cancelled after the client left")
			}
		})
	}
}

func TestStreamAnswersPing(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	s := hub.Open(context.Background(), server)

	go func() {
		_ = ws.WriteFrame(client, ws.MaskFrame(ws.NewPingFrame([]byte("hi"))))
	}()
	f, err := ws.ReadFrame(client)
	require.NoError(t, err)
	assert.Equal(t, ws.OpPong, f.Header.OpCode)
	assert.Equal(t, "hi", string(f.Payload))
	assert.NoError(t, s.Context().Err())

	require.NoError(t, client.Close())
	hub.Close(s)
}
