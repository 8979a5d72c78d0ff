// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/transport"
)

type recordingHandler struct {
	files     []*transport.FileMessage
	texts     []*transport.TextMessage
	callbacks []*transport.Callback
}

func (h *recordingHandler) HandleChannelFile(_ context.Context, msg *transport.FileMessage) {
	h.files = append(h.files, msg)
}

func (h *recordingHandler) HandleText(_ context.Context, msg *transport.TextMessage) {
	h.texts = append(h.texts, msg)
}

func (h *recordingHandler) HandleCallback(_ context.Context, cb *transport.Callback) {
	h.callbacks = append(h.callbacks, cb)
}

// slowFastHandler blocks on one text until released and reports any
// other text on a channel.
type slowFastHandler struct {
	blockStarted chan struct{}
	blockRelease chan struct{}
	quickDone    chan string
}

func (h *slowFastHandler) HandleChannelFile(context.Context, *transport.FileMessage) {}

func (h *slowFastHandler) HandleCallback(context.Context, *transport.Callback) {}

func (h *slowFastHandler) HandleText(_ context.Context, msg *transport.TextMessage) {
	if msg.Text == "/index @channel" {
		h.blockStarted <- struct{}{}
		<-h.blockRelease
		return
	}
	h.quickDone <- msg.Text
}

func TestPollDispatchesUpdatesConcurrently(t *testing.T) {
	t.Parallel()

	batch := `{"ok": true, "result": [
		{"update_id": 1, "message": {"message_id": 1, "text": "/index @channel", "from": {"id": 999}, "chat": {"id": 999, "type": "private"}}},
		{"update_id": 2, "message": {"message_id": 2, "text": "jawan", "from": {"id": 42}, "chat": {"id": 42, "type": "private"}}}
	]}`

	var served bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !served {
			served = true
			w.Write([]byte(batch))
			return
		}
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte(`{"ok": true, "result": []}`))
	}))
	t.Cleanup(server.Close)

	handler := &slowFastHandler{
		blockStarted: make(chan struct{}, 1),
		blockRelease: make(chan struct{}),
		quickDone:    make(chan string, 1),
	}

	client := NewClient("TOKEN", WithBaseURL(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pollDone := make(chan error, 1)
	go func() { pollDone <- client.Poll(ctx, handler) }()

	select {
	case <-handler.blockStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("long-running handler never started")
	}

	// The second update is handled while the first is still in flight.
	select {
	case text := <-handler.quickDone:
		assert.Equal(t, "jawan", text)
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop stalled behind the long-running handler")
	}

	close(handler.blockRelease)
	cancel()
	assert.ErrorIs(t, <-pollDone, context.Canceled)
}

func TestDispatchChannelVideo(t *testing.T) {
	t.Parallel()

	client := NewClient("TOKEN")
	handler := &recordingHandler{}

	client.dispatch(context.Background(), handler, update{
		ChannelPost: &message{
			MessageID: 5,
			Chat:      chat{ID: -100, Type: "channel"},
			Video: &struct {
				FileID   string `json:"file_id"`
				FileName string `json:"file_name"`
			}{FileID: "f1", FileName: "a.mkv"},
		},
	})

	require.Len(t, handler.files, 1)
	assert.Equal(t, "f1", handler.files[0].FileID)
	assert.Equal(t, models.FileTypeVideo, handler.files[0].FileType)
	assert.Equal(t, int64(-100), handler.files[0].ChatID)
}

func TestDispatchChannelTextIgnored(t *testing.T) {
	t.Parallel()

	client := NewClient("TOKEN")
	handler := &recordingHandler{}

	client.dispatch(context.Background(), handler, update{
		ChannelPost: &message{MessageID: 5, Text: "announcement", Chat: chat{ID: -100, Type: "channel"}},
	})

	assert.Empty(t, handler.files)
	assert.Empty(t, handler.texts)
}

func TestDispatchPrivateText(t *testing.T) {
	t.Parallel()

	client := NewClient("TOKEN")
	handler := &recordingHandler{}

	client.dispatch(context.Background(), handler, update{
		Message: &message{
			MessageID: 6,
			Text:      "jawan hindi",
			From:      &user{ID: 42},
			Chat:      chat{ID: 42, Type: "private"},
		},
	})

	require.Len(t, handler.texts, 1)
	assert.Equal(t, "jawan hindi", handler.texts[0].Text)
	assert.Equal(t, int64(42), handler.texts[0].UserID)
}

func TestDispatchGroupTextIgnored(t *testing.T) {
	t.Parallel()

	client := NewClient("TOKEN")
	handler := &recordingHandler{}

	client.dispatch(context.Background(), handler, update{
		Message: &message{MessageID: 6, Text: "hello", Chat: chat{ID: -200, Type: "group"}},
	})

	assert.Empty(t, handler.texts)
}

func TestDispatchCallback(t *testing.T) {
	t.Parallel()

	client := NewClient("TOKEN")
	handler := &recordingHandler{}

	client.dispatch(context.Background(), handler, update{
		Callback: &callback{
			ID:      "cb1",
			From:    user{ID: 42},
			Data:    "lang|jawan|Hindi",
			Message: &message{MessageID: 7, Chat: chat{ID: 42, Type: "private"}},
		},
	})

	require.Len(t, handler.callbacks, 1)
	assert.Equal(t, "lang|jawan|Hindi", handler.callbacks[0].Data)
	assert.Equal(t, 7, handler.callbacks[0].MessageID)
	assert.Equal(t, int64(42), handler.callbacks[0].UserID)
}
