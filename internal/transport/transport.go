// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package transport defines the chat-transport collaborator surface. The
// concrete Telegram client lives outside this module's core; everything
// here is the narrow slice the services need.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autobrr/cinedex/internal/models"
)

// FileMessage is one media post observed in the source channel.
type FileMessage struct {
	ChatID    int64
	MessageID int
	FileID    string
	FileName  string
	FileType  models.FileType
}

// TextMessage is a free-text message from a user chat.
type TextMessage struct {
	ChatID int64
	UserID int64
	Text   string
}

// Callback is a button press carrying an opaque action token.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	UserID    int64
	Data      string
}

// Button is one choice in an inline keyboard. Data round-trips back as
// Callback.Data.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Sender is the outbound messaging surface. Every call is a suspension
// point; no operation is atomic across one.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	SendKeyboard(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// HistoryIterator walks a channel's history lazily. Next returns io.EOF
// when the history is exhausted and may return *RateLimitError, which
// callers are expected to wait out before calling Next again.
type HistoryIterator interface {
	Next(ctx context.Context) (*FileMessage, error)
}

// HistorySource opens the full history of a chat, newest first. Restarts
// always begin from the start; mid-scan resumption is not supported.
type HistorySource interface {
	ChatHistory(ctx context.Context, chat string) (HistoryIterator, error)
}

// LinkResolver turns an opaque file id into a downloadable URL.
type LinkResolver interface {
	DownloadLink(ctx context.Context, fileID string) (string, error)
}

// RateLimitError signals a transport-mandated pause. Not a failure: the
// caller sleeps for RetryAfter and resumes.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// AsRateLimit unwraps a RateLimitError if err carries one.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
