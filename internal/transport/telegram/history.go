// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/cinedex/internal/buildinfo"
	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/transport"
)

const historyPageSize = 100

// HistoryBridge reads channel history from an MTProto sidecar service.
// The Bot API has no method for reading arbitrary channel history, so
// scraping goes through the bridge's paged HTTP endpoint instead.
type HistoryBridge struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type HistoryBridgeOption func(*HistoryBridge)

func WithBridgeHTTPClient(client *http.Client) HistoryBridgeOption {
	return func(b *HistoryBridge) {
		if client != nil {
			b.httpClient = client
		}
	}
}

func WithBridgeLogger(logger zerolog.Logger) HistoryBridgeOption {
	return func(b *HistoryBridge) {
		b.logger = logger
	}
}

func NewHistoryBridge(baseURL string, opts ...HistoryBridgeOption) *HistoryBridge {
	bridge := &HistoryBridge{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(bridge)
	}
	return bridge
}

// ChatHistory opens an iterator over the full history of chat. The
// bridge pages newest first; offset 0 starts from the top.
func (b *HistoryBridge) ChatHistory(ctx context.Context, chat string) (transport.HistoryIterator, error) {
	if b.baseURL == "" {
		return nil, fmt.Errorf("history bridge is not configured")
	}
	return &historyIterator{bridge: b, chat: chat}, nil
}

type historyMessage struct {
	MessageID int             `json:"message_id"`
	ChatID    int64           `json:"chat_id"`
	FileID    string          `json:"file_id"`
	FileName  string          `json:"file_name"`
	FileType  models.FileType `json:"file_type"`
}

type historyPage struct {
	Messages   []historyMessage `json:"messages"`
	NextOffset int              `json:"next_offset"`
	HasMore    bool             `json:"has_more"`
}

type historyIterator struct {
	bridge *HistoryBridge
	chat   string

	buf    []historyMessage
	offset int
	done   bool
}

func (it *historyIterator) Next(ctx context.Context) (*transport.FileMessage, error) {
	for len(it.buf) == 0 {
		if it.done {
			return nil, io.EOF
		}
		if err := it.fetch(ctx); err != nil {
			return nil, err
		}
	}

	msg := it.buf[0]
	it.buf = it.buf[1:]

	return &transport.FileMessage{
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		FileID:    msg.FileID,
		FileName:  msg.FileName,
		FileType:  msg.FileType,
	}, nil
}

func (it *historyIterator) fetch(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/history?chat=%s&offset=%d&limit=%d",
		it.bridge.baseURL, url.QueryEscape(it.chat), it.offset, historyPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := it.bridge.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		return &transport.RateLimitError{RetryAfter: wait}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("history bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page historyPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("decode history page: %w", err)
	}

	it.bridge.logger.Debug().
		Str("chat", it.chat).
		Int("offset", it.offset).
		Int("messages", len(page.Messages)).
		Msg("fetched history page")

	// A page that claims more history but does not advance the offset
	// would spin this iterator forever.
	if page.HasMore && len(page.Messages) == 0 && page.NextOffset <= it.offset {
		return fmt.Errorf("history bridge did not advance past offset %d", it.offset)
	}

	it.buf = page.Messages
	it.offset = page.NextOffset
	if !page.HasMore {
		it.done = true
	}
	return nil
}
