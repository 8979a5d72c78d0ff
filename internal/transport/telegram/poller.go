// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package telegram

import (
	"context"
	"time"

	"github.com/autobrr/cinedex/internal/models"
	"github.com/autobrr/cinedex/internal/transport"
)

const pollTimeoutSeconds = 30

// Handler is the update sink; satisfied by bot.Service.
type Handler interface {
	HandleChannelFile(ctx context.Context, msg *transport.FileMessage)
	HandleText(ctx context.Context, msg *transport.TextMessage)
	HandleCallback(ctx context.Context, cb *transport.Callback)
}

type update struct {
	UpdateID    int64     `json:"update_id"`
	Message     *message  `json:"message"`
	ChannelPost *message  `json:"channel_post"`
	Callback    *callback `json:"callback_query"`
}

type message struct {
	MessageID int    `json:"message_id"`
	Text      string `json:"text"`
	From      *user  `json:"from"`
	Chat      chat   `json:"chat"`
	Document  *struct {
		FileID   string `json:"file_id"`
		FileName string `json:"file_name"`
	} `json:"document"`
	Video *struct {
		FileID   string `json:"file_id"`
		FileName string `json:"file_name"`
	} `json:"video"`
}

type user struct {
	ID int64 `json:"id"`
}

type chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type callback struct {
	ID      string   `json:"id"`
	From    user     `json:"from"`
	Data    string   `json:"data"`
	Message *message `json:"message"`
}

// Poll long-polls getUpdates and dispatches until ctx is canceled.
// Every update runs on its own goroutine so a slow handler (an /index
// scrape can run for hours) never stalls the poll loop. Transport
// failures back off briefly and keep polling.
func (c *Client) Poll(ctx context.Context, handler Handler) error {
	var offset int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var updates []update
		err := c.call(ctx, "getUpdates", map[string]any{
			"offset":  offset,
			"timeout": pollTimeoutSeconds,
		}, &updates)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := time.Second
			if rle, ok := transport.AsRateLimit(err); ok {
				wait = rle.RetryAfter
			}
			c.logger.Warn().Err(err).Dur("wait", wait).Msg("getUpdates failed, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go c.dispatch(ctx, handler, upd)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, handler Handler, upd update) {
	switch {
	case upd.ChannelPost != nil:
		if file := fileMessageFrom(upd.ChannelPost); file != nil {
			handler.HandleChannelFile(ctx, file)
		}

	case upd.Callback != nil && upd.Callback.Message != nil:
		handler.HandleCallback(ctx, &transport.Callback{
			ID:        upd.Callback.ID,
			ChatID:    upd.Callback.Message.Chat.ID,
			MessageID: upd.Callback.Message.MessageID,
			UserID:    upd.Callback.From.ID,
			Data:      upd.Callback.Data,
		})

	case upd.Message != nil && upd.Message.Chat.Type == "private" && upd.Message.Text != "":
		userID := int64(0)
		if upd.Message.From != nil {
			userID = upd.Message.From.ID
		}
		handler.HandleText(ctx, &transport.TextMessage{
			ChatID: upd.Message.Chat.ID,
			UserID: userID,
			Text:   upd.Message.Text,
		})
	}
}

func fileMessageFrom(msg *message) *transport.FileMessage {
	file := &transport.FileMessage{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}

	switch {
	case msg.Video != nil:
		file.FileID = msg.Video.FileID
		file.FileName = msg.Video.FileName
		file.FileType = models.FileTypeVideo
	case msg.Document != nil:
		file.FileID = msg.Document.FileID
		file.FileName = msg.Document.FileName
		file.FileType = models.FileTypeDocument
	default:
		return nil
	}

	return file
}
