// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package query

import (
	"fmt"
	"strings"
)

// Disambiguation options travel through the chat transport as opaque
// action tokens and re-enter the resolver with one more dimension fixed.
// Tokens carry the normalized group id so callbacks never re-derive it
// from display text. The separator cannot occur inside a normalized group
// id, language, or quality label.

const tokenSeparator = "|"

// ActionKind tags a decoded callback token.
type ActionKind string

const (
	ActionLanguageChoice ActionKind = "lang"
	ActionQualityChoice  ActionKind = "qual"
	ActionRequestConfirm ActionKind = "request"
)

// Action is a decoded callback token. Decode once at the boundary; never
// re-split downstream.
type Action struct {
	Kind     ActionKind
	GroupID  string
	Language string
	Quality  string
	Title    string
}

func EncodeLanguageChoice(groupID, language string) string {
	return strings.Join([]string{string(ActionLanguageChoice), groupID, language}, tokenSeparator)
}

func EncodeQualityChoice(groupID, language, quality string) string {
	return strings.Join([]string{string(ActionQualityChoice), groupID, language, quality}, tokenSeparator)
}

func EncodeRequestConfirm(title string) string {
	return strings.Join([]string{string(ActionRequestConfirm), title}, tokenSeparator)
}

// ParseAction decodes an action token back into its tagged variant.
func ParseAction(data string) (*Action, error) {
	parts := strings.Split(data, tokenSeparator)
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed action token %q", data)
	}

	switch ActionKind(parts[0]) {
	case ActionLanguageChoice:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("malformed language choice token %q", data)
		}
		return &Action{Kind: ActionLanguageChoice, GroupID: parts[1], Language: parts[2]}, nil
	case ActionQualityChoice:
		if len(parts) != 4 || parts[1] == "" || parts[2] == "" || parts[3] == "" {
			return nil, fmt.Errorf("malformed quality choice token %q", data)
		}
		return &Action{Kind: ActionQualityChoice, GroupID: parts[1], Language: parts[2], Quality: parts[3]}, nil
	case ActionRequestConfirm:
		title := strings.Join(parts[1:], tokenSeparator)
		if title == "" {
			return nil, fmt.Errorf("malformed request token %q", data)
		}
		return &Action{Kind: ActionRequestConfirm, Title: title}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", parts[0])
	}
}
