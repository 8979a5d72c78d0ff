// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package models holds the persisted catalog, request, and popularity
// stores plus their document types.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

func decodeDoc(raw []byte, dest any) error {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "" {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode document image: %w", err)
	}
	return nil
}
