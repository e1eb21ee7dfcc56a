// Package codec turns moves and session events into transport payloads and back.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

// SkipPayload finishes a slot without applying anything.
const SkipPayload = "skip"

const moveSeparator = ","

// EncodeMove - builds the "<cell>, <mark>" payload. Cell identifiers are not escaped.
func EncodeMove(cell, mark string) string {
	return cell + moveSeparator + " " + mark
}

// DecodeMove - parses a payload produced by EncodeMove.
func DecodeMove(payload string) (string, string, error) {
	cell, mark, found := strings.Cut(payload, moveSeparator)
	if !found {
		return "", "", fmt.Errorf("%w: %q", apperror.ErrMalformedMove, payload)
	}

	cell, mark = strings.TrimSpace(cell), strings.TrimSpace(mark)
	if cell == "" || mark == "" {
		return "", "", fmt.Errorf("%w: %q", apperror.ErrMalformedMove, payload)
	}

	return cell, mark, nil
}

func IsSkip(payload string) bool {
	return strings.TrimSpace(payload) == SkipPayload
}

func EncodeEvent(event entity.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return data, nil
}

func DecodeEvent(data []byte) (entity.Event, error) {
	var event entity.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return entity.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Kind == "" {
		return entity.Event{}, fmt.Errorf("%w: event kind is empty", apperror.ErrMalformedMove)
	}

	return event, nil
}

func EncodeBlock(block entity.Block) (string, error) {
	data, err := json.Marshal(block)
	if err != nil {
		return "", fmt.Errorf("failed to marshal block: %w", err)
	}

	return string(data), nil
}

func DecodeBlock(payload string) (entity.Block, error) {
	var block entity.Block
	if err := json.Unmarshal([]byte(payload), &block); err != nil {
		return entity.Block{}, fmt.Errorf("%w: %w", apperror.ErrMalformedMove, err)
	}

	if block.ID == "" {
		return entity.Block{}, fmt.Errorf("%w: block id is empty", apperror.ErrMalformedMove)
	}

	return block, nil
}
