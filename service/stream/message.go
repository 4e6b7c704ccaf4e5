package stream

import (
	"encoding/json"
	"fmt"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/tidwall/gjson"
)

type MessageKind int

const (
	MessageResult MessageKind = iota + 1
	MessageCompleted
)

// Message is exactly one of a per-frame result or the completion signal.
type Message struct {
	Kind   MessageKind
	Result model.InboundResult
}

// Interpret decodes one inbound text message. The status discriminator is
// checked first; only messages without it may be frame results.
func Interpret(raw string) (Message, error) {
	if !gjson.Valid(raw) {
		return Message{}, fmt.Errorf("%w: invalid json", ErrParse)
	}

	root := gjson.Parse(raw)
	if !root.IsObject() {
		return Message{}, fmt.Errorf("%w: not an object", ErrParse)
	}

	if status := root.Get("status"); status.Exists() {
		if status.String() == "completed" {
			return Message{Kind: MessageCompleted}, nil
		}
		return Message{}, fmt.Errorf("%w: unknown status %q", ErrParse, status.String())
	}

	if frame := root.Get("frame_number"); !frame.Exists() || frame.Type != gjson.Number {
		return Message{}, fmt.Errorf("%w: missing frame_number", ErrParse)
	}

	var result model.InboundResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return Message{Kind: MessageResult, Result: result}, nil
}
