// Package message encodes and decodes the JSON frames exchanged with
// clients. Messages are externally tagged: a single-key object whose key
// names the variant.
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dicebrawl/server/internal/world"
)

// ErrMalformedMessage is returned for frames that do not decode to a known
// client message.
var ErrMalformedMessage = errors.New("malformed message")

// Kind identifies a client message variant.
type Kind int

const (
	FinishDrafting Kind = iota
	ChooseAction
	ChooseTarget
)

var kindNames = [...]string{"FinishDrafting", "ChooseAction", "ChooseTarget"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ClientMessage is one decoded client request. Indices is set for
// FinishDrafting, Index for the two choice messages.
type ClientMessage struct {
	Kind    Kind
	Indices []int
	Index   int
}

// Decode parses one text frame.
func Decode(frame []byte) (ClientMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(frame, &obj); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(obj) != 1 {
		return ClientMessage{}, fmt.Errorf("%w: want one variant, got %d keys", ErrMalformedMessage, len(obj))
	}

	var key string
	var body json.RawMessage
	for key, body = range obj {
	}

	switch key {
	case "FinishDrafting":
		var indices []int
		if err := decodeStrict(body, &indices); err != nil {
			return ClientMessage{}, fmt.Errorf("%w: FinishDrafting: %v", ErrMalformedMessage, err)
		}
		for _, i := range indices {
			if i < 0 {
				return ClientMessage{}, fmt.Errorf("%w: FinishDrafting: negative index %d", ErrMalformedMessage, i)
			}
		}
		return ClientMessage{Kind: FinishDrafting, Indices: indices}, nil

	case "ChooseAction", "ChooseTarget":
		var index int
		if err := decodeStrict(body, &index); err != nil {
			return ClientMessage{}, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, key, err)
		}
		if index < 0 {
			return ClientMessage{}, fmt.Errorf("%w: %s: negative index %d", ErrMalformedMessage, key, index)
		}
		kind := ChooseAction
		if key == "ChooseTarget" {
			kind = ChooseTarget
		}
		return ClientMessage{Kind: kind, Index: index}, nil
	}
	return ClientMessage{}, fmt.Errorf("%w: unknown variant %q", ErrMalformedMessage, key)
}

// decodeStrict rejects null and non-integer numbers.
func decodeStrict(body json.RawMessage, v any) error {
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return errors.New("null body")
	}
	return json.Unmarshal(body, v)
}

// EncodeNewState renders the NewState server message.
func EncodeNewState(snap world.Snapshot) ([]byte, error) {
	body, err := snap.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return json.Marshal(map[string]json.RawMessage{"NewState": body})
}

// DecodeNewState parses a NewState server message. Used by clients and
// tests.
func DecodeNewState(frame []byte) (world.Snapshot, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(frame, &obj); err != nil {
		return world.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	body, ok := obj["NewState"]
	if !ok || len(obj) != 1 {
		return world.Snapshot{}, fmt.Errorf("%w: not a NewState message", ErrMalformedMessage)
	}
	var snap world.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return world.Snapshot{}, fmt.Errorf("%w: NewState: %v", ErrMalformedMessage, err)
	}
	return snap, nil
}
