package protocol

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	ErrMalformedPayload = errors.New("Payload is malformed, it is not a JSON object")
	ErrMissingHeader    = errors.New("Payload is malformed, it appears to be missing a header")
)

// ReadPayload parses a single text frame as a payload.
//
// A requestId that is not a valid uuid is treated as absent rather than as a
// parse failure, consoles send an all zero id on event deliveries.
func ReadPayload(data []byte) (*Payload, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedPayload
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrMalformedPayload
	}

	header := root.Get("header")
	if !header.IsObject() {
		return nil, fmt.Errorf("Failed to parse '%s': %w", truncate(data), ErrMissingHeader)
	}

	p := &Payload{
		Header: Header{
			Version:        int(header.Get("version").Int()),
			EventName:      header.Get("eventName").String(),
			MessageType:    MessageType(header.Get("messageType").String()),
			MessagePurpose: Purpose(header.Get("messagePurpose").String()),
		},
		Body: []byte("{}"),
	}

	if id, err := uuid.Parse(header.Get("requestId").String()); err == nil {
		p.Header.RequestID = id
	}

	if body := root.Get("body"); body.Exists() {
		p.Body = []byte(body.Raw)
	}

	return p, nil
}

func truncate(data []byte) string {
	const max = 64

	if len(data) > max {
		return string(data[:max]) + "..."
	}

	return string(data)
}
