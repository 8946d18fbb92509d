package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type Header struct {
	Version        int
	RequestID      uuid.UUID
	EventName      string
	MessageType    MessageType
	MessagePurpose Purpose
}

// HasRequestID reports whether the header carries a request id.
func (h Header) HasRequestID() bool {
	return h.RequestID != uuid.Nil
}

type Payload struct {
	Header Header

	// Body is the raw JSON object of the purpose specific body.
	Body []byte
}

// Get reads a body field by gjson path, e.g. "victim.0" or "origin.type".
func (p *Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p.Body, path)
}

// Set writes a body field by sjson path.
func (p *Payload) Set(path string, value interface{}) (err error) {
	body := p.Body
	if len(body) == 0 {
		body = []byte("{}")
	}

	p.Body, err = sjson.SetBytes(body, path, value)
	return err
}

// StatusCode returns the body's statusCode, zero when absent.
func (p *Payload) StatusCode() int64 {
	return p.Get("statusCode").Int()
}

// ErrorOrNil returns a *CommandError if the payload is a response the
// console rejected. Otherwise it returns nil.
func (p *Payload) ErrorOrNil() error {
	if p.Header.MessagePurpose == PurposeError {
		return &CommandError{
			Code:    p.StatusCode(),
			Message: p.Get("statusMessage").String(),
		}
	}

	if code := p.StatusCode(); code != 0 {
		return &CommandError{
			Code:    code,
			Message: p.Get("statusMessage").String(),
		}
	}

	return nil
}

func (p *Payload) String() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid payload: %v>", err)
	}

	return string(b)
}

type CommandError struct {
	Code    int64
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed with status %d: %s", e.Code, e.Message)
}
