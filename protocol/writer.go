package protocol

import (
	"io"

	"github.com/tidwall/sjson"
)

// WritePayload writes p to w as a single JSON document.
func WritePayload(w io.Writer, p *Payload) error {
	b, err := p.MarshalJSON()
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}

// MarshalJSON encodes the payload in wire form, omitting absent header
// fields.
func (p *Payload) MarshalJSON() (b []byte, err error) {
	b = []byte(`{"header":{"version":0},"body":{}}`)

	h := p.Header
	fields := []struct {
		path  string
		value interface{}
		set   bool
	}{
		{"header.version", h.Version, true},
		{"header.requestId", h.RequestID.String(), h.HasRequestID()},
		{"header.eventName", h.EventName, h.EventName != ""},
		{"header.messageType", string(h.MessageType), h.MessageType != ""},
		{"header.messagePurpose", string(h.MessagePurpose), h.MessagePurpose != ""},
	}

	for _, f := range fields {
		if !f.set {
			continue
		}

		if b, err = sjson.SetBytes(b, f.path, f.value); err != nil {
			return nil, err
		}
	}

	if len(p.Body) > 0 {
		if b, err = sjson.SetRawBytes(b, "body", p.Body); err != nil {
			return nil, err
		}
	}

	return b, nil
}
