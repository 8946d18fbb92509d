package client

import (
	"errors"
	"io"
)

// ErrConnClosed is returned by Conn implementations once the peer or the
// local side has closed the connection normally.
var ErrConnClosed = io.EOF

// Conn is a text framed, bidirectional message stream. Implementations must
// allow one concurrent reader alongside one concurrent writer.
type Conn interface {
	// ReadMessage blocks until the next frame arrives. It returns an error
	// once the connection is closed.
	ReadMessage() ([]byte, error)

	WriteMessage(data []byte) error

	Close() error

	RemoteAddr() string
}

func isClosedErr(err error) bool {
	return errors.Is(err, ErrConnClosed)
}
