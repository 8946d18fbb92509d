package protocol

// Version is the protocol version written into every header and command body.
const Version = 1

type MessageType string

const (
	TypeCommandRequest  MessageType = "commandRequest"
	TypeCommandResponse MessageType = "commandResponse"
	TypeEvent           MessageType = "event"
	TypeError           MessageType = "error"
)

type Purpose string

const (
	PurposeCommandRequest  Purpose = "commandRequest"
	PurposeSubscribe       Purpose = "subscribe"
	PurposeUnsubscribe     Purpose = "unsubscribe"
	PurposeCommandResponse Purpose = "commandResponse"
	PurposeEvent           Purpose = "event"
	PurposeError           Purpose = "error"
)

// Names of the builders registered on Builders.
const (
	BuildBase    = "base"
	BuildEvent   = "event"
	BuildCommand = "command"
)

const (
	OriginPlayer     = "player"
	DefaultOverworld = "default"
)
