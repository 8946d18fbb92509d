package protocol_test

import (
	"bytes"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/relay/protocol"
)

var _ = Describe("Writer", func() {
	Describe("WritePayload()", func() {
		It("writes the wire form of a command request", func() {
			p, err := protocol.Builders.Command("say hi")
			Expect(err).To(Succeed())

			w := bytes.NewBuffer([]byte{})
			Expect(protocol.WritePayload(w, p)).To(Succeed())

			Expect(w.String()).To(MatchJSON(`{
				"header": {
					"version": 1,
					"requestId": "` + p.Header.RequestID.String() + `",
					"messageType": "commandRequest",
					"messagePurpose": "commandRequest"
				},
				"body": {
					"version": 1,
					"origin": {"type": "player"},
					"overworld": "default",
					"commandLine": "say hi"
				}
			}`))
		})

		It("omits absent header fields", func() {
			p := &protocol.Payload{
				Header: protocol.Header{EventName: "PlayerMessage"},
			}

			w := bytes.NewBuffer([]byte{})
			Expect(protocol.WritePayload(w, p)).To(Succeed())
			Expect(w.String()).To(MatchJSON(`{"header":{"version":0,"eventName":"PlayerMessage"},"body":{}}`))
		})

		It("can be read back", func() {
			p, err := protocol.Builders.Event("PlayerMessage", true)
			Expect(err).To(Succeed())

			w := bytes.NewBuffer([]byte{})
			Expect(protocol.WritePayload(w, p)).To(Succeed())

			back, err := protocol.ReadPayload(w.Bytes())
			Expect(err).To(Succeed())
			Expect(back.Header).To(Equal(protocol.Header{
				Version:        1,
				RequestID:      p.Header.RequestID,
				MessageType:    protocol.TypeCommandRequest,
				MessagePurpose: protocol.PurposeSubscribe,
			}))
			Expect(back.Get("eventName").String()).To(Equal("PlayerMessage"))
		})
	})

	It("Set() writes into an empty body", func() {
		p := &protocol.Payload{}
		Expect(p.Set("eventName", "PlayerMessage")).To(Succeed())
		Expect(string(p.Body)).To(MatchJSON(`{"eventName":"PlayerMessage"}`))
	})

	It("Set() keeps unrelated fields", func() {
		p := &protocol.Payload{Body: []byte(`{"a":1}`)}
		Expect(p.Set("b.c", "d")).To(Succeed())
		Expect(string(p.Body)).To(MatchJSON(`{"a":1,"b":{"c":"d"}}`))
	})

	It("uses a fresh uuid", func() {
		p, err := protocol.Builders.Build(protocol.BuildBase)
		Expect(err).To(Succeed())
		Expect(p.Header.RequestID).NotTo(Equal(uuid.Nil))
	})
})
