package protocol_test

import (
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/relay/protocol"
)

var _ = Describe("Parsing", func() {
	Describe("ReadPayload()", func() {
		It("returns an error if the data is not JSON", func() {
			_, err := protocol.ReadPayload([]byte("I am not json"))
			Expect(err).To(MatchError(protocol.ErrMalformedPayload))
		})

		It("returns an error if the data is not a JSON object", func() {
			_, err := protocol.ReadPayload([]byte(`[1,2,3]`))
			Expect(err).To(MatchError(protocol.ErrMalformedPayload))
		})

		It("returns an error if the header is missing", func() {
			_, err := protocol.ReadPayload([]byte(`{"body":{}}`))
			Expect(errors.Is(err, protocol.ErrMissingHeader)).To(BeTrue())
		})

		It("parses a command response", func() {
			id := uuid.New()
			p, err := protocol.ReadPayload([]byte(`{
				"header": {
					"version": 1,
					"requestId": "` + id.String() + `",
					"messagePurpose": "commandResponse"
				},
				"body": {"statusCode": 0, "statusMessage": "ok"}
			}`))

			Expect(err).To(Succeed())
			Expect(p.Header.RequestID).To(Equal(id))
			Expect(p.Header.EventName).To(BeEmpty())
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeCommandResponse))
			Expect(p.Get("statusMessage").String()).To(Equal("ok"))
			Expect(p.ErrorOrNil()).To(Succeed())
		})

		It("parses an event delivery", func() {
			p, err := protocol.ReadPayload([]byte(`{
				"header": {"eventName": "PlayerMessage", "messagePurpose": "event", "requestId": "00000000-0000-0000-0000-000000000000"},
				"body": {"message": "hello"}
			}`))

			Expect(err).To(Succeed())
			Expect(p.Header.EventName).To(Equal("PlayerMessage"))
			Expect(p.Header.HasRequestID()).To(BeFalse())
			Expect(p.Get("message").String()).To(Equal("hello"))
		})

		It("treats an invalid request id as absent", func() {
			p, err := protocol.ReadPayload([]byte(`{"header":{"requestId":"nope"}}`))
			Expect(err).To(Succeed())
			Expect(p.Header.HasRequestID()).To(BeFalse())
			Expect(string(p.Body)).To(Equal(`{}`))
		})
	})

	Describe("ErrorOrNil()", func() {
		It("reports a non zero status code", func() {
			p, err := protocol.ReadPayload([]byte(`{
				"header": {"messagePurpose": "commandResponse"},
				"body": {"statusCode": -2147483648, "statusMessage": "Syntax error"}
			}`))
			Expect(err).To(Succeed())

			var cmdErr *protocol.CommandError
			Expect(errors.As(p.ErrorOrNil(), &cmdErr)).To(BeTrue())
			Expect(cmdErr.Code).To(Equal(int64(-2147483648)))
			Expect(cmdErr.Message).To(Equal("Syntax error"))
		})

		It("reports error purpose payloads", func() {
			p, err := protocol.ReadPayload([]byte(`{"header":{"messagePurpose":"error"},"body":{"statusMessage":"bad"}}`))
			Expect(err).To(Succeed())
			Expect(p.ErrorOrNil()).To(HaveOccurred())
		})
	})
})
