package protocol_test

import (
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/relay/protocol"
)

var _ = Describe("Builders", func() {
	Describe("Register()", func() {
		It("ignores a nil builder", func() {
			r := protocol.NewRegistry()
			Expect(r.Register("nil", nil)).To(BeFalse())
			Expect(r.Names()).To(BeEmpty())
		})

		It("ignores a builder that does not produce a payload", func() {
			r := protocol.NewRegistry()
			ok := r.Register("empty", func(*protocol.Registry, ...interface{}) *protocol.Payload {
				return nil
			})

			Expect(ok).To(BeFalse())
			_, err := r.Build("empty")
			Expect(errors.Is(err, protocol.ErrUnknownBuilder)).To(BeTrue())
		})

		It("ignores a builder that panics when probed", func() {
			r := protocol.NewRegistry()
			ok := r.Register("panics", func(_ *protocol.Registry, args ...interface{}) *protocol.Payload {
				_ = args[0].(string)
				return &protocol.Payload{}
			})

			Expect(ok).To(BeFalse())
			Expect(r.Names()).To(BeEmpty())
		})

		It("replaces an earlier builder of the same name", func() {
			r := protocol.NewRegistry()
			first := func(*protocol.Registry, ...interface{}) *protocol.Payload {
				return &protocol.Payload{Header: protocol.Header{EventName: "first"}}
			}
			second := func(*protocol.Registry, ...interface{}) *protocol.Payload {
				return &protocol.Payload{Header: protocol.Header{EventName: "second"}}
			}

			Expect(r.Register("p", first)).To(BeTrue())
			Expect(r.Register("p", second)).To(BeTrue())

			p, err := r.Build("p")
			Expect(err).To(Succeed())
			Expect(p.Header.EventName).To(Equal("second"))
		})
	})

	Describe("Build()", func() {
		It("returns ErrUnknownBuilder for an unregistered name", func() {
			_, err := protocol.Builders.Build("nope")
			Expect(errors.Is(err, protocol.ErrUnknownBuilder)).To(BeTrue())
		})

		It("lets builders compose other builders by name", func() {
			r := protocol.NewDefaultRegistry()
			r.Register("say", func(r *protocol.Registry, args ...interface{}) *protocol.Payload {
				msg, _ := args0(args).(string)
				p, err := r.Command("say " + msg)
				if err != nil {
					return nil
				}
				return p
			})

			p, err := r.Build("say", "hi")
			Expect(err).To(Succeed())
			Expect(p.Get("commandLine").String()).To(Equal("say hi"))
		})

		It("assigns a fresh request id on every call", func() {
			seen := map[uuid.UUID]struct{}{}

			for i := 0; i < 100; i++ {
				p, err := protocol.Builders.Command("say hi")
				Expect(err).To(Succeed())
				Expect(p.Header.HasRequestID()).To(BeTrue())
				Expect(seen).NotTo(HaveKey(p.Header.RequestID))
				seen[p.Header.RequestID] = struct{}{}
			}
		})
	})

	Describe("base", func() {
		It("defaults the purpose to commandRequest", func() {
			p, err := protocol.Builders.Build(protocol.BuildBase)
			Expect(err).To(Succeed())
			Expect(p.Header.Version).To(Equal(1))
			Expect(p.Header.MessageType).To(Equal(protocol.TypeCommandRequest))
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeCommandRequest))
			Expect(string(p.Body)).To(Equal(`{}`))
		})

		It("uses the supplied purpose", func() {
			p, err := protocol.Builders.Build(protocol.BuildBase, "subscribe")
			Expect(err).To(Succeed())
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeSubscribe))
		})
	})

	Describe("event", func() {
		It("builds a subscribe request", func() {
			p, err := protocol.Builders.Event("PlayerMessage", true)
			Expect(err).To(Succeed())
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeSubscribe))
			Expect(p.Header.MessageType).To(Equal(protocol.TypeCommandRequest))
			Expect(string(p.Body)).To(MatchJSON(`{"eventName":"PlayerMessage"}`))
		})

		It("builds an unsubscribe request", func() {
			p, err := protocol.Builders.Event("PlayerMessage", false)
			Expect(err).To(Succeed())
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeUnsubscribe))
		})

		It("subscribes when the flag is omitted", func() {
			p, err := protocol.Builders.Build(protocol.BuildEvent, "BlockPlaced")
			Expect(err).To(Succeed())
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeSubscribe))
		})
	})

	Describe("command", func() {
		It("builds a command request body", func() {
			p, err := protocol.Builders.Command("say hi")
			Expect(err).To(Succeed())
			Expect(p.Header.MessagePurpose).To(Equal(protocol.PurposeCommandRequest))
			Expect(string(p.Body)).To(MatchJSON(`{
				"version": 1,
				"origin": {"type": "player"},
				"overworld": "default",
				"commandLine": "say hi"
			}`))
		})
	})
})

func args0(args []interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
