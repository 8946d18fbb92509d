package transport_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/time/rate"

	"github.com/luma/relay/protocol"
	"github.com/luma/relay/transport"
)

var _ = Describe("Options", func() {
	It("fills in defaults", func() {
		o := transport.Options{}.WithDefaults()

		Expect(o.Path).To(Equal("/"))
		Expect(o.IdentifyTimeout).To(Equal(transport.DefaultIdentifyTimeout))
		Expect(o.FilterConcurrency).To(Equal(transport.DefaultFilterConcurrency))
		Expect(o.WriteTimeout).To(Equal(transport.DefaultWriteTimeout))
		Expect(o.StopTimeout).To(Equal(5 * time.Second))
		Expect(o.Builders).To(BeIdenticalTo(protocol.Builders))
		Expect(o.Log).NotTo(BeNil())
	})

	It("keeps the values it was given", func() {
		o := transport.Options{
			Path:         "/ws",
			StopTimeout:  time.Second,
			CommandRate:  rate.Limit(5),
			CommandBurst: 0,
		}.WithDefaults()

		Expect(o.Path).To(Equal("/ws"))
		Expect(o.StopTimeout).To(Equal(time.Second))
		Expect(o.CommandBurst).To(Equal(1))
	})
})
