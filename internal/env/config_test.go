package env_test

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/relay/internal/env"
)

var _ = Describe("env", func() {
	Describe("LoadConfig()", func() {
		AfterEach(func() {
			os.Unsetenv("RELAY_IDENTIFY_TIMEOUT")
			os.Unsetenv("RELAY_COMMAND_RATE")
		})

		It("applies defaults", func() {
			config, err := env.LoadConfig(context.Background())
			Expect(err).To(Succeed())
			Expect(config.LogLevel).To(Equal("info"))
			Expect(config.IdentifyTimeout).To(Equal(10 * time.Second))
			Expect(config.CommandRate).To(BeZero())
			Expect(config.FilterConcurrency).To(Equal(16))
		})

		It("reads the environment", func() {
			os.Setenv("RELAY_IDENTIFY_TIMEOUT", "3s")
			os.Setenv("RELAY_COMMAND_RATE", "2.5")

			config, err := env.LoadConfig(context.Background())
			Expect(err).To(Succeed())
			Expect(config.IdentifyTimeout).To(Equal(3 * time.Second))
			Expect(config.CommandRate).To(Equal(2.5))
		})
	})

	Describe("MakeLogger()", func() {
		It("builds a logger for a known level", func() {
			log, err := env.MakeLogger("debug")
			Expect(err).To(Succeed())
			Expect(log).NotTo(BeNil())
		})

		It("rejects an unknown level", func() {
			_, err := env.MakeLogger("loud")
			Expect(err).To(HaveOccurred())
		})
	})
})
