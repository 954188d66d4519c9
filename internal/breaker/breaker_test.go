package breaker_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/phase"
)

func TestBreaker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Breaker Suite")
}

var _ = Describe("Circuit Breaker Table", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	})

	Context("consecutive-failure admission", func() {
		It("stays closed below the consecutive-failure threshold", func() {
			tbl := breaker.NewTable(breaker.Config{Threshold: 5, Cooldown: 30 * time.Second}, logger)

			for i := 0; i < 3; i++ {
				err := tbl.Call("video.render", func() error { return fmt.Errorf("transient") })
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, breaker.ErrDeferred)).To(BeFalse())
			}
			Expect(tbl.State("video.render")).To(Equal(breaker.Closed))
			Expect(tbl.Admit("video.render")).To(BeTrue())
		})

		It("opens once consecutive failures reach the threshold and defers further calls", func() {
			tbl := breaker.NewTable(breaker.Config{Threshold: 2, Cooldown: 50 * time.Millisecond}, logger)

			_ = tbl.Call("scrape.source", func() error { return fmt.Errorf("boom") })
			_ = tbl.Call("scrape.source", func() error { return fmt.Errorf("boom") })
			Expect(tbl.State("scrape.source")).To(Equal(breaker.Open))

			called := false
			err := tbl.Call("scrape.source", func() error { called = true; return nil })
			Expect(errors.Is(err, breaker.ErrDeferred)).To(BeTrue())
			Expect(called).To(BeFalse())
			Expect(tbl.Admit("scrape.source")).To(BeFalse())
		})

		It("resets the consecutive count on success before tripping", func() {
			tbl := breaker.NewTable(breaker.Config{Threshold: 2, Cooldown: 30 * time.Second}, logger)

			_ = tbl.Call("image.generate", func() error { return fmt.Errorf("boom") })
			_ = tbl.Call("image.generate", func() error { return nil })
			_ = tbl.Call("image.generate", func() error { return fmt.Errorf("boom") })
			Expect(tbl.State("image.generate")).To(Equal(breaker.Closed))
		})

		It("transitions Open -> HalfOpen -> Closed after cooldown and a successful probe", func() {
			tbl := breaker.NewTable(breaker.Config{Threshold: 2, Cooldown: 50 * time.Millisecond}, logger)

			_ = tbl.Call("text.generate", func() error { return fmt.Errorf("boom") })
			_ = tbl.Call("text.generate", func() error { return fmt.Errorf("boom") })
			Expect(tbl.State("text.generate")).To(Equal(breaker.Open))

			time.Sleep(60 * time.Millisecond)

			err := tbl.Call("text.generate", func() error { return nil })
			Expect(err).ToNot(HaveOccurred())
			Expect(tbl.State("text.generate")).To(Equal(breaker.Closed))
		})

		It("re-opens on a failed half-open probe", func() {
			tbl := breaker.NewTable(breaker.Config{Threshold: 1, Cooldown: 20 * time.Millisecond}, logger)

			_ = tbl.Call("voice.synthesize", func() error { return fmt.Errorf("boom") })
			Expect(tbl.State("voice.synthesize")).To(Equal(breaker.Open))

			time.Sleep(30 * time.Millisecond)

			err := tbl.Call("voice.synthesize", func() error { return fmt.Errorf("still broken") })
			Expect(err).To(HaveOccurred())
			Expect(tbl.State("voice.synthesize")).To(Equal(breaker.Open))
		})
	})

	Context("independent adapters", func() {
		It("tracks breaker state per adapter independently", func() {
			tbl := breaker.NewTable(breaker.Config{Threshold: 1, Cooldown: time.Minute}, logger)

			_ = tbl.Call("publisher.a", func() error { return fmt.Errorf("boom") })
			Expect(tbl.State("publisher.a")).To(Equal(breaker.Open))
			Expect(tbl.State(phase.AdapterID("publisher.b"))).To(Equal(breaker.Closed))
		})
	})
})
