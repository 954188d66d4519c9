package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/graph"
	"github.com/castforge/castforge/internal/ledger"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/scheduler"
	"github.com/castforge/castforge/internal/workflow"
)

func TestScheduler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scheduler Suite")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func fastPolicy() phase.RetryPolicy {
	return phase.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterFraction: 0}
}

func newScheduler(reg adapter.Registry) *scheduler.Scheduler {
	return &scheduler.Scheduler{
		Adapters:     reg,
		Breakers:     breaker.NewTable(breaker.DefaultConfig(), quietLogger()),
		Ledger:       ledger.New(nil, nil),
		Logger:       quietLogger(),
		PollInterval: time.Millisecond,
		GracePeriod:  50 * time.Millisecond,
	}
}

func twoPhaseGraph(secondCriticality phase.Criticality) *graph.Graph {
	specs := []*phase.Spec{
		{
			ID: "first", Produces: phase.KeySet("a"), Adapter: "adapter_first",
			Retry: fastPolicy(), Criticality: phase.Critical,
		},
		{
			ID: "second", Requires: phase.RequiresSet("first"), Adapter: "adapter_second",
			Retry: fastPolicy(), Criticality: secondCriticality,
		},
	}
	g, err := graph.Build(specs)
	Expect(err).NotTo(HaveOccurred())
	return g
}

var _ = Describe("Scheduler", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("runs independent phases to success in dependency order", func() {
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{Outputs: map[phase.Key]interface{}{"a": 1}}
			}),
			"adapter_second": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				Expect(in["a"]).To(Equal(1))
				return adapter.Result{}
			}),
		}
		g := twoPhaseGraph(phase.Critical)
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(wfCtx.PhaseStatus["first"]).To(Equal(workflow.Succeeded))
		Expect(wfCtx.PhaseStatus["second"]).To(Equal(workflow.Succeeded))
	})

	It("recovers from a transient failure within MaxAttempts", func() {
		var calls int32
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				if atomic.AddInt32(&calls, 1) < 2 {
					return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Transient, Message: "flaky"}}
				}
				return adapter.Result{Outputs: map[phase.Key]interface{}{"a": 1}}
			}),
			"adapter_second": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{}
			}),
		}
		g := twoPhaseGraph(phase.Critical)
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(wfCtx.Attempts["first"]).To(Equal(2))
	})

	It("aborts and cascades a Skip when a Critical phase fails permanently", func() {
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: "boom"}}
			}),
			"adapter_second": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				Fail("second phase must not run once first fails Critical")
				return adapter.Result{}
			}),
		}
		g := twoPhaseGraph(phase.Critical)
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Failure"))
		Expect(wfCtx.PhaseStatus["first"]).To(Equal(workflow.Failed))
		Expect(wfCtx.PhaseStatus["second"]).To(Equal(workflow.Skipped))
	})

	It("does not abort the run when only a BestEffort phase fails", func() {
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: "boom"}}
			}),
		}
		specs := []*phase.Spec{
			{ID: "first", Produces: phase.KeySet("a"), Adapter: "adapter_first", Retry: fastPolicy(), Criticality: phase.BestEffort},
		}
		g, err := graph.Build(specs)
		Expect(err).NotTo(HaveOccurred())
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(wfCtx.NonFatalFail["first"]).To(BeTrue())
	})

	It("lets a dependent proceed via AcceptsMissing when its predecessor fails", func() {
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: "boom"}}
			}),
			"adapter_second": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{}
			}),
		}
		specs := []*phase.Spec{
			{ID: "first", Produces: phase.KeySet("a"), Adapter: "adapter_first", Retry: fastPolicy(), Criticality: phase.BestEffort},
			{
				ID: "second", Requires: phase.RequiresSet("first"), AcceptsMissing: phase.KeySet("a"),
				Adapter: "adapter_second", Retry: fastPolicy(), Criticality: phase.Critical,
			},
		}
		g, err := graph.Build(specs)
		Expect(err).NotTo(HaveOccurred())
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(wfCtx.PhaseStatus["second"]).To(Equal(workflow.Succeeded))
	})

	It("does not re-run a phase restored as already Succeeded", func() {
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				Fail("first must not re-run once already Succeeded")
				return adapter.Result{}
			}),
			"adapter_second": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				return adapter.Result{}
			}),
		}
		g := twoPhaseGraph(phase.Critical)
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)
		wfCtx.PhaseStatus["first"] = workflow.Succeeded
		wfCtx.Outputs["a"] = 1

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(wfCtx.PhaseStatus["second"]).To(Equal(workflow.Succeeded))
	})

	It("defers a phase whose breaker is Open and admits it once the cooldown elapses", func() {
		var calls int32
		reg := adapter.Registry{
			"adapter_first": adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
				atomic.AddInt32(&calls, 1)
				return adapter.Result{Outputs: map[phase.Key]interface{}{"a": 1}}
			}),
		}
		specs := []*phase.Spec{
			{ID: "first", Produces: phase.KeySet("a"), Adapter: "adapter_first", Retry: fastPolicy(), Criticality: phase.Critical},
		}
		g, err := graph.Build(specs)
		Expect(err).NotTo(HaveOccurred())

		s := newScheduler(reg)
		s.Breakers.WithOverride("adapter_first", breaker.Config{Threshold: 1, Cooldown: 10 * time.Millisecond})

		// Trip the breaker before Run even starts via a throwaway failing call.
		_ = s.Breakers.Call("adapter_first", func() error { return assertErr })

		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)
		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(atomic.LoadInt32(&calls)).To(BeNumerically(">=", int32(1)))
	})

	It("keeps update_status and finalize Succeeded when every BestEffort publish phase fails Permanent", func() {
		reg := standardSucceedingRegistry()
		reg[registry.AdapterPublish] = adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
			return adapter.Result{Err: &workflow.ErrorRecord{Kind: phase.Permanent, Message: "publish rejected"}}
		})
		g, err := graph.Build(registry.Standard())
		Expect(err).NotTo(HaveOccurred())
		s := newScheduler(reg)
		wfCtx := workflow.New(workflow.NewID(), workflow.Standard)

		rep, err := s.Run(ctx, g, wfCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Outcome).To(BeEquivalentTo("Success"))
		Expect(wfCtx.PhaseStatus[registry.PublishA]).To(Equal(workflow.Failed))
		Expect(wfCtx.PhaseStatus[registry.PublishB]).To(Equal(workflow.Failed))
		Expect(wfCtx.PhaseStatus[registry.PublishC]).To(Equal(workflow.Failed))
		Expect(wfCtx.PhaseStatus[registry.UpdateStatus]).To(Equal(workflow.Succeeded))
		Expect(wfCtx.PhaseStatus[registry.Finalize]).To(Equal(workflow.Succeeded))
	})
})

var assertErr = &workflow.ErrorRecord{Kind: phase.Transient, Message: "seed failure"}

// standardSucceedingRegistry stubs every AdapterID the Standard catalogue
// references with a handler that succeeds and produces whatever keys its
// phases declare, so individual tests only need to override the adapter
// under test.
func standardSucceedingRegistry() adapter.Registry {
	ok := func(keys ...phase.Key) adapter.Adapter {
		return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
			out := make(adapter.Input, len(keys))
			for _, k := range keys {
				out[k] = true
			}
			return adapter.Result{Outputs: out}
		})
	}
	return adapter.Registry{
		registry.AdapterTokenRefresh:    ok(registry.KeyCredentialsValid),
		registry.AdapterRecordFetch:     ok(registry.KeyItem),
		registry.AdapterScrape:          ok(registry.KeyScrapedContent),
		registry.AdapterCategoryExtract: ok(registry.KeyCategory),
		registry.AdapterValidate:        ok(registry.KeyProductsValid, registry.KeyMediaValid),
		registry.AdapterRecordPatch:     ok(registry.KeyPersisted, registry.KeyStatusUpdated),
		registry.AdapterTextGenerate:    ok(registry.KeyTextContent, registry.KeyScriptText),
		registry.AdapterImageGenerate:   ok(registry.KeyImageHandles),
		registry.AdapterVoiceSynthesize: ok(registry.KeyVoiceHandles),
		registry.AdapterVideoRender:     ok(registry.KeyVideoHandle),
		registry.AdapterPublish:         ok(registry.KeyPublishAResult, registry.KeyPublishBResult, registry.KeyPublishCResult),
		registry.AdapterLifecycle:       ok(registry.KeyFinalized),
	}
}
