package monitor_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
	"github.com/fastygo/teamspace/internal/infrastructure/monitor"
)

type fakeLive struct {
	channels int
	mounts   int
}

func (f fakeLive) Channels() int { return f.channels }
func (f fakeLive) Mounts() int   { return f.mounts }

type fakeWorkers struct {
	runningFn func() []string
}

func (f fakeWorkers) Running() []string { return f.runningFn() }

var _ = Describe("Monitor", func() {
	var store *ledger.Store

	BeforeEach(func() {
		var err error
		store, err = ledger.Open(filepath.Join(GinkgoT().TempDir(), "ledger.db"), "")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("treats the in-memory store as online and reports live usage", func() {
		Expect(store.Record(ledger.Entry{Kind: ledger.KindObject, Table: "documents", Path: "documents/w/m/1_a.txt"})).To(Succeed())
		probes := monitor.Probes{
			Live:    fakeLive{channels: 3, mounts: 5},
			Workers: fakeWorkers{runningFn: func() []string { return []string{"monitor"} }},
		}
		mon := monitor.New(nil, nil, store, probes, time.Second, nil)

		status := mon.Refresh(context.Background())
		Expect(status.Online()).To(BeTrue())
		Expect(status.Ledger).To(BeTrue())
		Expect(status.Orphans).To(Equal(1))
		Expect(status.Channels).To(Equal(3))
		Expect(status.Mounts).To(Equal(5))
		Expect(status.Workers).To(ConsistOf("monitor"))
		Expect(mon.GetStatus()).To(Equal(status))
	})

	It("reports the ledger as down once it is closed", func() {
		mon := monitor.New(nil, nil, store, monitor.Probes{}, time.Second, nil)
		Expect(store.Close()).To(Succeed())

		status := mon.Refresh(context.Background())
		Expect(status.Ledger).To(BeFalse())
		Expect(status.Workers).To(BeEmpty())
	})

	It("refreshes until the context is cancelled", func() {
		mon := monitor.New(nil, nil, store, monitor.Probes{Live: fakeLive{channels: 1}}, 10*time.Millisecond, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			mon.Run(ctx)
			close(done)
		}()

		Eventually(func() int { return mon.GetStatus().Channels }).Should(Equal(1))
		cancel()
		Eventually(done).Should(BeClosed())
	})
})
