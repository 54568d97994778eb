package lifecycle_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/internal/services/lifecycle"
)

var _ = Describe("Manager", func() {
	var m *lifecycle.Manager

	BeforeEach(func() {
		m = lifecycle.New(time.Second, nil)
	})

	It("stops components newest first and only once", func() {
		var order []string
		for _, name := range []string{"store", "http_server", "live_streams"} {
			name := name
			m.Register(name, func(context.Context) error {
				order = append(order, name)
				return nil
			})
		}

		Expect(m.Shutdown(context.Background())).To(Succeed())
		Expect(m.Shutdown(context.Background())).To(Succeed())
		Expect(order).To(Equal([]string{"live_streams", "http_server", "store"}))
	})

	It("keeps going after a failed hook and reports it", func() {
		stopped := false
		m.Register("store", func(context.Context) error {
			stopped = true
			return nil
		})
		m.Register("broken", func(context.Context) error {
			return errors.New("boom")
		})

		Expect(m.Shutdown(context.Background())).To(MatchError(ContainSubstring("boom")))
		Expect(stopped).To(BeTrue())
	})

	It("waits for workers and survives a panicking one", func() {
		ctx, cancel := context.WithCancel(context.Background())
		m.Go(ctx, "listener", func(ctx context.Context) { <-ctx.Done() })
		m.Go(ctx, "faulty", func(context.Context) { panic("bad row") })

		Eventually(m.Running).Should(Equal([]string{"listener"}))

		cancel()
		Expect(m.Shutdown(context.Background())).To(Succeed())
		Expect(m.Running()).To(BeEmpty())
	})

	It("gives up on workers at the deadline", func() {
		m = lifecycle.New(50*time.Millisecond, nil)
		release := make(chan struct{})
		DeferCleanup(func() { close(release) })
		m.Go(context.Background(), "stuck", func(context.Context) { <-release })

		Expect(m.Shutdown(context.Background())).To(MatchError(context.DeadlineExceeded))
	})
})
