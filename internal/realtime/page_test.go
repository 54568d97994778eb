package realtime_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/repository/memory"
)

var _ = Describe("Page", func() {
	var (
		ctx     context.Context
		backend *memory.Backend
		hub     *realtime.Hub
		scope   domain.Scope
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = memory.New()
		hub = realtime.NewHub(backend.Feed, realtime.HubConfig{}, nil)
		scope = domain.Scope{Column: domain.ColumnWorkspaceID, Value: "ws-1"}
	})

	mountProjects := func(owner string) *realtime.LiveView[domain.Project] {
		lv, err := realtime.Mount(ctx, hub, realtime.Source[domain.Project]{
			Name:  domain.TableProjects,
			Owner: owner,
			Scope: scope,
			Fetch: func(ctx context.Context) ([]domain.Project, error) {
				return backend.Store.Projects.Select(ctx, repository.ScopedQuery(scope))
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return lv
	}

	It("resolves its id to the part of the requested type", func() {
		tasks, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		projects := mountProjects("m-1")
		page := realtime.NewPage(hub, "projects", "m-1", projects, tasks)
		defer page.Unmount()

		Expect(realtime.Lookup[domain.Task](hub, page.ID(), "m-1")).To(BeIdenticalTo(tasks))
		Expect(realtime.Lookup[domain.Project](hub, page.ID(), "m-1")).To(BeIdenticalTo(projects))
		Expect(realtime.Lookup[domain.Task](hub, page.ID(), "m-2")).To(BeNil())
		Expect(realtime.TargetFor[domain.Meeting](hub, page.ID(), "m-1")).To(BeNil())
	})

	It("signals when any part changes", func() {
		tasks, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		projects := mountProjects("m-1")
		page := realtime.NewPage(hub, "projects", "m-1", projects, tasks)
		defer page.Unmount()

		// Drain signals from the initial fetches.
		Consistently(func() bool {
			select {
			case <-page.Changes():
			default:
			}
			return true
		}, "50ms").Should(BeTrue())

		_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "new"})
		Expect(err).NotTo(HaveOccurred())
		Eventually(page.Changes()).Should(Receive())
	})

	It("unmounts every part once", func() {
		tasks, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		page := realtime.NewPage(hub, "tasks", "m-1", tasks)
		Expect(hub.Mounts()).To(Equal(2))

		page.Unmount()
		page.Unmount()

		Expect(tasks.Mounted()).To(BeFalse())
		Expect(page.Done()).To(BeClosed())
		Expect(hub.Mounts()).To(Equal(0))
		Expect(hub.Channels()).To(Equal(0))
	})
})
