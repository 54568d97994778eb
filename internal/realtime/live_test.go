package realtime_test

import (
	"context"
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/repository/memory"
)

func taskSource(backend *memory.Backend, owner string, scope domain.Scope) realtime.Source[domain.Task] {
	return realtime.Source[domain.Task]{
		Name:  domain.TableTasks,
		Owner: owner,
		Scope: scope,
		Fetch: func(ctx context.Context) ([]domain.Task, error) {
			return backend.Store.Tasks.Select(ctx, repository.Query{Scope: scope, OrderBy: "created_at"})
		},
	}
}

var _ = Describe("LiveView", func() {
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

	It("loads the scoped records on mount", func() {
		_, err := backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "mine"})
		Expect(err).NotTo(HaveOccurred())
		_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-2", Title: "theirs"})
		Expect(err).NotTo(HaveOccurred())

		lv, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		defer lv.Unmount()

		Expect(lv.Snapshot()).To(HaveLen(1))
		Expect(lv.Snapshot()[0].Title).To(Equal("mine"))
		Expect(lv.Live()).To(BeTrue())
		Expect(hub.Mounts()).To(Equal(1))
	})

	It("re-fetches when the store reports a change in scope", func() {
		lv, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		defer lv.Unmount()
		Expect(lv.Snapshot()).To(BeEmpty())

		_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "new"})
		Expect(err).NotTo(HaveOccurred())

		Eventually(lv.Snapshot).Should(HaveLen(1))
	})

	It("rejects a source without a scope", func() {
		src := taskSource(backend, "m-1", scope)
		src.Scope = domain.Scope{}
		_, err := realtime.Mount(ctx, hub, src)
		Expect(errors.Is(err, domain.ErrMissingScope)).To(BeTrue())
	})

	It("closes its channels on unmount", func() {
		a, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		b, err := realtime.Mount(ctx, hub, taskSource(backend, "m-2", scope))
		Expect(err).NotTo(HaveOccurred())
		Expect(backend.Feed.Subscribers(domain.TableTasks, scope)).To(Equal(1))

		a.Unmount()
		Expect(backend.Feed.Subscribers(domain.TableTasks, scope)).To(Equal(1))
		b.Unmount()
		Expect(backend.Feed.Subscribers(domain.TableTasks, scope)).To(Equal(0))
		Expect(hub.Mounts()).To(Equal(0))
		Expect(errors.Is(a.Refresh(ctx), realtime.ErrUnmounted)).To(BeTrue())
	})

	It("still shows the initial fetch when subscribing fails", func() {
		_, err := backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "mine"})
		Expect(err).NotTo(HaveOccurred())
		backend.Feed.SetOffline(true)

		lv, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		defer lv.Unmount()

		Expect(lv.Err()).NotTo(HaveOccurred())
		Expect(lv.Live()).To(BeFalse())
		Expect(lv.Snapshot()).To(HaveLen(1))
	})

	It("records a fetch failure and keeps the last good list", func() {
		var fail atomic.Bool
		src := taskSource(backend, "m-1", scope)
		inner := src.Fetch
		src.Fetch = func(ctx context.Context) ([]domain.Task, error) {
			if fail.Load() {
				return nil, errors.New("store unavailable")
			}
			return inner(ctx)
		}
		_, err := backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "mine"})
		Expect(err).NotTo(HaveOccurred())

		lv, err := realtime.Mount(ctx, hub, src)
		Expect(err).NotTo(HaveOccurred())
		defer lv.Unmount()

		fail.Store(true)
		Expect(lv.Refresh(ctx)).To(MatchError("store unavailable"))
		Expect(domain.UserMessage(lv.Err())).To(Equal("store unavailable"))
		Expect(lv.Snapshot()).To(HaveLen(1))
	})

	It("refuses records from another scope", func() {
		src := taskSource(backend, "m-1", scope)
		src.Fetch = func(context.Context) ([]domain.Task, error) {
			return []domain.Task{{ID: "x", WorkspaceID: "ws-2"}}, nil
		}
		lv, err := realtime.Mount(ctx, hub, src)
		Expect(err).NotTo(HaveOccurred())
		defer lv.Unmount()

		Expect(errors.Is(lv.Err(), domain.ErrScopeLeak)).To(BeTrue())
		Expect(lv.Snapshot()).To(BeEmpty())
	})

	It("drops a fetch result that lands after a newer fetch", func() {
		var calls atomic.Int32
		release := make(chan struct{})
		src := taskSource(backend, "m-1", scope)
		src.Fetch = func(context.Context) ([]domain.Task, error) {
			if calls.Add(1) == 1 {
				<-release
				return []domain.Task{task("old", domain.TaskTodo)}, nil
			}
			return []domain.Task{task("fresh", domain.TaskTodo)}, nil
		}

		mounted := make(chan *realtime.LiveView[domain.Task], 1)
		go func() {
			defer GinkgoRecover()
			lv, err := realtime.Mount(ctx, hub, src)
			Expect(err).NotTo(HaveOccurred())
			mounted <- lv
		}()

		Eventually(calls.Load).Should(Equal(int32(1)))
		Eventually(func() int { return hub.Registry().Handles(domain.TableTasks, scope) }).Should(Equal(1))
		Expect(backend.Feed.Publish(ctx, domain.ChangeEvent{Table: domain.TableTasks, Op: domain.OpUpdate, Scope: scope})).To(Succeed())
		Eventually(calls.Load).Should(BeNumerically(">=", 2))

		close(release)
		var lv *realtime.LiveView[domain.Task]
		Eventually(mounted).Should(Receive(&lv))
		defer lv.Unmount()

		ids := func() []string {
			var out []string
			for _, t := range lv.Snapshot() {
				out = append(out, t.ID)
			}
			return out
		}
		Eventually(ids).Should(Equal([]string{"fresh"}))
		Consistently(ids, "50ms").Should(Equal([]string{"fresh"}))
	})

	It("ignores a fetch result that lands after unmount", func() {
		var slow atomic.Bool
		release := make(chan struct{})
		started := make(chan struct{})
		src := taskSource(backend, "m-1", scope)
		src.Fetch = func(context.Context) ([]domain.Task, error) {
			if slow.Load() {
				close(started)
				<-release
				return []domain.Task{task("late", domain.TaskTodo)}, nil
			}
			return []domain.Task{task("first", domain.TaskTodo)}, nil
		}
		lv, err := realtime.Mount(ctx, hub, src)
		Expect(err).NotTo(HaveOccurred())

		slow.Store(true)
		done := make(chan error, 1)
		go func() { done <- lv.Refresh(ctx) }()

		Eventually(started).Should(BeClosed())
		lv.Unmount()
		close(release)

		Eventually(done).Should(Receive(BeNil()))
		Expect(lv.Snapshot()).To(HaveLen(1))
		Expect(lv.Snapshot()[0].ID).To(Equal("first"))
	})

	It("finds mounted views only for their owner", func() {
		lv, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		defer lv.Unmount()

		Expect(realtime.Lookup[domain.Task](hub, lv.ID(), "m-1")).To(Equal(lv))
		Expect(realtime.Lookup[domain.Task](hub, lv.ID(), "m-2")).To(BeNil())
		Expect(realtime.Lookup[domain.Project](hub, lv.ID(), "m-1")).To(BeNil())
		Expect(realtime.TargetFor[domain.Task](hub, "unknown", "m-1")).To(BeNil())
	})

	Describe("shared fetches", func() {
		var (
			table    *slowTable[domain.Task]
			held     atomic.Bool
			inFlight atomic.Int32
			release  chan struct{}
		)

		BeforeEach(func() {
			held.Store(false)
			inFlight.Store(0)
			release = make(chan struct{})
			table = &slowTable[domain.Task]{Table: backend.Store.Tasks}
			table.selectFn = func(ctx context.Context, q repository.Query) ([]domain.Task, error) {
				if held.Load() {
					inFlight.Add(1)
					<-release
				}
				return backend.Store.Tasks.Select(ctx, q)
			}
			for _, title := range []string{"Zed", "Ada"} {
				_, err := backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: title})
				Expect(err).NotTo(HaveOccurred())
			}
		})

		titles := func(lv *realtime.LiveView[domain.Task]) func() []string {
			return func() []string {
				var out []string
				for _, t := range lv.Snapshot() {
					out = append(out, t.Title)
				}
				return out
			}
		}

		It("runs each distinct query of a table on its own", func() {
			byTitle, err := realtime.Mount(ctx, hub, realtime.Selecting[domain.Task](table, "m-1", repository.Query{Scope: scope, OrderBy: "title"}))
			Expect(err).NotTo(HaveOccurred())
			defer byTitle.Unmount()
			reverse, err := realtime.Mount(ctx, hub, realtime.Selecting[domain.Task](table, "m-2", repository.Query{Scope: scope, OrderBy: "title", Desc: true}))
			Expect(err).NotTo(HaveOccurred())
			defer reverse.Unmount()
			before := byTitle.View().Version() + reverse.View().Version()

			held.Store(true)
			Expect(backend.Feed.Publish(ctx, domain.ChangeEvent{Table: domain.TableTasks, Op: domain.OpUpdate, Scope: scope})).To(Succeed())
			Eventually(inFlight.Load).Should(Equal(int32(2)))
			close(release)

			Eventually(func() uint64 { return byTitle.View().Version() + reverse.View().Version() }).Should(Equal(before + 2))
			Expect(titles(byTitle)()).To(Equal([]string{"Ada", "Zed"}))
			Expect(titles(reverse)()).To(Equal([]string{"Zed", "Ada"}))
		})

		It("shares one call between views of the same query", func() {
			q := repository.Query{Scope: scope, OrderBy: "title"}
			a, err := realtime.Mount(ctx, hub, realtime.Selecting[domain.Task](table, "m-1", q))
			Expect(err).NotTo(HaveOccurred())
			defer a.Unmount()
			b, err := realtime.Mount(ctx, hub, realtime.Selecting[domain.Task](table, "m-2", q))
			Expect(err).NotTo(HaveOccurred())
			defer b.Unmount()
			before := a.View().Version() + b.View().Version()

			held.Store(true)
			Expect(backend.Feed.Publish(ctx, domain.ChangeEvent{Table: domain.TableTasks, Op: domain.OpUpdate, Scope: scope})).To(Succeed())
			Eventually(inFlight.Load).Should(Equal(int32(1)))
			Consistently(inFlight.Load, "100ms").Should(Equal(int32(1)))
			close(release)

			Eventually(func() uint64 { return a.View().Version() + b.View().Version() }).Should(Equal(before + 2))
			Expect(titles(a)()).To(Equal(titles(b)()))
		})

		It("keeps hand-written fetches without a query apart", func() {
			first := taskSource(backend, "m-1", scope)
			second := taskSource(backend, "m-1", scope)
			second.Fetch = func(ctx context.Context) ([]domain.Task, error) {
				return table.Select(ctx, repository.Query{Scope: scope, OrderBy: "title"})
			}
			a, err := realtime.Mount(ctx, hub, first)
			Expect(err).NotTo(HaveOccurred())
			defer a.Unmount()
			b, err := realtime.Mount(ctx, hub, second)
			Expect(err).NotTo(HaveOccurred())
			defer b.Unmount()

			va, vb := a.View().Version(), b.View().Version()

			held.Store(true)
			Expect(backend.Feed.Publish(ctx, domain.ChangeEvent{Table: domain.TableTasks, Op: domain.OpUpdate, Scope: scope})).To(Succeed())
			Eventually(inFlight.Load).Should(Equal(int32(1)))
			Eventually(a.View().Version).Should(Equal(va + 1))
			Expect(b.View().Version()).To(Equal(vb))
			close(release)
			Eventually(b.View().Version).Should(Equal(vb + 1))
			Expect(titles(b)()).To(Equal([]string{"Ada", "Zed"}))
		})
	})

	Describe("access checks", func() {
		var revoked atomic.Bool

		BeforeEach(func() {
			revoked.Store(false)
			hub = realtime.NewHub(backend.Feed, realtime.HubConfig{
				Admit: func(_ context.Context, owner string, _ domain.Scope) error {
					if owner == "m-1" && revoked.Load() {
						return domain.ErrScopeRevoked
					}
					return nil
				},
			}, nil)
		})

		It("unmounts every view of an owner who lost access before showing new rows", func() {
			lv, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
			Expect(err).NotTo(HaveOccurred())
			page := realtime.NewPage(hub, "tasks", "m-1", lv)
			other, err := realtime.Mount(ctx, hub, taskSource(backend, "m-2", scope))
			Expect(err).NotTo(HaveOccurred())
			defer other.Unmount()

			revoked.Store(true)
			_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "secret"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(page.Done()).Should(BeClosed())
			Expect(lv.Mounted()).To(BeFalse())
			Expect(lv.Snapshot()).To(BeEmpty())
			Eventually(other.Snapshot).Should(HaveLen(1))
			Expect(hub.Mounts()).To(Equal(1))
		})

		It("refuses to mount for an owner without access", func() {
			revoked.Store(true)
			_, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
			Expect(errors.Is(err, domain.ErrScopeRevoked)).To(BeTrue())
			Expect(hub.Mounts()).To(Equal(0))
		})

		It("unmounts by owner on request", func() {
			a, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
			Expect(err).NotTo(HaveOccurred())
			realtime.NewPage(hub, "tasks", "m-1", a)
			b, err := realtime.Mount(ctx, hub, taskSource(backend, "m-2", scope))
			Expect(err).NotTo(HaveOccurred())
			defer b.Unmount()

			Expect(hub.UnmountOwner("m-1")).To(Equal(2))
			Expect(a.Mounted()).To(BeFalse())
			Expect(b.Mounted()).To(BeTrue())
			Expect(hub.UnmountOwner("m-1")).To(Equal(0))
			Expect(hub.UnmountOwner("")).To(Equal(0))
		})
	})
})
