package realtime_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/repository/memory"
)

var _ = Describe("Dispatcher", func() {
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

	Describe("Create", func() {
		It("returns the stored row with defaults and appends it to the view", func() {
			lv, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
			Expect(err).NotTo(HaveOccurred())
			defer lv.Unmount()

			d := realtime.NewDispatcher(backend.Store.Tasks, nil, nil)
			stored, err := d.Create(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "Write docs"}, lv)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).NotTo(BeEmpty())
			Expect(stored.Status).To(Equal(domain.TaskTodo))

			got, ok := lv.View().Get(stored.ID)
			Expect(ok).To(BeTrue())
			Expect(got.Title).To(Equal("Write docs"))
		})
	})

	Describe("Update", func() {
		var (
			d      *realtime.Dispatcher[domain.Task]
			stored *domain.Task
			lv     *realtime.LiveView[domain.Task]
		)

		BeforeEach(func() {
			var err error
			d = realtime.NewDispatcher(backend.Store.Tasks, nil, nil)
			stored, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "Ship", Status: domain.TaskTodo})
			Expect(err).NotTo(HaveOccurred())
			lv, err = realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			lv.Unmount()
		})

		It("patches the view before the store answers", func() {
			seen := make(chan domain.TaskStatus, 1)
			slow := &failingTable[domain.Task]{Table: backend.Store.Tasks}
			slow.updateFn = func(ctx context.Context, id string, fields domain.Fields) (*domain.Task, error) {
				cached, _ := lv.View().Get(id)
				seen <- cached.Status
				return backend.Store.Tasks.Update(ctx, id, fields)
			}
			d = realtime.NewDispatcher[domain.Task](slow, nil, nil)

			_, err := d.Update(ctx, stored.ID, domain.Fields{"status": "done"}, lv, func(t *domain.Task) {
				t.Status = domain.TaskDone
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(<-seen).To(Equal(domain.TaskDone))
		})

		It("lets the store win when the write fails", func() {
			failing := &failingTable[domain.Task]{Table: backend.Store.Tasks}
			failing.updateFn = func(context.Context, string, domain.Fields) (*domain.Task, error) {
				return nil, errors.New("permission denied")
			}
			d = realtime.NewDispatcher[domain.Task](failing, nil, nil)

			_, err := d.Update(ctx, stored.ID, domain.Fields{"status": "done"}, lv, func(t *domain.Task) {
				t.Status = domain.TaskDone
			})
			Expect(domain.UserMessage(err)).To(Equal("permission denied"))

			cached, _ := lv.View().Get(stored.ID)
			Expect(cached.Status).To(Equal(domain.TaskTodo))
		})

		It("re-fetches after the write when there is no patch", func() {
			_, err := d.Update(ctx, stored.ID, domain.Fields{"title": "Ship it"}, lv, nil)
			Expect(err).NotTo(HaveOccurred())
			cached, _ := lv.View().Get(stored.ID)
			Expect(cached.Title).To(Equal("Ship it"))
		})

		It("rejects columns that cannot be updated", func() {
			_, err := d.Update(ctx, stored.ID, domain.Fields{"workspace_id": "ws-2"}, nil, nil)
			Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())
		})
	})

	Describe("DeleteWith", func() {
		var (
			d     *realtime.Dispatcher[domain.Document]
			doc   *domain.Document
			path  string
			entry *ledger.Entry
		)

		BeforeEach(func() {
			entry = nil
			path = "documents/ws-1/m-1/1_plan.pdf"
			Expect(backend.Blobs.Upload(ctx, path, strings.NewReader("pdf"), "application/pdf")).To(Succeed())

			var err error
			doc, err = backend.Store.Documents.Insert(ctx, &domain.Document{
				WorkspaceID: "ws-1", Name: "plan.pdf", FileURL: path, UploadedBy: "m-1",
			})
			Expect(err).NotTo(HaveOccurred())

			recorder := &mockLedger{recordFn: func(e ledger.Entry) error {
				entry = &e
				return nil
			}}
			d = realtime.NewDispatcher(backend.Store.Documents, recorder, nil)
		})

		removeFile := func(remove func(ctx context.Context, paths ...string) error) realtime.SideEffect {
			return realtime.SideEffect{
				Name:  "remove file",
				Paths: []string{path},
				Run:   func(ctx context.Context) error { return remove(ctx, path) },
			}
		}

		It("removes storage first and then the row", func() {
			Expect(d.DeleteWith(ctx, *doc, nil, removeFile(backend.Blobs.Remove))).To(Succeed())

			Expect(backend.Blobs.Has(path)).To(BeFalse())
			_, err := backend.Store.Documents.Get(ctx, doc.ID)
			Expect(errors.Is(err, domain.ErrDocumentNotFound)).To(BeTrue())
			Expect(entry).To(BeNil())
		})

		It("keeps the row when storage removal fails", func() {
			failing := func(context.Context, ...string) error { return errors.New("storage offline") }

			err := d.DeleteWith(ctx, *doc, nil, removeFile(failing))
			Expect(err).To(MatchError("storage offline"))

			still, err := backend.Store.Documents.Get(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(still.FileURL).To(Equal(path))
			Expect(entry).To(BeNil())
		})

		It("records the orphan when the row delete fails after storage went", func() {
			failing := &failingTable[domain.Document]{Table: backend.Store.Documents}
			failing.deleteFn = func(context.Context, string) error { return errors.New("row locked") }
			recorder := &mockLedger{recordFn: func(e ledger.Entry) error {
				entry = &e
				return nil
			}}
			d = realtime.NewDispatcher[domain.Document](failing, recorder, nil)

			err := d.DeleteWith(ctx, *doc, nil, removeFile(backend.Blobs.Remove))
			Expect(err).To(MatchError("row locked"))
			Expect(backend.Blobs.Has(path)).To(BeFalse())

			Expect(entry).NotTo(BeNil())
			Expect(entry.Kind).To(Equal(ledger.KindRow))
			Expect(entry.RowID).To(Equal(doc.ID))
			Expect(entry.WorkspaceID).To(Equal("ws-1"))
			Expect(entry.Path).To(Equal(path))
		})
	})

	It("shows the last accepted write in every view after both re-fetch", func() {
		stored, err := backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "Shared", Priority: domain.PriorityMedium})
		Expect(err).NotTo(HaveOccurred())

		first, err := realtime.Mount(ctx, hub, taskSource(backend, "m-1", scope))
		Expect(err).NotTo(HaveOccurred())
		defer first.Unmount()
		second, err := realtime.Mount(ctx, hub, taskSource(backend, "m-2", scope))
		Expect(err).NotTo(HaveOccurred())
		defer second.Unmount()

		d := realtime.NewDispatcher(backend.Store.Tasks, nil, nil)
		_, err = d.Update(ctx, stored.ID, domain.Fields{"priority": "high"}, first, func(t *domain.Task) { t.Priority = domain.PriorityHigh })
		Expect(err).NotTo(HaveOccurred())
		_, err = d.Update(ctx, stored.ID, domain.Fields{"priority": "low"}, second, func(t *domain.Task) { t.Priority = domain.PriorityLow })
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Refresh(ctx)).To(Succeed())
		Expect(second.Refresh(ctx)).To(Succeed())

		priority := func(lv *realtime.LiveView[domain.Task]) func() domain.Priority {
			return func() domain.Priority {
				t, _ := lv.View().Get(stored.ID)
				return t.Priority
			}
		}
		Eventually(priority(first)).Should(Equal(domain.PriorityLow))
		Eventually(priority(second)).Should(Equal(domain.PriorityLow))

		final, err := backend.Store.Tasks.Get(ctx, stored.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(final.Priority).To(Equal(domain.PriorityLow))
	})

	It("runs a guarded action once at a time", func() {
		guard := realtime.NewGuard()
		inside := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- guard.Do("task:create", func() error {
				close(inside)
				<-release
				return nil
			})
		}()
		Eventually(inside).Should(BeClosed())

		err := guard.Do("task:create", func() error { return nil })
		Expect(errors.Is(err, domain.ErrInFlight)).To(BeTrue())
		Expect(guard.Do("task:delete", func() error { return nil })).To(Succeed())

		close(release)
		Eventually(done).Should(Receive(BeNil()))
		Expect(guard.Busy("task:create")).To(BeFalse())
	})
})

var _ repository.Table[domain.Task] = (*failingTable[domain.Task])(nil)
