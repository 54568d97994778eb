package realtime_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
)

func task(id string, status domain.TaskStatus) domain.Task {
	return domain.Task{ID: id, WorkspaceID: "ws-1", Title: "task " + id, Status: status, Priority: domain.PriorityMedium}
}

var _ = Describe("View", func() {
	var view *realtime.View[domain.Task]

	BeforeEach(func() {
		view = realtime.NewView[domain.Task]()
	})

	It("starts empty and unloaded", func() {
		Expect(view.Snapshot()).To(BeEmpty())
		Expect(view.Loaded()).To(BeFalse())
	})

	It("gives the same result when the same list is applied twice", func() {
		records := []domain.Task{task("a", domain.TaskTodo), task("b", domain.TaskDone)}
		view.Replace(records)
		first := view.Snapshot()
		view.Replace(records)
		Expect(view.Snapshot()).To(Equal(first))
		Expect(view.Loaded()).To(BeTrue())
	})

	It("does not alias the caller's slice", func() {
		records := []domain.Task{task("a", domain.TaskTodo)}
		view.Replace(records)
		records[0].Title = "changed"
		Expect(view.Snapshot()[0].Title).To(Equal("task a"))
	})

	It("patches one record in place", func() {
		view.Replace([]domain.Task{task("a", domain.TaskTodo), task("b", domain.TaskTodo)})
		ok := view.PatchOne("b", func(t *domain.Task) { t.Status = domain.TaskDone })
		Expect(ok).To(BeTrue())

		b, _ := view.Get("b")
		Expect(b.Status).To(Equal(domain.TaskDone))
		a, _ := view.Get("a")
		Expect(a.Status).To(Equal(domain.TaskTodo))
	})

	It("reports a patch of an unknown record", func() {
		Expect(view.PatchOne("missing", func(*domain.Task) {})).To(BeFalse())
	})

	It("lets the next fetched list overwrite an optimistic patch", func() {
		view.Replace([]domain.Task{task("a", domain.TaskTodo)})
		view.PatchOne("a", func(t *domain.Task) { t.Status = domain.TaskDone })

		view.Replace([]domain.Task{task("a", domain.TaskInProgress)})
		a, _ := view.Get("a")
		Expect(a.Status).To(Equal(domain.TaskInProgress))
	})

	It("appends new records and replaces known ones", func() {
		view.Replace([]domain.Task{task("a", domain.TaskTodo)})
		view.Append(task("b", domain.TaskTodo))
		view.Append(task("a", domain.TaskDone))

		Expect(view.Len()).To(Equal(2))
		a, _ := view.Get("a")
		Expect(a.Status).To(Equal(domain.TaskDone))
	})

	It("inserts created records where the ordering puts them", func() {
		byID := func(a, b domain.Task) bool { return a.ID < b.ID }
		view.Replace([]domain.Task{task("b", domain.TaskTodo), task("d", domain.TaskTodo)})
		view.Insert(task("c", domain.TaskTodo), byID)
		view.Insert(task("a", domain.TaskTodo), byID)
		view.Insert(task("e", domain.TaskTodo), byID)
		view.Insert(task("c", domain.TaskDone), byID)

		var ids []string
		for _, t := range view.Snapshot() {
			ids = append(ids, t.ID)
		}
		Expect(ids).To(Equal([]string{"a", "b", "c", "d", "e"}))
		c, _ := view.Get("c")
		Expect(c.Status).To(Equal(domain.TaskDone))
		Expect(view.Remove("a")).To(BeTrue())
		d, ok := view.Get("d")
		Expect(ok).To(BeTrue())
		Expect(d.ID).To(Equal("d"))
	})

	It("removes records and keeps lookups consistent", func() {
		view.Replace([]domain.Task{task("a", domain.TaskTodo), task("b", domain.TaskTodo), task("c", domain.TaskTodo)})
		Expect(view.Remove("a")).To(BeTrue())
		Expect(view.Remove("a")).To(BeFalse())

		Expect(view.PatchOne("c", func(t *domain.Task) { t.Title = "c2" })).To(BeTrue())
		c, _ := view.Get("c")
		Expect(c.Title).To(Equal("c2"))
		Expect(view.Len()).To(Equal(2))
	})

	It("signals changes without blocking", func() {
		view.Replace(nil)
		view.Replace(nil)
		Eventually(view.Changes()).Should(Receive())
		Consistently(view.Changes(), "20ms").ShouldNot(Receive())
	})
})
