package dashboard_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository/memory"
	"github.com/fastygo/teamspace/usecase/dashboard"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Compute", func() {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	in := dashboard.Input{
		Members: []domain.Member{{ID: "a", Name: "Ada"}, {ID: "b", Name: "Bob"}},
		Projects: []domain.Project{
			{ID: "p1", Name: "Launch", Status: domain.ProjectActive},
			{ID: "p2", Name: "Archive", Status: domain.ProjectCompleted},
		},
		Tasks: []domain.Task{
			{ID: "1", Status: domain.TaskDone, AssignedTo: ptr("a"), ProjectID: ptr("p1"), UpdatedAt: now.Add(-time.Hour)},
			{ID: "2", Status: domain.TaskInProgress, AssignedTo: ptr("a"), ProjectID: ptr("p1"), DueDate: ptr(now.Add(48 * time.Hour))},
			{ID: "3", Status: domain.TaskTodo, AssignedTo: ptr("b"), ProjectID: ptr("p1"), DueDate: ptr(now.Add(10 * 24 * time.Hour))},
			{ID: "4", Status: domain.TaskDone, UpdatedAt: now.AddDate(0, 0, -45)},
		},
		Meetings: []domain.Meeting{
			{ID: "m-past", StartTime: now.Add(-time.Hour)},
			{ID: "m-late", StartTime: now.Add(48 * time.Hour)},
			{ID: "m-soon", StartTime: now.Add(time.Hour)},
		},
	}

	It("counts totals and the rounded completion rate", func() {
		s := dashboard.Compute(in, "a", now)
		Expect(s.TotalTasks).To(Equal(4))
		Expect(s.CompletedTasks).To(Equal(2))
		Expect(s.CompletionRate).To(Equal(50))
		Expect(s.ActiveProjects).To(Equal(1))
		Expect(s.TotalMembers).To(Equal(2))
	})

	It("splits tasks by status in board order", func() {
		s := dashboard.Compute(in, "a", now)
		Expect(s.Status).To(Equal([]dashboard.Slice{
			{Name: "To Do", Value: 1},
			{Name: "In Progress", Value: 1},
			{Name: "Done", Value: 2},
		}))
	})

	It("measures workload and project progress", func() {
		s := dashboard.Compute(in, "a", now)
		Expect(s.Workload).To(ConsistOf(
			dashboard.Load{MemberID: "a", Name: "Ada", Tasks: 2},
			dashboard.Load{MemberID: "b", Name: "Bob", Tasks: 1},
		))
		Expect(s.ProjectProgress).To(ContainElement(dashboard.ProjectProgress{ProjectID: "p1", Name: "Launch", Progress: 33}))
		Expect(s.ProjectProgress).To(ContainElement(dashboard.ProjectProgress{ProjectID: "p2", Name: "Archive", Progress: 0}))
	})

	It("lists deadlines within a week and the viewer's open tasks", func() {
		s := dashboard.Compute(in, "a", now)
		Expect(s.Deadlines).To(HaveLen(1))
		Expect(s.Deadlines[0].ID).To(Equal("2"))
		Expect(s.MyOpenTasks).To(HaveLen(1))
		Expect(s.MyOpenTasks[0].ID).To(Equal("2"))
	})

	It("orders upcoming meetings and skips past ones", func() {
		s := dashboard.Compute(in, "a", now)
		Expect(s.UpcomingMeetings).To(HaveLen(2))
		Expect(s.UpcomingMeetings[0].ID).To(Equal("m-soon"))
		Expect(s.UpcomingMeetings[1].ID).To(Equal("m-late"))
	})

	It("builds a thirty day completion trend ending today", func() {
		trend := dashboard.Trend(in.Tasks, now)
		Expect(trend).To(HaveLen(30))
		Expect(trend[29]).To(Equal(dashboard.Point{Date: "2024-05-15", Completed: 1}))
		Expect(trend[0].Date).To(Equal("2024-04-16"))

		total := 0
		for _, p := range trend {
			total += p.Completed
		}
		Expect(total).To(Equal(1))
	})

	It("returns empty lists for an empty workspace", func() {
		s := dashboard.Compute(dashboard.Input{}, "a", now)
		Expect(s.CompletionRate).To(BeZero())
		Expect(s.Deadlines).To(BeEmpty())
		Expect(s.RecentDocuments).To(BeEmpty())
		Expect(s.Activity).To(BeEmpty())
	})
})

var _ = Describe("UseCase", func() {
	It("loads the stats of the actor's workspace only", func() {
		ctx := context.Background()
		backend := memory.New()
		uc := dashboard.New(backend.Store, realtime.NewHub(backend.Feed, realtime.HubConfig{}, nil), nil)

		_, err := backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "mine"})
		Expect(err).NotTo(HaveOccurred())
		_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-2", Title: "theirs"})
		Expect(err).NotTo(HaveOccurred())

		stats, err := uc.Load(ctx, domain.Actor{MemberID: "m", WorkspaceID: "ws-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalTasks).To(Equal(1))

		_, err = uc.Load(ctx, domain.Actor{MemberID: "m"})
		Expect(err).To(MatchError(domain.ErrNoWorkspace))
	})
})
