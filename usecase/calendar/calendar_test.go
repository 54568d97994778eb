package calendar_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository/memory"
	"github.com/fastygo/teamspace/usecase"
	"github.com/fastygo/teamspace/usecase/calendar"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Days", func() {
	may := calendar.Month{Year: 2024, Month: time.May}

	It("lays out every day of the month", func() {
		days := calendar.Days(may, nil, nil)
		Expect(days).To(HaveLen(31))
		Expect(days[0].Date).To(Equal("2024-05-01"))
		Expect(days[30].Date).To(Equal("2024-05-31"))
		Expect(days[0].Meetings).NotTo(BeNil())
	})

	It("places meetings and due tasks on their day", func() {
		meetings := []domain.Meeting{{ID: "m", StartTime: time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)}}
		tasks := []domain.Task{
			{ID: "t", DueDate: ptr(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))},
			{ID: "no-due"},
			{ID: "june", DueDate: ptr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))},
		}
		days := calendar.Days(may, meetings, tasks)

		day, ok := calendar.On("2024-05-03", days)
		Expect(ok).To(BeTrue())
		Expect(day.Meetings).To(HaveLen(1))
		Expect(day.Tasks).To(HaveLen(1))
		Expect(day.Tasks[0].ID).To(Equal("t"))

		_, ok = calendar.On("2024-06-01", days)
		Expect(ok).To(BeFalse())
	})

	It("uses the month's time zone for the day boundary", func() {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		Expect(err).NotTo(HaveOccurred())
		m := calendar.Month{Year: 2024, Month: time.May, Location: tokyo}

		late := []domain.Meeting{{ID: "m", StartTime: time.Date(2024, 5, 3, 20, 0, 0, 0, time.UTC)}}
		day, ok := calendar.On("2024-05-04", calendar.Days(m, late, nil))
		Expect(ok).To(BeTrue())
		Expect(day.Meetings).To(HaveLen(1))
	})
})

var _ = Describe("UseCase", func() {
	var (
		ctx     context.Context
		backend *memory.Backend
		uc      *calendar.UseCase
		actor   domain.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = memory.New()
		hub := realtime.NewHub(backend.Feed, realtime.HubConfig{}, nil)
		uc = calendar.New(backend.Store, hub, usecase.NewActivityLog(backend.Store.Activity, nil), nil)
		actor = domain.Actor{MemberID: "member-1", WorkspaceID: "ws-1", Role: domain.RoleMember}
	})

	create := func(title, start, end string) (*domain.Meeting, error) {
		return uc.CreateMeeting(ctx, actor, domain.MeetingInput{Title: title, StartTime: start, EndTime: end})
	}

	It("blocks an invalid meeting before it reaches the store", func() {
		_, err := create("Standup", "2024-05-03T10:00", "2024-05-03T10:00")
		Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())

		events, err := uc.MonthEvents(ctx, actor, calendar.Month{Year: 2024, Month: time.May})
		Expect(err).NotTo(HaveOccurred())
		Expect(events.Meetings).To(BeEmpty())
	})

	It("returns only meetings and due tasks inside the month window", func() {
		_, err := create("First", "2024-05-01T00:00", "2024-05-01T00:30")
		Expect(err).NotTo(HaveOccurred())
		_, err = create("Last", "2024-05-31T23:00", "2024-05-31T23:30")
		Expect(err).NotTo(HaveOccurred())
		_, err = create("June", "2024-06-01T00:00", "2024-06-01T00:30")
		Expect(err).NotTo(HaveOccurred())
		_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "due", DueDate: ptr(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))})
		Expect(err).NotTo(HaveOccurred())
		_, err = backend.Store.Tasks.Insert(ctx, &domain.Task{WorkspaceID: "ws-1", Title: "undated"})
		Expect(err).NotTo(HaveOccurred())

		events, err := uc.MonthEvents(ctx, actor, calendar.Month{Year: 2024, Month: time.May})
		Expect(err).NotTo(HaveOccurred())
		Expect(events.Meetings).To(HaveLen(2))
		Expect(events.Meetings[0].Title).To(Equal("First"))
		Expect(events.Tasks).To(HaveLen(1))
		Expect(events.Tasks[0].Title).To(Equal("due"))
	})

	It("shows a new meeting on the mounted month", func() {
		screen, err := uc.Open(ctx, actor, calendar.Month{Year: 2024, Month: time.May})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(screen.Unmount)

		_, err = create("Review", "2024-05-10T15:00", "2024-05-10T16:00")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() int {
			_, derived := screen.Render()
			day, _ := calendar.On("2024-05-10", derived.([]calendar.Day))
			return len(day.Meetings)
		}).Should(Equal(1))
	})

	It("deletes meetings of the actor's workspace only", func() {
		m, err := create("Review", "2024-05-10T15:00", "2024-05-10T16:00")
		Expect(err).NotTo(HaveOccurred())

		outsider := domain.Actor{MemberID: "member-9", WorkspaceID: "ws-2"}
		Expect(uc.DeleteMeeting(ctx, outsider, m.ID)).To(MatchError(domain.ErrNotFound))

		Expect(uc.DeleteMeeting(ctx, actor, m.ID)).To(Succeed())
		_, err = uc.GetMeeting(ctx, actor, m.ID)
		Expect(err).To(HaveOccurred())
	})
})
