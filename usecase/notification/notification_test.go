package notification_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository/memory"
	"github.com/fastygo/teamspace/usecase/notification"
)

// tickingClock advances one second per reading so insert order is visible
// in created_at.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

var _ = Describe("UseCase", func() {
	var (
		ctx     context.Context
		backend *memory.Backend
		uc      *notification.UseCase
		ada     domain.Actor
		bob     domain.Actor
	)

	join := func(email, workspaceID string) domain.Actor {
		ws := workspaceID
		m, err := backend.Store.Members.Insert(ctx, &domain.Member{Email: email, Name: email, WorkspaceID: &ws, Role: domain.RoleMember})
		Expect(err).NotTo(HaveOccurred())
		return domain.ActorFor(m)
	}

	BeforeEach(func() {
		ctx = context.Background()
		backend = memory.New(memory.WithClock(tickingClock()))
		hub := realtime.NewHub(backend.Feed, realtime.HubConfig{}, nil)
		uc = notification.New(backend.Store, hub, nil)
		ada = join("ada@example.com", "ws-1")
		bob = join("bob@example.com", "ws-1")
	})

	Describe("Notify", func() {
		It("skips blanks, duplicates and excluded members", func() {
			err := uc.Notify(ctx, "ws-1", []string{bob.MemberID, "", bob.MemberID, ada.MemberID}, domain.NotifyTaskAssigned,
				map[string]string{"title": "Ship"}, ada.MemberID)
			Expect(err).NotTo(HaveOccurred())

			items, err := uc.List(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Summary()).To(Equal("Task assigned: Ship"))
			Expect(items[0].Read).To(BeFalse())

			mine, err := uc.List(ctx, ada)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(BeEmpty())
		})

		It("rejects an unknown type", func() {
			err := uc.Notify(ctx, "ws-1", []string{bob.MemberID}, "party", nil)
			Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())
		})

		It("fans out to the whole team except the sender", func() {
			carol := join("carol@example.com", "ws-1")
			outsider := join("dan@example.com", "ws-2")

			Expect(uc.NotifyTeam(ctx, "ws-1", domain.NotifyMemberAdded, map[string]string{"name": "Carol"}, carol.MemberID)).To(Succeed())

			for _, a := range []domain.Actor{ada, bob} {
				items, err := uc.List(ctx, a)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
			}
			for _, a := range []domain.Actor{carol, outsider} {
				items, err := uc.List(ctx, a)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
			}
		})
	})

	It("lists newest first", func() {
		Expect(uc.Notify(ctx, "ws-1", []string{bob.MemberID}, domain.NotifyTaskAssigned, map[string]string{"title": "first"})).To(Succeed())
		Expect(uc.Notify(ctx, "ws-1", []string{bob.MemberID}, domain.NotifyTaskAssigned, map[string]string{"title": "second"})).To(Succeed())

		items, err := uc.List(ctx, bob)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(2))
		Expect(items[0].Data["title"]).To(Equal("second"))
	})

	Describe("reading", func() {
		BeforeEach(func() {
			Expect(uc.Notify(ctx, "ws-1", []string{bob.MemberID}, domain.NotifyTaskAssigned, map[string]string{"title": "a"})).To(Succeed())
			Expect(uc.Notify(ctx, "ws-1", []string{bob.MemberID}, domain.NotifyProjectAssigned, map[string]string{"name": "b"})).To(Succeed())
		})

		It("marks one notification read for its recipient only", func() {
			items, err := uc.List(ctx, bob)
			Expect(err).NotTo(HaveOccurred())

			_, err = uc.MarkRead(ctx, ada, items[0].ID)
			Expect(err).To(MatchError(domain.ErrNotFound))

			read, err := uc.MarkRead(ctx, bob, items[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.Read).To(BeTrue())

			items, err = uc.List(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(notification.Summarize(items)).To(Equal(notification.Summary{Unread: 1, Total: 2}))
		})

		It("marks everything read and reports how many changed", func() {
			n, err := uc.MarkAllRead(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			n, err = uc.MarkAllRead(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			items, err := uc.List(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(notification.UnreadCount(items)).To(BeZero())
		})

		It("keeps the screen's unread count current", func() {
			screen, err := uc.Open(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(screen.Unmount)

			_, derived := screen.Render()
			Expect(derived.(notification.Summary).Unread).To(Equal(2))

			_, err = uc.MarkAllRead(ctx, bob)
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int {
				_, derived := screen.Render()
				return derived.(notification.Summary).Unread
			}).Should(BeZero())
		})
	})
})
