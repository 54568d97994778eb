package team_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/repository/memory"
	"github.com/fastygo/teamspace/usecase"
	"github.com/fastygo/teamspace/usecase/dashboard"
	"github.com/fastygo/teamspace/usecase/notification"
	"github.com/fastygo/teamspace/usecase/task"
	"github.com/fastygo/teamspace/usecase/team"
)

// slowMembers delays every select the way a remote store does.
type slowMembers struct {
	repository.Table[domain.Member]
	delay time.Duration
}

func (s slowMembers) Select(ctx context.Context, q repository.Query) ([]domain.Member, error) {
	time.Sleep(s.delay)
	return s.Table.Select(ctx, q)
}

var _ = Describe("UseCase", func() {
	var (
		ctx           context.Context
		backend       *memory.Backend
		hub           *realtime.Hub
		notifications *notification.UseCase
		uc            *team.UseCase
	)

	newMember := func(email, name string) domain.Actor {
		m, err := backend.Store.Members.Insert(ctx, &domain.Member{Email: email, Name: name})
		Expect(err).NotTo(HaveOccurred())
		return domain.ActorFor(m)
	}

	inbox := func(memberID string) []domain.Notification {
		items, err := backend.Store.Notifications.Select(ctx, repository.ScopedQuery(domain.Scope{Column: domain.ColumnRecipientID, Value: memberID}))
		Expect(err).NotTo(HaveOccurred())
		return items
	}

	BeforeEach(func() {
		ctx = context.Background()
		backend = memory.New()
		hub = realtime.NewHub(backend.Feed, realtime.HubConfig{Admit: usecase.Membership(backend.Store.Members)}, nil)
		notifications = notification.New(backend.Store, hub, nil)
		uc = team.New(backend.Store, hub, notifications, usecase.NewActivityLog(backend.Store.Activity, nil), nil)
	})

	Describe("workspace setup", func() {
		It("makes the creator admin, setting workspace and role together", func() {
			owner := newMember("ada@example.com", "Ada")

			ws, member, err := uc.CreateWorkspace(ctx, owner, "Acme", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(ws.JoinCode).To(HaveLen(domain.JoinCodeLength))
			Expect(ws.Description).To(BeNil())
			Expect(domain.Deref(member.WorkspaceID)).To(Equal(ws.ID))
			Expect(member.Role).To(Equal(domain.RoleAdmin))
		})

		It("joins by code as a member and tells the team", func() {
			owner := newMember("ada@example.com", "Ada")
			ws, member, err := uc.CreateWorkspace(ctx, owner, "Acme", "")
			Expect(err).NotTo(HaveOccurred())
			owner = domain.ActorFor(member)

			joiner := newMember("bob@example.com", "Bob")
			joinedWS, joined, err := uc.JoinWorkspace(ctx, joiner, " "+ws.JoinCode+" ")
			Expect(err).NotTo(HaveOccurred())
			Expect(joinedWS.ID).To(Equal(ws.ID))
			Expect(joined.Role).To(Equal(domain.RoleMember))

			Expect(inbox(owner.MemberID)).To(ContainElement(HaveField("Type", domain.NotifyMemberAdded)))
			Expect(inbox(joiner.MemberID)).To(BeEmpty())
		})

		It("rejects an unknown join code", func() {
			joiner := newMember("bob@example.com", "Bob")
			_, _, err := uc.JoinWorkspace(ctx, joiner, "NOPE00")
			Expect(err).To(MatchError(domain.ErrInvalidJoinCode))
		})

		It("refuses a second workspace", func() {
			owner := newMember("ada@example.com", "Ada")
			_, member, err := uc.CreateWorkspace(ctx, owner, "Acme", "")
			Expect(err).NotTo(HaveOccurred())

			_, _, err = uc.CreateWorkspace(ctx, domain.ActorFor(member), "Other", "")
			Expect(err).To(MatchError(team.ErrAlreadyInWorkspace))
		})
	})

	Describe("roster changes", func() {
		var admin, regular domain.Actor

		BeforeEach(func() {
			owner := newMember("ada@example.com", "Ada")
			ws, member, err := uc.CreateWorkspace(ctx, owner, "Acme", "")
			Expect(err).NotTo(HaveOccurred())
			admin = domain.ActorFor(member)

			_, joined, err := uc.JoinWorkspace(ctx, newMember("bob@example.com", "Bob"), ws.JoinCode)
			Expect(err).NotTo(HaveOccurred())
			regular = domain.ActorFor(joined)
		})

		It("lets only admins toggle roles", func() {
			_, err := uc.ToggleRole(ctx, regular, admin.MemberID)
			Expect(err).To(MatchError(domain.ErrAdminOnly))

			promoted, err := uc.ToggleRole(ctx, admin, regular.MemberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted.Role).To(Equal(domain.RoleAdmin))
			Expect(inbox(regular.MemberID)).To(ContainElement(HaveField("Type", domain.NotifyMemberUpdated)))
		})

		It("keeps at least one admin", func() {
			_, err := uc.ToggleRole(ctx, admin, admin.MemberID)
			Expect(err).To(MatchError(team.ErrLastAdmin))
		})

		It("removes a member, clearing workspace and role together", func() {
			Expect(uc.RemoveMember(ctx, admin, regular.MemberID)).To(Succeed())

			removed, err := backend.Store.Members.Get(ctx, regular.MemberID)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed.WorkspaceID).To(BeNil())
			Expect(removed.Role).To(BeEmpty())

			members, err := uc.Members(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(1))
		})

		It("does not let admins remove themselves", func() {
			Expect(uc.RemoveMember(ctx, admin, admin.MemberID)).To(MatchError(team.ErrRemoveSelf))
		})

		It("renames the workspace for admins only", func() {
			_, err := uc.RenameWorkspace(ctx, regular, "Nope", "")
			Expect(err).To(MatchError(domain.ErrAdminOnly))

			ws, err := uc.RenameWorkspace(ctx, admin, "Acme Inc", "Makers")
			Expect(err).NotTo(HaveOccurred())
			Expect(ws.Name).To(Equal("Acme Inc"))
			Expect(domain.Deref(ws.Description)).To(Equal("Makers"))
		})

		It("summarizes the roster on the team screen", func() {
			screen, err := uc.Open(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(screen.Unmount)

			data, derived := screen.Render()
			Expect(data).To(HaveLen(2))
			roster := derived.(team.Roster)
			Expect(roster.Members).To(Equal(2))
			Expect(roster.Admins).To(Equal(1))
			Expect(roster.IsAdmin).To(BeTrue())
			Expect(roster.Workspace).NotTo(BeNil())
		})

		Describe("live screens of a removed member", func() {
			var (
				tasks *task.UseCase
				names func(*usecase.Screen) []string
			)

			BeforeEach(func() {
				tasks = task.New(backend.Store, hub, notifications, nil, nil)
				names = func(screen *usecase.Screen) []string {
					data, _ := screen.Render()
					var out []string
					for _, t := range data.([]domain.Task) {
						out = append(out, t.Title)
					}
					return out
				}
			})

			It("closes them when the member is removed", func() {
				screen, err := tasks.Open(ctx, regular, task.Filter{})
				Expect(err).NotTo(HaveOccurred())
				DeferCleanup(screen.Unmount)

				Expect(uc.RemoveMember(ctx, admin, regular.MemberID)).To(Succeed())
				Eventually(screen.Done()).Should(BeClosed())

				_, err = tasks.CreateTask(ctx, admin, domain.TaskInput{Title: "Secret roadmap"})
				Expect(err).NotTo(HaveOccurred())
				Consistently(func() []string { return names(screen) }, "50ms").ShouldNot(ContainElement("Secret roadmap"))
			})

			It("keeps new rows out of screens mounted on another instance", func() {
				elsewhere := realtime.NewHub(backend.Feed, realtime.HubConfig{Admit: usecase.Membership(backend.Store.Members)}, nil)
				remote := task.New(backend.Store, elsewhere, notifications, nil, nil)
				screen, err := remote.Open(ctx, regular, task.Filter{})
				Expect(err).NotTo(HaveOccurred())
				DeferCleanup(screen.Unmount)

				Expect(uc.RemoveMember(ctx, admin, regular.MemberID)).To(Succeed())
				Expect(elsewhere.Mounts()).NotTo(BeZero())

				_, err = tasks.CreateTask(ctx, admin, domain.TaskInput{Title: "Secret roadmap"})
				Expect(err).NotTo(HaveOccurred())
				Eventually(screen.Done()).Should(BeClosed())
				Expect(names(screen)).NotTo(ContainElement("Secret roadmap"))
				Eventually(elsewhere.Mounts).Should(BeZero())
			})

			It("refuses to open a screen for a stale workspace context", func() {
				Expect(uc.RemoveMember(ctx, admin, regular.MemberID)).To(Succeed())
				_, err := tasks.Open(ctx, regular, task.Filter{})
				Expect(err).To(MatchError(domain.ErrScopeRevoked))
			})
		})

		It("keeps the roster ordered by name beside a mounted dashboard", func() {
			store := backend.Store
			store.Members = slowMembers{Table: backend.Store.Members, delay: 20 * time.Millisecond}
			roster := team.New(store, hub, notifications, nil, nil)
			board := dashboard.New(store, hub, nil)

			screen, err := roster.Open(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(screen.Unmount)
			stats, err := board.Open(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(stats.Unmount)

			for _, name := range []string{"Zed", "Aaron"} {
				_, err := backend.Store.Members.Insert(ctx, &domain.Member{
					Email:       name + "@example.com",
					Name:        name,
					WorkspaceID: &admin.WorkspaceID,
					Role:        domain.RoleMember,
				})
				Expect(err).NotTo(HaveOccurred())
			}

			names := func() []string {
				data, _ := screen.Render()
				var out []string
				for _, m := range data.([]domain.Member) {
					out = append(out, m.Name)
				}
				return out
			}
			Eventually(names).Should(Equal([]string{"Aaron", "Ada", "Bob", "Zed"}))
			Consistently(names, "100ms").Should(Equal([]string{"Aaron", "Ada", "Bob", "Zed"}))
		})
	})
})
