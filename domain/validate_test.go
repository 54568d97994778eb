package domain_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/domain"
)

var _ = Describe("MeetingInput", func() {
	actor := domain.Actor{MemberID: "m-1", WorkspaceID: "ws-1", Role: domain.RoleMember}

	It("requires title, start and end", func() {
		_, err := domain.MeetingInput{Title: "Sync", StartTime: "2024-05-01T10:00"}.Build(actor)
		Expect(domain.UserMessage(err)).To(Equal("Title, start time, and end time are required."))
	})

	It("rejects unparseable times", func() {
		_, err := domain.MeetingInput{Title: "Sync", StartTime: "tomorrow", EndTime: "2024-05-01T11:00"}.Build(actor)
		Expect(domain.UserMessage(err)).To(Equal("Invalid date/time format."))
	})

	It("rejects an end equal to the start", func() {
		_, err := domain.MeetingInput{
			Title:     "Sync",
			StartTime: "2024-05-01T10:00:00Z",
			EndTime:   "2024-05-01T10:00:00Z",
		}.Build(actor)
		Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())
		Expect(domain.UserMessage(err)).To(Equal("End time must be after start time."))
	})

	It("accepts an end one millisecond after the start", func() {
		m, err := domain.MeetingInput{
			Title:     " Sync ",
			StartTime: "2024-05-01T10:00:00.000Z",
			EndTime:   "2024-05-01T10:00:00.001Z",
		}.Build(actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Title).To(Equal("Sync"))
		Expect(m.EndTime.Sub(m.StartTime)).To(Equal(time.Millisecond))
		Expect(m.WorkspaceID).To(Equal("ws-1"))
	})

	It("stores blank optional fields as null", func() {
		m, err := domain.MeetingInput{
			Title:     "Sync",
			StartTime: "2024-05-01T10:00",
			EndTime:   "2024-05-01T11:00",
			Location:  "   ",
		}.Build(actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Location).To(BeNil())
		Expect(m.Description).To(BeNil())
		Expect(m.MeetingLink).To(BeNil())
	})
})

var _ = Describe("TaskInput", func() {
	actor := domain.Actor{MemberID: "m-1", WorkspaceID: "ws-1"}

	It("requires a title", func() {
		_, err := domain.TaskInput{Title: "  "}.Build(actor)
		Expect(domain.UserMessage(err)).To(Equal("Title is required."))
	})

	It("rejects values outside the enumerations", func() {
		_, err := domain.TaskInput{Title: "Ship", Status: "blocked"}.Build(actor)
		Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())

		_, err = domain.TaskInput{Title: "Ship", Priority: "critical"}.Build(actor)
		Expect(domain.IsDomainError(err, domain.ErrCodeInvalid)).To(BeTrue())
	})

	It("sends blank optional fields as null, never as empty strings", func() {
		fields, err := domain.TaskInput{Title: "Ship", Description: "", ProjectID: " ", AssignedTo: ""}.Changes()
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(HaveKeyWithValue("description", BeNil()))
		Expect(fields).To(HaveKeyWithValue("project_id", BeNil()))
		Expect(fields).To(HaveKeyWithValue("assigned_to", BeNil()))
		Expect(fields).To(HaveKeyWithValue("due_date", BeNil()))
		Expect(fields).NotTo(HaveKey("status"))
	})

	It("parses a plain due date", func() {
		task, err := domain.TaskInput{Title: "Ship", DueDate: "2024-06-30"}.Build(actor)
		Expect(err).NotTo(HaveOccurred())
		Expect(task.DueDate).NotTo(BeNil())
		Expect(task.DueDate.Format("2006-01-02")).To(Equal("2024-06-30"))
	})
})

var _ = Describe("ProjectInput", func() {
	It("starts active and drops duplicate members", func() {
		p, err := domain.ProjectInput{
			Name:            "Launch",
			Status:          "completed",
			AssignedMembers: []string{"a", "", "a", "b"},
		}.Build(domain.Actor{MemberID: "m-1", WorkspaceID: "ws-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Status).To(Equal(domain.ProjectActive))
		Expect(p.AssignedMembers).To(Equal([]string{"a", "b"}))
	})

	It("requires a name", func() {
		_, err := domain.ProjectInput{}.Build(domain.Actor{})
		Expect(domain.UserMessage(err)).To(Equal("Project name is required."))
	})
})

var _ = Describe("Actor", func() {
	It("derives scopes from explicit context", func() {
		ws := "ws-9"
		actor := domain.ActorFor(&domain.Member{ID: "m-1", WorkspaceID: &ws, Role: domain.RoleAdmin})
		Expect(actor.IsAdmin()).To(BeTrue())
		Expect(actor.WorkspaceScope()).To(Equal(domain.Scope{Column: domain.ColumnWorkspaceID, Value: "ws-9"}))
		Expect(actor.RecipientScope().Value).To(Equal("m-1"))
	})

	It("keeps onboarding members out of workspace actions", func() {
		actor := domain.ActorFor(&domain.Member{ID: "m-1"})
		Expect(actor.RequireWorkspace()).To(MatchError(domain.ErrNoWorkspace))
		Expect(actor.RequireAdmin()).To(MatchError(domain.ErrNoWorkspace))
		Expect(domain.Actor{}.RequireWorkspace()).To(MatchError(domain.ErrUnauthorized))
	})
})

var _ = Describe("UserMessage", func() {
	It("returns the message of a domain error", func() {
		Expect(domain.UserMessage(domain.WrapError(domain.ErrCodeInternal, "AI error", errors.New("boom")))).To(Equal("AI error"))
	})

	It("falls back to the error text", func() {
		Expect(domain.UserMessage(fmt.Errorf("connection refused"))).To(Equal("connection refused"))
	})

	It("explains timeouts", func() {
		Expect(domain.UserMessage(context.DeadlineExceeded)).To(ContainSubstring("timed out"))
	})

	It("is empty without an error", func() {
		Expect(domain.UserMessage(nil)).To(BeEmpty())
	})
})

var _ = Describe("Documents and workspaces", func() {
	It("sanitizes storage paths", func() {
		at := time.UnixMilli(1700000000123)
		Expect(domain.StoragePath("ws", "m", "Q3 plan (final).pdf", at)).
			To(Equal("documents/ws/m/1700000000123_Q3_plan__final_.pdf"))
	})

	It("issues six character upper-case join codes", func() {
		code := domain.NewJoinCode()
		Expect(code).To(HaveLen(domain.JoinCodeLength))
		Expect(code).To(MatchRegexp(`^[0-9A-F]{6}$`))
		Expect(domain.NormalizeJoinCode(" ab12cd ")).To(Equal("AB12CD"))
	})

	It("renders priority badges in upper case", func() {
		Expect(domain.PriorityHigh.Badge()).To(Equal("HIGH"))
		Expect(domain.TaskTodo.Label()).To(Equal("To Do"))
	})
})
