package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/teamspace/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of a decoded request. Domain rules that
// produce user-facing wording stay in the domain package.
func Validate(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return domain.Invalid(fmt.Sprintf("%s is required", field))
	case "email":
		return domain.Invalid("Please enter a valid email address.")
	case "min":
		return domain.Invalid(fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
	case "max":
		return domain.Invalid(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "oneof":
		return domain.Invalid(fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
	}
	return domain.Invalid(fmt.Sprintf("%s is invalid", field))
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type IDTokenRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type WorkspaceRequest struct {
	Name        string `json:"name" validate:"max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type JoinRequest struct {
	Code string `json:"code" validate:"max=32"`
}

type ProfileUpdateRequest struct {
	Name       string `json:"name" validate:"max=120"`
	Title      string `json:"title" validate:"max=120"`
	Department string `json:"department" validate:"max=120"`
	Phone      string `json:"phone" validate:"max=40"`
	Location   string `json:"location" validate:"max=120"`
}

type TaskRequest struct {
	Title       string `json:"title" validate:"max=300"`
	Description string `json:"description" validate:"max=10000"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string `json:"priority" validate:"omitempty,oneof=emergency urgent high medium low"`
	DueDate     string `json:"due_date"`
	ProjectID   string `json:"project_id" validate:"omitempty,uuid"`
	AssignedTo  string `json:"assigned_to" validate:"omitempty,uuid"`
}

func (r TaskRequest) Input() domain.TaskInput {
	return domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		ProjectID:   r.ProjectID,
		AssignedTo:  r.AssignedTo,
	}
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type PriorityRequest struct {
	Priority string `json:"priority" validate:"required"`
}

type ProjectRequest struct {
	Name            string   `json:"name" validate:"max=300"`
	Description     string   `json:"description" validate:"max=10000"`
	Status          string   `json:"status" validate:"omitempty,oneof=active completed"`
	Priority        string   `json:"priority" validate:"omitempty,oneof=emergency urgent high medium low"`
	DueDate         string   `json:"due_date"`
	AssignedMembers []string `json:"assigned_members" validate:"dive,omitempty,uuid"`
}

func (r ProjectRequest) Input() domain.ProjectInput {
	return domain.ProjectInput{
		Name:            r.Name,
		Description:     r.Description,
		Status:          r.Status,
		Priority:        r.Priority,
		DueDate:         r.DueDate,
		AssignedMembers: r.AssignedMembers,
	}
}

type MeetingRequest struct {
	Title       string `json:"title" validate:"max=300"`
	Description string `json:"description" validate:"max=10000"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location" validate:"max=300"`
	MeetingLink string `json:"meeting_link" validate:"omitempty,url"`
}

func (r MeetingRequest) Input() domain.MeetingInput {
	return domain.MeetingInput{
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
		MeetingLink: r.MeetingLink,
	}
}

type DocumentEditRequest struct {
	Description string `json:"description" validate:"max=10000"`
	Category    string `json:"category" validate:"omitempty,oneof=design development documentation media other"`
}

type CommentRequest struct {
	Text     string   `json:"text" validate:"max=5000"`
	Mentions []string `json:"mentions" validate:"dive,uuid"`
}

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

type ChatRequest struct {
	History          []ChatMessage `json:"history" validate:"dive"`
	Text             string        `json:"text" validate:"max=8000"`
	IncludeWorkspace bool          `json:"include_workspace"`
	DocumentID       string        `json:"document_id" validate:"omitempty,uuid"`
}
