package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/teamspace/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Profile      *apiHandler.ProfileHandler
	Team         *apiHandler.TeamHandler
	Task         *apiHandler.TaskHandler
	Project      *apiHandler.ProjectHandler
	Document     *apiHandler.DocumentHandler
	Calendar     *apiHandler.CalendarHandler
	Notification *apiHandler.NotificationHandler
	Dashboard    *apiHandler.DashboardHandler
	Assistant    *apiHandler.AssistantHandler
	Live         *apiHandler.LiveHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/signup", handlers.Auth.SignUp)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/oauth", handlers.Auth.OAuth)
	r.POST("/api/v1/auth/password/forgot", handlers.Auth.ForgotPassword)
	r.POST("/api/v1/auth/password/reset", handlers.Auth.ResetPassword)
	r.POST("/api/v1/auth/refresh", authMiddleware(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.GET("/api/v1/auth/me", authMiddleware(handlers.Auth.Me))

	// Protected routes
	r.GET("/api/v1/profile", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", authMiddleware(handlers.Profile.UpdateProfile))
	r.POST("/api/v1/profile/avatar", authMiddleware(handlers.Profile.UploadAvatar))

	r.GET("/api/v1/workspace", authMiddleware(handlers.Team.GetWorkspace))
	r.POST("/api/v1/workspace", authMiddleware(handlers.Team.CreateWorkspace))
	r.PUT("/api/v1/workspace", authMiddleware(handlers.Team.RenameWorkspace))
	r.POST("/api/v1/workspace/join", authMiddleware(handlers.Team.JoinWorkspace))
	r.GET("/api/v1/workspace/members", authMiddleware(handlers.Team.GetMembers))
	r.POST("/api/v1/workspace/members/{id}/role", authMiddleware(handlers.Team.ToggleRole))
	r.DELETE("/api/v1/workspace/members/{id}", authMiddleware(handlers.Team.RemoveMember))

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.GET("/api/v1/tasks/board", authMiddleware(handlers.Task.GetBoard))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.PATCH("/api/v1/tasks/{id}/status", authMiddleware(handlers.Task.ChangeStatus))
	r.PATCH("/api/v1/tasks/{id}/priority", authMiddleware(handlers.Task.ChangePriority))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/projects", authMiddleware(handlers.Project.GetProjects))
	r.POST("/api/v1/projects", authMiddleware(handlers.Project.CreateProject))
	r.GET("/api/v1/projects/{id}", authMiddleware(handlers.Project.GetProject))
	r.PUT("/api/v1/projects/{id}", authMiddleware(handlers.Project.UpdateProject))
	r.PATCH("/api/v1/projects/{id}/status", authMiddleware(handlers.Project.SetStatus))
	r.DELETE("/api/v1/projects/{id}", authMiddleware(handlers.Project.DeleteProject))

	r.GET("/api/v1/documents", authMiddleware(handlers.Document.GetDocuments))
	r.POST("/api/v1/documents", authMiddleware(handlers.Document.Upload))
	r.GET("/api/v1/documents/{id}", authMiddleware(handlers.Document.GetDocument))
	r.PUT("/api/v1/documents/{id}", authMiddleware(handlers.Document.Edit))
	r.DELETE("/api/v1/documents/{id}", authMiddleware(handlers.Document.Delete))
	r.GET("/api/v1/documents/{id}/download", authMiddleware(handlers.Document.Download))
	r.GET("/api/v1/documents/{id}/comments", authMiddleware(handlers.Document.GetComments))
	r.POST("/api/v1/documents/{id}/comments", authMiddleware(handlers.Document.AddComment))

	r.GET("/api/v1/calendar", authMiddleware(handlers.Calendar.GetMonth))
	r.POST("/api/v1/meetings", authMiddleware(handlers.Calendar.CreateMeeting))
	r.GET("/api/v1/meetings/{id}", authMiddleware(handlers.Calendar.GetMeeting))
	r.DELETE("/api/v1/meetings/{id}", authMiddleware(handlers.Calendar.DeleteMeeting))

	r.GET("/api/v1/notifications", authMiddleware(handlers.Notification.GetNotifications))
	r.POST("/api/v1/notifications/read", authMiddleware(handlers.Notification.MarkAllRead))
	r.POST("/api/v1/notifications/{id}/read", authMiddleware(handlers.Notification.MarkRead))

	r.GET("/api/v1/dashboard", authMiddleware(handlers.Dashboard.GetStats))

	r.POST("/api/v1/assistant/chat", authMiddleware(handlers.Assistant.Chat))
	r.GET("/api/v1/assistant/suggestions", authMiddleware(handlers.Assistant.Suggestions))
	r.GET("/api/v1/assistant/tip", authMiddleware(handlers.Assistant.Tip))

	// Live views
	r.GET("/api/v1/live/{view}", authMiddleware(handlers.Live.Stream))

	return r
}
