package routes

import (
	"schooldesk_go/controllers"
	"schooldesk_go/handlers"
	"schooldesk_go/middleware"
	"schooldesk_go/models"
	"schooldesk_go/services/activity"
	"schooldesk_go/services/attendance"
	"schooldesk_go/services/earlyleave"
	"schooldesk_go/services/feedback"
	"schooldesk_go/services/fees"
	"schooldesk_go/services/health"
	"schooldesk_go/services/leaves"
	"schooldesk_go/services/marks"
	"schooldesk_go/services/notifications"
	"schooldesk_go/services/people"
	"schooldesk_go/services/stats"
	"schooldesk_go/services/websocket"

	"github.com/gofiber/fiber/v2"
)

// Deps are the services the HTTP layer is built on. Photos may be nil.
type Deps struct {
	Auth          *middleware.Auth
	People        *people.Service
	Fees          *fees.Engine
	Attendance    *attendance.Service
	Marks         *marks.Service
	Leaves        *leaves.Service
	Feedback      *feedback.Service
	EarlyLeave    *earlyleave.Service
	Stats         *stats.Service
	Notifications *notifications.Service
	Recorder      *activity.Recorder
	Archiver      *activity.Archiver
	Hub           *websocket.Hub
	Health        *health.Checker
	LineWebhook   *handlers.LineWebhookHandler
	Photos        controllers.PhotoUploader
	ArchiveDays   int
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, d Deps) {
	authController := controllers.NewAuthController(d.People, d.Auth, d.Recorder)
	userController := controllers.NewUserController(d.People)
	studentController := controllers.NewStudentController(d.People, d.Photos, d.Recorder)
	teacherController := controllers.NewTeacherController(d.People)
	feeController := controllers.NewFeeController(d.Fees, d.People)
	attendanceController := controllers.NewAttendanceController(d.Attendance, d.People)
	marksController := controllers.NewMarksController(d.Marks, d.People)
	leaveController := controllers.NewLeaveController(d.Leaves)
	feedbackController := controllers.NewFeedbackController(d.Feedback)
	earlyLeaveController := controllers.NewEarlyLeaveController(d.EarlyLeave, d.People)
	statsController := controllers.NewStatsController(d.Stats)
	notificationController := controllers.NewNotificationController(d.Notifications)
	logController := controllers.NewLogController(d.Recorder, d.Archiver, d.ArchiveDays)
	wsController := controllers.NewWebSocketController(d.Hub)
	healthController := controllers.NewHealthController(d.Health)

	api := app.Group("/api")

	app.Get("/health", healthController.GetHealthStatus)

	// LINE webhook, enabled when the channel is configured
	if d.LineWebhook != nil {
		app.Post("/line/webhook", d.LineWebhook.Handle)
	}

	// Authentication routes
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/me", d.Auth.JWTMiddleware(), authController.Me)
	auth.Post("/logout", d.Auth.JWTMiddleware(), authController.Logout)

	protected := api.Group("", d.Auth.JWTMiddleware(), middleware.LogActivityMiddleware(d.Recorder))

	// Notifications (any authenticated user)
	protected.Get("/notifications", notificationController.GetNotifications)
	protected.Patch("/notifications/read-all", notificationController.MarkAllAsRead)
	protected.Patch("/notifications/:id/read", notificationController.MarkAsRead)

	// Admin
	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.Get("/stats", statsController.GetDashboard)

	admin.Get("/users", userController.GetUsers)
	admin.Get("/users/:id", userController.GetUser)
	admin.Patch("/users/:id/status", userController.SetStatus)

	admin.Get("/students", studentController.GetStudents)
	admin.Post("/students", studentController.CreateStudent)
	admin.Post("/students/import", studentController.ImportStudents)
	admin.Get("/students/:id", studentController.GetStudent)
	admin.Put("/students/:id", studentController.UpdateStudent)
	admin.Delete("/students/:id", studentController.DeleteStudent)
	admin.Post("/students/:id/photo", studentController.UploadPhoto)

	admin.Get("/teachers", teacherController.GetTeachers)
	admin.Post("/teachers", teacherController.CreateTeacher)
	admin.Get("/teachers/:id", teacherController.GetTeacher)
	admin.Put("/teachers/:id", teacherController.UpdateTeacher)
	admin.Put("/teachers/:id/assign-class", teacherController.AssignClass)
	admin.Delete("/teachers/:id", teacherController.DeleteTeacher)

	admin.Get("/fees", feeController.GetFees)
	admin.Get("/fees/export", feeController.ExportFees)
	admin.Post("/fees", feeController.CreateFee)
	admin.Get("/fees/:id", feeController.GetFee)
	admin.Post("/fees/:id/payments", feeController.RecordPayment)
	admin.Put("/fees/:id/status", feeController.OverrideStatus)
	admin.Post("/fees/:id/void", feeController.VoidFee)
	admin.Delete("/fees/:id", feeController.DeleteFee)

	admin.Get("/attendance", attendanceController.GetAttendance)
	admin.Get("/attendance/export", attendanceController.ExportAttendance)
	admin.Get("/attendance/statistics", attendanceController.GetStatistics)
	admin.Get("/marks", marksController.GetMarks)

	admin.Get("/leaves", leaveController.GetLeaves)
	admin.Get("/leaves/:id", leaveController.GetLeave)
	admin.Put("/leaves/:id/review", leaveController.ReviewLeave)

	admin.Get("/feedback", feedbackController.GetFeedback)
	admin.Get("/feedback/:id", feedbackController.GetFeedbackByID)
	admin.Put("/feedback/:id/review", feedbackController.ReviewFeedback)

	admin.Get("/early-leaves", earlyLeaveController.GetEarlyLeaves)
	admin.Post("/notifications", notificationController.SendNotification)
	admin.Get("/ws/stats", wsController.GetWebSocketStats)
	admin.Post("/ws/announce", wsController.Announce)

	admin.Get("/logs", logController.GetLogs)
	admin.Get("/logs/stats", logController.GetLogStats)
	admin.Get("/logs/export", logController.ExportLogs)
	admin.Post("/logs/flush", logController.FlushCachedLogs)
	admin.Post("/logs/archive", logController.ArchiveLogs)
	admin.Get("/logs/archives", logController.GetArchives)
	admin.Get("/logs/archives/:id/download", logController.DownloadArchive)
	admin.Delete("/logs", logController.DeleteOldLogs)

	// Teacher
	teacher := protected.Group("/teacher", middleware.RequireTeacherOrAdmin())
	teacher.Get("/profile", teacherController.GetMyProfile)
	teacher.Get("/students", studentController.GetTeacherStudents)
	teacher.Post("/students", studentController.TeacherCreateStudent)
	teacher.Delete("/students/:id", studentController.TeacherDeleteStudent)
	teacher.Get("/fees", feeController.GetClassFees)
	teacher.Post("/attendance", attendanceController.MarkAttendance)
	teacher.Get("/attendance", attendanceController.GetClassAttendance)
	teacher.Get("/attendance/statistics", attendanceController.GetStatistics)
	teacher.Post("/marks", marksController.UploadMarks)
	teacher.Get("/marks", marksController.GetClassMarks)
	teacher.Post("/leaves", leaveController.ApplyLeave)
	teacher.Get("/leaves", leaveController.GetMyLeaves)
	teacher.Post("/early-leaves", earlyLeaveController.RecordEarlyLeave)
	teacher.Get("/early-leaves", earlyLeaveController.GetEarlyLeaves)

	// Student
	student := protected.Group("/student", middleware.RequireRole(models.RoleStudent))
	student.Get("/profile", studentController.GetMyProfile)
	student.Get("/fees", feeController.GetMyFees)
	student.Get("/attendance", attendanceController.GetMyAttendance)
	student.Get("/marks", marksController.GetMyMarks)
	student.Post("/feedback", feedbackController.SubmitFeedback)
	student.Get("/feedback", feedbackController.GetMyFeedback)

	// WebSocket: the token travels as ?token= since browsers cannot set headers
	app.Get("/ws", d.Auth.JWTMiddleware(), wsController.RequireUpgrade, wsController.WebSocketHandler())
}
