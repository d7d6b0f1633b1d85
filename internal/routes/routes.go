package routes

import (
	"github.com/anees/crimewatch-api/internal/handlers"
	"github.com/anees/crimewatch-api/internal/middleware"
	"github.com/anees/crimewatch-api/internal/realtime"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func Setup(app *fiber.App, gateway *realtime.Gateway) {
	api := app.Group("/api")

	// Users & auth
	users := api.Group("/users")
	users.Post("/register", handlers.Register)
	users.Post("/login", handlers.Login)
	users.Get("/profile", middleware.Protected(), handlers.GetProfile)
	users.Post("/forgot-password", handlers.ForgotPassword)
	users.Post("/verify-otp", handlers.VerifyOTP)
	users.Post("/reset-password", handlers.ResetPassword)

	// Reports; creation allows anonymous submissions
	reports := api.Group("/reports")
	reports.Post("/", middleware.OptionalProtected(), handlers.CreateReport)
	reports.Get("/user/:userId", middleware.Protected(), handlers.GetUserReports)
	reports.Get("/:id", middleware.Protected(), handlers.GetReport)
	reports.Put("/:id", middleware.Protected(), handlers.UpdateReport)
	reports.Delete("/:id", middleware.Protected(), handlers.DeleteReport)

	// Admin
	admin := api.Group("/admin")
	admin.Post("/login", handlers.AdminLogin)

	adminProtected := admin.Group("/", middleware.AdminProtected())
	adminProtected.Get("/dashboard-stats", handlers.GetDashboardStats)
	adminProtected.Get("/reports", handlers.GetAllReports)
	adminProtected.Get("/reports/:id", handlers.GetAdminReport)
	adminProtected.Put("/reports/:id/status", handlers.UpdateReportStatus)
	adminProtected.Post("/reports/:id/notes", handlers.AddAdminNote)
	adminProtected.Delete("/reports/:id", handlers.DeleteReport)
	adminProtected.Get("/users-reports", handlers.GetUsersReports)
	adminProtected.Get("/users/:userId", handlers.GetAdminUser)
	adminProtected.Put("/users/:userId", handlers.UpdateUserByAdmin)
	adminProtected.Delete("/users/:userId", handlers.DeleteUserByAdmin)
	adminProtected.Put("/users/:userId/toggle-role", handlers.ToggleUserRole)

	// Notifications
	notifications := api.Group("/notifications", middleware.Protected())
	notifications.Get("/user/:userId", handlers.GetUserNotifications)
	notifications.Get("/admin", middleware.AdminProtected(), handlers.GetAdminNotifications)
	notifications.Put("/read-all", handlers.MarkAllNotificationsRead)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Delete("/", handlers.ClearAllNotifications)
	notifications.Delete("/:id", handlers.DeleteNotification)

	// Device token for push notifications
	api.Post("/device-token", middleware.Protected(), handlers.RegisterDeviceToken)

	// WebSocket for real-time notifications
	app.Use("/ws", gateway.Upgrade())
	app.Get("/ws", websocket.New(gateway.Handle))
}
