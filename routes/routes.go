package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "mailpilot/controllers"
	"mailpilot/engine"
	"mailpilot/middleware"
	"mailpilot/utils"
)

// Deps carries the shared services the route handlers close over.
type Deps struct {
	FollowUps *engine.FollowUpService
	Insights  *engine.InsightGenerator
	Clock     engine.Clock
	LLM       *utils.LLMClient
	Hub       *controller.ProgressHub
}

func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth
	auth.Get("/google", controller.GoogleLogin)
	auth.Get("/google/callback", controller.GoogleCallback)

	// Protected auth endpoints
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, deps Deps) {
	followUpController := controller.NewFollowUpController(deps.FollowUps, deps.Clock)
	insightController := controller.NewInsightController(deps.Insights)
	aiController := controller.NewAIController(deps.LLM)
	personaController := controller.NewPersonaController(deps.LLM)

	api := app.Group("/api/v1", middleware.Protected(), middleware.APIRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", controller.GetDashboardStats)
	dashboard.Get("/activity", controller.ListActivity)

	// Contacts
	contacts := api.Group("/contacts")
	contacts.Post("/", controller.CreateContact)
	contacts.Get("/", controller.ListContacts)
	contacts.Get("/:id", controller.GetContact)
	contacts.Put("/:id", controller.UpdateContact)
	contacts.Post("/:id/unsubscribe", controller.UnsubscribeContact)
	contacts.Post("/:id/verify", controller.VerifyContact)

	// Follow-ups
	followUps := api.Group("/follow-ups")
	followUps.Post("/", followUpController.Create)
	followUps.Get("/", followUpController.List)
	followUps.Get("/overdue", followUpController.ListOverdue)
	followUps.Post("/:id/complete", followUpController.Complete)
	followUps.Post("/:id/snooze", followUpController.Snooze)
	followUps.Post("/:id/cancel", followUpController.Cancel)

	// Templates
	templates := api.Group("/templates")
	templates.Post("/", controller.CreateTemplate)
	templates.Get("/", controller.ListTemplates)
	templates.Get("/:id", controller.GetTemplate)
	templates.Put("/:id", controller.UpdateTemplate)
	templates.Delete("/:id", controller.DeleteTemplate)
	templates.Post("/:id/use", controller.UseTemplate)

	// Sequences
	sequences := api.Group("/sequences")
	sequences.Post("/", controller.CreateSequence)
	sequences.Get("/", controller.ListSequences)
	sequences.Get("/:id", controller.GetSequence)
	sequences.Put("/:id/active", controller.SetSequenceActive)
	sequences.Post("/:id/enroll", controller.EnrollContacts)
	sequences.Get("/:id/enrollments", controller.ListEnrollments)
	sequences.Get("/:id/stats", controller.GetSequenceStats)
	sequences.Post("/enrollments/:enrollmentId/pause", controller.PauseEnrollment)
	sequences.Post("/enrollments/:enrollmentId/resume", controller.ResumeEnrollment)

	// Insights
	insights := api.Group("/insights")
	insights.Get("/", insightController.List)
	insights.Post("/generate", insightController.Generate)
	insights.Post("/:id/dismiss", insightController.Dismiss)

	// Personas; style analysis calls the model, so it shares the AI limiter
	personas := api.Group("/personas")
	personas.Post("/", personaController.Create)
	personas.Get("/", personaController.List)
	personas.Get("/:id", personaController.Get)
	personas.Put("/:id", personaController.Update)
	personas.Delete("/:id", personaController.Delete)
	personas.Post("/:id/analyze", middleware.AIRateLimiter(10), personaController.AnalyzeWritingStyle)

	// AI composition, behind its own tighter limiter
	ai := api.Group("/ai", middleware.AIRateLimiter(10))
	ai.Post("/compose", aiController.Compose)
	ai.Post("/refine", aiController.Refine)
	ai.Post("/suggest-subjects", aiController.SuggestSubjects)

	// Inbox
	inbox := api.Group("/inbox")
	inbox.Post("/accounts", controller.ConnectAccount)
	inbox.Get("/accounts", controller.ListAccounts)
	inbox.Get("/threads", controller.ListThreads)
	inbox.Get("/threads/:id", controller.GetThread)
	inbox.Post("/threads/:id/archive", controller.ArchiveThread)

	// WebSocket stream of sequence progress
	app.Get("/api/v1/sequences/progress", middleware.Protected(), websocket.New(deps.Hub.HandleSequenceProgressWS))

	// Tracking endpoints are unauthenticated: they are hit from recipients'
	// mail clients
	app.Get("/api/track/open/:messageId/:token", controller.TrackOpen)
	app.Get("/api/track/click/:messageId/:token", controller.TrackClick)
}

func SetupRoutes(app *fiber.App, db *gorm.DB, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app)
	SetupAPIRoutes(app, deps)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
