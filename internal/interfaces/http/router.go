package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/recon-api/internal/application/auth"
	"github.com/jhoicas/recon-api/internal/application/usecase"
	"github.com/jhoicas/recon-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC       *auth.AuthUseCase
	JobUC        *usecase.JobUseCase
	UserUC       *usecase.UserUseCase
	AccessSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	manager := string(entity.RoleManager)
	detailer := string(entity.RoleDetailer)
	salesperson := string(entity.RoleSalesperson)

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)

	// Rutas protegidas (Bearer Token de un usuario activo)
	protected := api.Group("/", AuthMiddleware(deps.AccessSecret), RequireActiveUser(deps.UserUC))

	userHandler := NewUserHandler(deps.UserUC)
	protected.Get("/auth/me", userHandler.Me)

	// Jobs
	jobs := protected.Group("/jobs")
	jobHandler := NewJobHandler(deps.JobUC)
	jobs.Get("/", jobHandler.List)
	jobs.Post("/", RequireRole(manager, salesperson), jobHandler.Create)
	jobs.Post("/join", RequireRole(manager, detailer), jobHandler.Join)
	jobs.Get("/:id", jobHandler.GetByID)
	jobs.Post("/:id/start", jobHandler.Start)
	jobs.Post("/:id/pause", jobHandler.Pause)
	jobs.Post("/:id/technicians", jobHandler.AddTechnician)
	jobs.Post("/:id/complete", jobHandler.Complete)
	jobs.Post("/:id/qc", jobHandler.QCDecision)
	jobs.Post("/:id/cancel", jobHandler.Cancel)

	// Users (manager; PIN y consulta también para el propio usuario)
	users := protected.Group("/users")
	users.Post("/", RequireRole(manager), userHandler.Create)
	users.Get("/", RequireRole(manager), userHandler.List)
	users.Get("/:id", userHandler.GetByID)
	users.Put("/:id/pin", userHandler.SetPin)
	users.Put("/:id/role", RequireRole(manager), userHandler.ChangeRole)
	users.Delete("/:id", RequireRole(manager), userHandler.Deactivate)
}
