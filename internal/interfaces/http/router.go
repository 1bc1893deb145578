package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CreateDocument      *billing.CreateDocumentUseCase
	RequestCancellation *billing.RequestCancellationUseCase
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	documents := api.Group("/documents")
	documentHandler := NewDocumentHandler(deps.CreateDocument, deps.RequestCancellation)
	documents.Post("/", documentHandler.Create)
	documents.Get("/", documentHandler.List)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Post("/:id/cancel", documentHandler.Cancel)
}
