package http

import "github.com/gofiber/fiber/v2"

// La autenticación vive en el gateway de la plataforma: este servicio confía
// en las cabeceras de identidad que el gateway inyecta tras validar el token.
const (
	headerCompanyID   = "X-Company-Id"
	headerUserID      = "X-User-Id"
	headerCanRegister = "X-Can-Register-Customers"
)

// GetCompanyID devuelve la empresa autenticada, o cadena vacía.
func GetCompanyID(c *fiber.Ctx) string {
	return c.Get(headerCompanyID)
}

// GetUserID devuelve el usuario autenticado, o cadena vacía.
func GetUserID(c *fiber.Ctx) string {
	return c.Get(headerUserID)
}

// CanRegisterCustomers indica si el usuario tiene el permiso de alta de clientes.
func CanRegisterCustomers(c *fiber.Ctx) bool {
	return c.Get(headerCanRegister) == "true"
}
