// file: internals/route/index.go
package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	paymentRoute "hostelku_backend/internals/features/finance/payments/route"
	roomRoute "hostelku_backend/internals/features/hostel/rooms/route"
	authMiddleware "hostelku_backend/internals/middlewares/auth"
	middlewares "hostelku_backend/internals/middlewares"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// ===================== PUBLIC =====================
	// Gateway webhook: no JWT, authenticated by HMAC signature.
	log.Println("[INFO] Setting up PUBLIC group...")
	public := app.Group("/api")
	paymentRoute.PaymentWebhookRoutes(public, db)

	// ===================== PRIVATE (STUDENT) =====================
	log.Println("[INFO] Setting up STUDENT group...")
	student := app.Group("/api/u", authMiddleware.AuthMiddleware())
	student.Use("/payments/initiate", middlewares.InitiateRateLimiter())
	paymentRoute.PaymentUserRoutes(student, db)
	roomRoute.RoomUserRoutes(student, db)

	// ===================== ADMIN (WARDEN) =====================
	log.Println("[INFO] Setting up ADMIN group (Auth + RoleCheck)...")
	admin := app.Group("/api/a",
		authMiddleware.AuthMiddleware(),
		authMiddleware.RequireAdmin(),
	)
	paymentRoute.PaymentAdminRoutes(admin, db)
	roomRoute.RoomAdminRoutes(admin, db)
}
