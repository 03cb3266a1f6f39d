// file: internals/features/hostel/rooms/route/room_routes.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	roomController "hostelku_backend/internals/features/hostel/rooms/controller"
	"hostelku_backend/internals/features/hostel/rooms/service"
)

// RoomUserRoutes: read-only access for students.
func RoomUserRoutes(r fiber.Router, db *gorm.DB) {
	ctl := roomController.NewRoomBillController(service.NewBillingService(db))

	rooms := r.Group("/rooms")
	rooms.Get("/rates/current", ctl.CurrentRate)
	rooms.Get("/:id/bills", ctl.ListBills)
}

// RoomAdminRoutes: bill creation and rate management.
func RoomAdminRoutes(r fiber.Router, db *gorm.DB) {
	ctl := roomController.NewRoomBillController(service.NewBillingService(db))

	rooms := r.Group("/rooms")
	rooms.Post("/rates", ctl.SetRate)
	rooms.Get("/rates/current", ctl.CurrentRate)
	rooms.Post("/:id/bills", ctl.CreateBill)
	rooms.Get("/:id/bills", ctl.ListBills)
}
