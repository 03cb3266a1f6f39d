// file: internals/features/finance/payments/route/payment_routes.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"hostelku_backend/internals/configs"
	feesvc "hostelku_backend/internals/features/finance/fees/service"
	paymentController "hostelku_backend/internals/features/finance/payments/controller"
	"hostelku_backend/internals/features/finance/payments/service"
)

type module struct {
	stores    service.Stores
	uow       service.UnitOfWork
	allocator *service.Allocator
	processor *service.Processor
	initiator *service.Initiator
	verifier  *service.Verifier
	sweeper   *service.Sweeper
}

func buildModule(db *gorm.DB) *module {
	stores := service.NewGormStores(db)
	uow := service.NewGormUnitOfWork(db)
	directory := service.NewGormStudentDirectory(db)
	fees := feesvc.NewGormScheduleProvider(db)

	gateway := service.NewHTTPGatewayClient(service.GatewayConfig{
		BaseURL:  configs.GatewayBaseURL,
		ClientID: configs.GatewayClientID,
		Secret:   configs.GatewaySecret,
	})

	allocator := service.NewAllocator(fees, directory)
	processor := service.NewProcessor(uow, stores, allocator, service.LogNotifier{})
	initiator := service.NewInitiator(uow, stores, directory, allocator, gateway)
	verifier := service.NewVerifier(gateway, processor, stores)
	sweeper := service.NewSweeper(uow, service.DefaultSweepTimeout)

	return &module{
		stores:    stores,
		uow:       uow,
		allocator: allocator,
		processor: processor,
		initiator: initiator,
		verifier:  verifier,
		sweeper:   sweeper,
	}
}

// PaymentUserRoutes: authenticated student endpoints.
func PaymentUserRoutes(r fiber.Router, db *gorm.DB) {
	m := buildModule(db)
	ctl := paymentController.NewPaymentController(m.initiator, m.verifier, m.sweeper, m.stores, m.uow)

	payments := r.Group("/payments")
	payments.Post("/initiate", ctl.InitiatePayment)
	payments.Get("/history", ctl.PaymentHistory)
	payments.Get("/status/:billId", ctl.PaymentStatusByBill)
	payments.Post("/verify/:id", ctl.VerifyPayment)
	payments.Delete("/cancel/:id", ctl.CancelPayment)
}

// PaymentAdminRoutes: warden/admin endpoints.
func PaymentAdminRoutes(r fiber.Router, db *gorm.DB) {
	m := buildModule(db)
	ctl := paymentController.NewPaymentController(m.initiator, m.verifier, m.sweeper, m.stores, m.uow)
	adminCtl := paymentController.NewAdminPaymentController(m.uow, m.allocator, service.LogNotifier{})

	payments := r.Group("/payments")
	payments.Post("/manual", adminCtl.ManualPayment)
	payments.Post("/cleanup-expired", ctl.CleanupExpired)
	payments.Post("/verify/:id", ctl.VerifyPayment)
}

// PaymentWebhookRoutes: unauthenticated gateway callback, HMAC-verified.
func PaymentWebhookRoutes(r fiber.Router, db *gorm.DB) {
	m := buildModule(db)
	webhookCtl := paymentController.NewWebhookController(m.processor, configs.GatewaySecret)

	r.Post("/payments/webhook", webhookCtl.GatewayWebhook)
}
