// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"chamapesa/internal/handlers"
	"chamapesa/internal/middleware"
	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/services/audit"
	"chamapesa/internal/services/auth"
	"chamapesa/internal/services/chama"
	"chamapesa/internal/services/cycle"
	"chamapesa/internal/services/dashboard"
	"chamapesa/internal/services/loan"
	"chamapesa/internal/services/meeting"
	"chamapesa/internal/services/membership"
	"chamapesa/internal/services/notification"
	"chamapesa/internal/services/payout"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	chamaRepo := repositories.NewChamaRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	cycleRepo := repositories.NewCycleRepository(db)
	payoutRepo := repositories.NewPayoutRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	meetingRepo := repositories.NewMeetingRepository(db)

	// Sinks called after commit; failures never roll anything back.
	auditService := audit.NewService(repositories.NewAuditRepository(db))
	notificationService := notification.NewService(repositories.NewNotificationRepository(db))

	// Services
	authService := auth.NewService(userRepo)
	chamaService := chama.NewService(chamaRepo, repositories.CacheService)
	membershipService := membership.NewService(membershipRepo, auditService)
	cycleService := cycle.NewService(cycleRepo, auditService, notificationService, nil)
	payoutService := payout.NewService(payoutRepo, auditService, nil)
	loanService := loan.NewService(loanRepo, auditService, notificationService, nil)
	meetingService := meeting.NewService(meetingRepo, nil)
	dashboardService := dashboard.NewService(chamaRepo, membershipRepo, meetingRepo, repositories.CacheService, db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	chamaHandler := handlers.NewChamaHandler(chamaService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	cycleHandler := handlers.NewCycleHandler(cycleService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	loanHandler := handlers.NewLoanHandler(loanService)
	meetingHandler := handlers.NewMeetingHandler(meetingService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler(db, repositories.CacheService)

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", authHandler.RegisterUser)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)
	api.Get("/health", healthHandler.HealthCheck)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to ChamaPesa API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	protected := api.Use(authMiddleware.Handler)

	// Session
	protected.Post("/logout", authHandler.LogoutUser)
	protected.Post("/change-password", authHandler.ChangePassword)

	setupChamaRoutes(protected, chamaHandler, membershipHandler, cycleHandler, meetingHandler, dashboardHandler)
	setupCycleRoutes(protected, cycleHandler, payoutHandler)
	setupPayoutRoutes(protected, payoutHandler)
	setupLoanRoutes(protected, loanHandler)
	setupMeetingRoutes(protected, meetingHandler)
	setupMembershipRoutes(protected, membershipHandler)
}

func setupChamaRoutes(router fiber.Router, chamaHandler *handlers.ChamaHandler, membershipHandler *handlers.MembershipHandler, cycleHandler *handlers.CycleHandler, meetingHandler *handlers.MeetingHandler, dashboardHandler *handlers.DashboardHandler) {
	chamas := router.Group("/chamas")

	chamas.Post("/", middleware.HasPermission(models.PermissionChamaWrite), chamaHandler.CreateChama)
	chamas.Get("/", chamaHandler.ListChamas)
	chamas.Get("/:id", chamaHandler.GetChama)
	chamas.Patch("/:id/settings", middleware.HasPermission(models.PermissionChamaWrite), chamaHandler.UpdateSettings)
	chamas.Patch("/:id/status", middleware.RequireRole(models.RoleAdmin), chamaHandler.SetStatus)

	chamas.Post("/:chamaID/memberships", membershipHandler.Enroll)
	chamas.Post("/:chamaID/cycles", middleware.HasPermission(models.PermissionCycleManage), cycleHandler.OpenCycle)
	chamas.Get("/:chamaID/cycles", cycleHandler.ListCycles)
	chamas.Post("/:chamaID/meetings", middleware.HasPermission(models.PermissionMeetingManage), meetingHandler.ScheduleMeeting)
	chamas.Get("/:chamaID/meetings", meetingHandler.ListMeetings)
	chamas.Get("/:chamaID/dashboard", dashboardHandler.GetDashboard)
}

func setupMembershipRoutes(router fiber.Router, h *handlers.MembershipHandler) {
	memberships := router.Group("/memberships")

	memberships.Get("/mine", h.MyMemberships)
	memberships.Get("/:id", h.GetMembership)
	memberships.Post("/:id/activate", middleware.HasPermission(models.PermissionMembershipApprove), h.Activate)
	memberships.Post("/:id/suspend", middleware.HasPermission(models.PermissionMembershipApprove), h.Suspend)
	memberships.Post("/:id/withdraw", h.Withdraw)
}

func setupCycleRoutes(router fiber.Router, cycleHandler *handlers.CycleHandler, payoutHandler *handlers.PayoutHandler) {
	cycles := router.Group("/cycles")

	cycles.Get("/:id", cycleHandler.GetCycle)
	cycles.Post("/:id/payments", middleware.HasPermission(models.PermissionContributionWrite), cycleHandler.RecordPayment)
	cycles.Get("/:id/contributions", cycleHandler.ListContributions)
	cycles.Post("/:id/close", middleware.HasPermission(models.PermissionCycleManage), cycleHandler.CloseCycle)
	cycles.Post("/:id/cancel", middleware.HasPermission(models.PermissionCycleManage), cycleHandler.CancelCycle)
	cycles.Post("/:cycleID/payout", middleware.HasPermission(models.PermissionPayoutProcess), payoutHandler.CreatePayout)

	router.Post("/contributions/:contributionID/confirm", middleware.HasPermission(models.PermissionContributionWrite), cycleHandler.ConfirmPayment)
}

func setupPayoutRoutes(router fiber.Router, h *handlers.PayoutHandler) {
	payouts := router.Group("/payouts")

	payouts.Get("/pending", middleware.HasPermission(models.PermissionPayoutRead), h.ListPending)
	payouts.Get("/:id", middleware.HasPermission(models.PermissionPayoutRead), h.GetPayout)
	payouts.Post("/:id/approve", middleware.HasPermission(models.PermissionPayoutApprove), h.ApprovePayout)
	payouts.Post("/:id/processing", middleware.HasPermission(models.PermissionPayoutProcess), h.MarkProcessing)
	payouts.Post("/:id/complete", middleware.HasPermission(models.PermissionPayoutProcess), h.MarkCompleted)
	payouts.Post("/:id/fail", middleware.HasPermission(models.PermissionPayoutProcess), h.FailPayout)
	payouts.Post("/:id/cancel", middleware.HasPermission(models.PermissionPayoutApprove), h.CancelPayout)
}

func setupLoanRoutes(router fiber.Router, h *handlers.LoanHandler) {
	loans := router.Group("/loans")

	loans.Post("/", middleware.HasPermission(models.PermissionLoanApply), h.ApplyForLoan)
	loans.Get("/:id", h.GetLoan)
	loans.Post("/:id/approve", middleware.HasPermission(models.PermissionLoanApprove), h.ApproveLoan)
	loans.Post("/:id/reject", middleware.HasPermission(models.PermissionLoanApprove), h.RejectLoan)
	loans.Post("/:id/disburse", middleware.HasPermission(models.PermissionLoanApprove), h.DisburseLoan)
	loans.Post("/:id/repayments", middleware.HasPermission(models.PermissionLoanRepay), h.RecordRepayment)
	loans.Get("/:id/repayments", h.ListRepayments)
	loans.Post("/:id/default", middleware.HasPermission(models.PermissionLoanApprove), h.MarkDefaulted)

	router.Get("/memberships/:membershipID/loans", h.MyLoans)
}

func setupMeetingRoutes(router fiber.Router, h *handlers.MeetingHandler) {
	meetings := router.Group("/meetings")

	meetings.Get("/:id", h.GetMeeting)
	meetings.Post("/:id/start", middleware.HasPermission(models.PermissionMeetingManage), h.StartMeeting)
	meetings.Post("/:id/complete", middleware.HasPermission(models.PermissionMeetingManage), h.CompleteMeeting)
	meetings.Post("/:id/cancel", middleware.HasPermission(models.PermissionMeetingManage), h.CancelMeeting)
	meetings.Post("/:id/attendance", middleware.HasPermission(models.PermissionMeetingManage), h.RecordAttendance)
	meetings.Get("/:id/attendance", h.ListAttendance)
}
