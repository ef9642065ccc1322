package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/fahmirid/backend_lancerhub/internal/config"
	"github.com/fahmirid/backend_lancerhub/internal/db"
	"github.com/fahmirid/backend_lancerhub/internal/handlers"
	"github.com/fahmirid/backend_lancerhub/internal/middleware"
	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/realtime"
	"github.com/fahmirid/backend_lancerhub/internal/services/notification"
	"github.com/fahmirid/backend_lancerhub/internal/services/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("[Redis] Not reachable, realtime push degraded:", err)
		rdb = nil
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.FreelancerProfile{},
		&models.Job{},
		&models.Proposal{},
		&models.Contract{},
		&models.Milestone{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.WalletTransaction{},
	); err != nil {
		log.Fatal(err)
	}

	walletSvc := wallet.NewWalletService(gdb)
	notifier := notification.NewNotificationService(gdb, hub, rdb)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	jobH := handlers.NewJobHandler(gdb, cfg.ShareLinkKey)
	proposalH := handlers.NewProposalHandler(gdb, hub, notifier)
	contractH := handlers.NewContractHandler(gdb)
	milestoneH := handlers.NewMilestoneHandler(gdb, hub, walletSvc, notifier)
	chatH := handlers.NewChatHandler(gdb, hub, rdb)
	notifH := handlers.NewNotificationHandler(gdb)
	dashH := handlers.NewDashboardHandler(gdb)
	profileH := handlers.NewProfileHandler(gdb)
	walletH := handlers.NewWalletHandler(gdb, walletSvc)

	milestoneH.StartOverdueReminderWorker()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Static("/uploads", "./uploads")

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/jobs", jobH.ListPublic)
	api.Get("/jobs/categories", jobH.GetCategories)
	api.Get("/jobs/share/:code", jobH.ResolveShareLink)
	api.Get("/jobs/:id", jobH.GetDetail)
	api.Get("/freelancers/:id/profile", profileH.GetPublic)

	// protected (JWT)
	protected := api.Group("/",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.Preload("FreelancerProfile").First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":      user.ID,
				"name":    user.Name,
				"email":   user.Email,
				"role":    user.Role,
				"balance": user.Balance,
				"profile": user.FreelancerProfile,
			},
		})
	})

	// company only
	protected.Post("/company/jobs",
		middleware.RequireRoles("company"),
		jobH.Create,
	)
	protected.Get("/company/jobs",
		middleware.RequireRoles("company"),
		jobH.ListMine,
	)
	protected.Put("/company/jobs/:id",
		middleware.RequireRoles("company"),
		jobH.Update,
	)
	protected.Patch("/company/jobs/:id/close",
		middleware.RequireRoles("company"),
		jobH.Close,
	)
	protected.Get("/company/jobs/:id/share-link",
		middleware.RequireRoles("company"),
		jobH.ShareLink,
	)
	protected.Get("/company/jobs/:id/proposals",
		middleware.RequireRoles("company"),
		proposalH.ListForJob,
	)
	protected.Post("/company/proposals/:id/accept",
		middleware.RequireRoles("company"),
		proposalH.Accept,
	)
	protected.Patch("/company/proposals/:id/reject",
		middleware.RequireRoles("company"),
		proposalH.Reject,
	)
	protected.Get("/company/dashboard/stats",
		middleware.RequireRoles("company"),
		dashH.GetCompanyStats,
	)

	// freelancer only
	protected.Post("/jobs/:id/proposals",
		middleware.RequireRoles("freelancer"),
		proposalH.Submit,
	)
	protected.Get("/freelancer/proposals",
		middleware.RequireRoles("freelancer"),
		proposalH.ListMine,
	)
	protected.Patch("/freelancer/proposals/:id/withdraw",
		middleware.RequireRoles("freelancer"),
		proposalH.Withdraw,
	)
	protected.Get("/freelancer/dashboard/stats",
		middleware.RequireRoles("freelancer"),
		dashH.GetFreelancerStats,
	)
	protected.Get("/freelancer/earnings",
		middleware.RequireRoles("freelancer"),
		dashH.GetEarnings,
	)
	protected.Get("/freelancer/profile/me",
		middleware.RequireRoles("freelancer"),
		profileH.GetMine,
	)
	protected.Patch("/freelancer/profile/me",
		middleware.RequireRoles("freelancer"),
		profileH.UpdateMine,
	)
	protected.Post("/freelancer/profile/photo",
		middleware.RequireRoles("freelancer"),
		profileH.UploadPhoto,
	)

	// contracts: both parties
	protected.Get("/contracts", contractH.List)
	protected.Get("/contracts/:id", contractH.Get)
	protected.Get("/contracts/:id/progress", contractH.GetProgress)

	// milestones
	protected.Post("/milestones/:id/complete",
		middleware.RequireRoles("freelancer"),
		milestoneH.Complete,
	)
	protected.Post("/milestones/:id/revision",
		middleware.RequireRoles("company"),
		milestoneH.RequestRevision,
	)
	protected.Post("/milestones/:id/approve",
		middleware.RequireRoles("company"),
		milestoneH.Approve,
	)
	protected.Post("/milestones/:id/pay",
		middleware.RequireRoles("company"),
		milestoneH.Pay,
	)

	// chat
	chat := protected.Group("/chat")
	chat.Post("/conversations", chatH.CreateOrGetConversation)
	chat.Get("/conversations", chatH.GetConversations)
	chat.Get("/conversations/:id/messages", chatH.GetMessages)
	chat.Post("/conversations/:id/messages", chatH.SendMessage)
	chat.Patch("/conversations/:id/read", chatH.MarkAsRead)
	chat.Get("/unread-total", chatH.GetUnreadTotal)

	// notifications
	protected.Get("/notifications", notifH.List)
	protected.Get("/notifications/unread-count", notifH.UnreadCount)
	protected.Patch("/notifications/read-all", notifH.MarkAllRead)
	protected.Patch("/notifications/:id/read", notifH.MarkRead)

	// wallet
	protected.Get("/wallet/balance", walletH.GetBalance)
	protected.Get("/wallet/transactions", walletH.GetTransactions)
	protected.Post("/wallet/topup",
		middleware.RequireRoles("company"),
		walletH.TopUp,
	)

	// WebSocket endpoint (auth via query param, no JWT middleware)
	app.Get("/ws/chat", websocket.New(chatH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
