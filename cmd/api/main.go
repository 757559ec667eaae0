package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"institut/internal/database"
	"institut/internal/middleware"
	"institut/internal/modules/catalog"
	"institut/internal/modules/discount"
	"institut/internal/modules/giftcard"
	"institut/internal/modules/loyalty"
	"institut/internal/modules/notification"
	"institut/internal/modules/reservation"
	"institut/internal/modules/schedule"
	jwtsvc "institut/internal/pkg/jwt"
	"institut/internal/repository"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	j := jwtsvc.New(secret, 24*time.Hour)

	hub := notification.NewHub()
	notificationService := notification.NewService(notificationRepo, hub)
	notificationHandler := notification.NewHandler(notificationService, hub)

	scheduleService := schedule.NewService(db)
	scheduleHandler := schedule.NewHandler(scheduleService)

	catalogService := catalog.NewService(serviceRepo)
	catalogHandler := catalog.NewHandler(catalogService)

	giftCardService := giftcard.NewService(db, notificationService)
	giftCardHandler := giftcard.NewHandler(giftCardService)

	discountService := discount.NewService(db, notificationService)
	discountHandler := discount.NewHandler(discountService)

	loyaltyService := loyalty.NewService(db, userRepo, notificationService)
	loyaltyHandler := loyalty.NewHandler(loyaltyService)

	reservationService := reservation.NewService(
		db,
		reservationRepo,
		scheduleService,
		discountService,
		giftCardService,
		loyaltyService,
		notificationService,
	)
	reservationHandler := reservation.NewHandler(reservationService)

	reminder := notification.NewReminder(reservationRepo, notificationRepo)
	if err := reminder.Start(); err != nil {
		log.Fatal(err)
	}
	defer reminder.Stop()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// public
		scheduleHandler.RegisterRoutes(v1)
		catalogHandler.RegisterRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			reservationHandler.RegisterRoutes(protected)
			giftCardHandler.RegisterRoutes(protected)
			discountHandler.RegisterRoutes(protected)
			loyaltyHandler.RegisterRoutes(protected)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.Auth(j), middleware.AdminOnly())
		{
			scheduleHandler.RegisterAdminRoutes(admin)
			catalogHandler.RegisterAdminRoutes(admin)
			reservationHandler.RegisterAdminRoutes(admin)
			giftCardHandler.RegisterAdminRoutes(admin)
			discountHandler.RegisterAdminRoutes(admin)
		}

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalTokenAuth())
		{
			reservationHandler.RegisterPaymentRoutes(internal)
			notificationHandler.RegisterDispatcherRoutes(internal)
		}
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
