package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"mahlzeit/ai"
	"mahlzeit/auth"
	"mahlzeit/config"
	"mahlzeit/db"
	"mahlzeit/dishes"
	"mahlzeit/foodsearch"
	"mahlzeit/goals"
	"mahlzeit/home"
	"mahlzeit/intervals"
	"mahlzeit/mealplans"
	"mahlzeit/middleware"
	"mahlzeit/mq"
	"mahlzeit/profile"
	"mahlzeit/ratelim"
	"mahlzeit/rdx"
	"mahlzeit/realtime"
	"mahlzeit/routes"
	"mahlzeit/share"
	"mahlzeit/suggestions"
)

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// Set up all routes and middleware layers
func setupRouter(cfg *config.Config, cache *rdx.Cache, hub *realtime.Hub) http.Handler {
	router := httprouter.New()
	router.GET("/health", Index)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL, cache)
	mw := middleware.New(tokens)

	bus := mq.NewBus()
	bus.Subscribe(hub.OnEvent)

	dishStore := dishes.NewMongoStore(db.DishesCollection)
	goalSvc := goals.NewService(goals.NewMongoStore(db.GoalsCollection, db.WeeklyGoalsCollection))
	profileSvc := profile.NewService(profile.NewMongoStore(db.ProfilesCollection))
	planSvc := mealplans.NewService(mealplans.NewMongoStore(db.MealPlansCollection), mealplans.Options{
		Dishes:      dishStore,
		Goals:       goalSvc,
		Credentials: profileSvc,
		Fitness:     intervals.NewClient(cfg.IntervalsBaseURL),
		Bus:         bus,
	})
	foods := foodsearch.NewClient(cfg.FoodDBBaseURL, cache)
	lookup := ai.NewService(ai.GeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel), foods, cache)

	routes.AddAuthRoutes(router, mw, auth.NewHandlers(auth.NewMongoUserStore(db.UserCollection), tokens))
	routes.AddDishRoutes(router, mw, dishes.NewHandlers(dishStore))
	routes.AddShareRoutes(router, mw, share.NewHandlers(share.NewService(share.NewMongoStore(db.SharedDishesCollection), dishStore)))
	routes.AddMealPlanRoutes(router, mw, mealplans.NewHandlers(planSvc), hub)
	routes.AddGoalRoutes(router, mw, goals.NewHandlers(goalSvc))
	routes.AddProfileRoutes(router, mw, profile.NewHandlers(profileSvc))
	routes.AddLookupRoutes(router, mw, ai.NewHandlers(lookup))
	routes.AddFoodRoutes(router, mw, foodsearch.NewHandlers(foods))
	routes.AddHomeRoutes(router, mw, home.NewHandlers(planSvc, goalSvc))
	routes.AddSuggestionsRoutes(router, mw, suggestions.NewHandlers(dishStore, planSvc))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return middleware.RecoverMiddleware(middleware.Logging(middleware.SecurityHeaders(c.Handler(router))))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	config.SetupLogging(cfg.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	client, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()
	log.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")
	go db.EnsureIndexes(ctx)

	var cache *rdx.Cache
	if cfg.RedisAddr != "" {
		cache = rdx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, caching disabled")
			_ = cache.Close()
			cache = nil
		}
	}
	defer cache.Close()

	go ratelim.CleanupDefault(ctx)

	hub := realtime.NewHub()
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, cache, hub),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info().Msg("cleaning up resources before shutdown")
		stop()
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("port", cfg.Port).Msg("could not listen")
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-shutdownChan

	log.Info().Msg("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return
	}

	log.Info().Msg("server stopped cleanly")
}
