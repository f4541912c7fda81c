package routes

import (
	"github.com/julienschmidt/httprouter"

	"mahlzeit/ai"
	"mahlzeit/auth"
	"mahlzeit/dishes"
	"mahlzeit/foodsearch"
	"mahlzeit/goals"
	"mahlzeit/home"
	"mahlzeit/mealplans"
	"mahlzeit/middleware"
	"mahlzeit/profile"
	"mahlzeit/ratelim"
	"mahlzeit/realtime"
	"mahlzeit/share"
	"mahlzeit/suggestions"
)

func AddAuthRoutes(router *httprouter.Router, mw *middleware.Middleware, h *auth.Handlers) {
	router.POST("/api/v1/auth/register", ratelim.RateLimit(h.Register))
	router.POST("/api/v1/auth/login", ratelim.RateLimit(h.Login))
	router.POST("/api/v1/auth/logout", mw.Authenticate(h.Logout))
	router.GET("/api/v1/auth/me", mw.Authenticate(h.Me))
	router.PUT("/api/v1/auth/me", ratelim.RateLimit(mw.Authenticate(h.UpdateAccount)))
}

func AddDishRoutes(router *httprouter.Router, mw *middleware.Middleware, h *dishes.Handlers) {
	router.GET("/api/v1/dishes", mw.Authenticate(h.List))
	router.GET("/api/v1/dishes/categories", mw.Authenticate(h.Categories))
	router.POST("/api/v1/dishes", mw.Authenticate(h.Create))
	router.GET("/api/v1/dishes/dish/:id", mw.Authenticate(h.Get))
	router.PUT("/api/v1/dishes/dish/:id", mw.Authenticate(h.Update))
	router.PUT("/api/v1/dishes/dish/:id/rating", mw.Authenticate(h.Rate))
	router.DELETE("/api/v1/dishes/dish/:id", mw.Authenticate(h.Delete))
}

func AddShareRoutes(router *httprouter.Router, mw *middleware.Middleware, h *share.Handlers) {
	router.POST("/api/v1/dishes/dish/:id/share", ratelim.RateLimit(mw.Authenticate(h.Create)))
	router.GET("/api/v1/shares/:code", ratelim.RateLimit(mw.OptionalAuth(h.Preview)))
	router.POST("/api/v1/shares/:code/import", ratelim.RateLimit(mw.Authenticate(h.Import)))
}

func AddMealPlanRoutes(router *httprouter.Router, mw *middleware.Middleware, h *mealplans.Handlers, hub *realtime.Hub) {
	router.GET("/api/v1/mealplans/:date", mw.Authenticate(h.GetMealPlan))
	router.PUT("/api/v1/mealplans/:date", mw.Authenticate(h.SaveMealPlan))
	router.DELETE("/api/v1/mealplans/:date", mw.Authenticate(h.DeleteMealPlan))
	router.GET("/api/v1/mealplans/:date/week", mw.Authenticate(h.GetWeek))

	router.POST("/api/v1/mealplans/:date/slots/:slot", mw.Authenticate(h.AddDish))
	router.PUT("/api/v1/mealplans/:date/slots/:slot/:placementId", mw.Authenticate(h.UpdateDish))
	router.DELETE("/api/v1/mealplans/:date/slots/:slot/:placementId", mw.Authenticate(h.RemoveDish))

	router.POST("/api/v1/mealplans/:date/sport", mw.Authenticate(h.AddSport))
	router.DELETE("/api/v1/mealplans/:date/sport/:index", mw.Authenticate(h.RemoveSport))
	router.POST("/api/v1/mealplans/:date/meals", mw.Authenticate(h.AddTemporaryMeal))
	router.DELETE("/api/v1/mealplans/:date/meals/:index", mw.Authenticate(h.RemoveTemporaryMeal))
	router.PUT("/api/v1/mealplans/:date/note", mw.Authenticate(h.SetNote))
	router.PUT("/api/v1/mealplans/:date/stomach-pain", mw.Authenticate(h.SetStomachPain))

	router.POST("/api/v1/mealplans/:date/sync/activities", ratelim.RateLimit(mw.Authenticate(h.SyncActivities)))
	router.POST("/api/v1/mealplans/:date/sync/wellness", ratelim.RateLimit(mw.Authenticate(h.SyncWellness)))

	router.GET("/ws/mealplans/:date", mw.Authenticate(hub.ServeMealPlan(h.Snapshot)))
}

func AddGoalRoutes(router *httprouter.Router, mw *middleware.Middleware, h *goals.Handlers) {
	router.GET("/api/v1/goals", mw.Authenticate(h.GetGlobal))
	router.PUT("/api/v1/goals", mw.Authenticate(h.PutGlobal))
	router.GET("/api/v1/goals/weekly/:date", mw.Authenticate(h.GetWeekly))
	router.PUT("/api/v1/goals/weekly/:date", mw.Authenticate(h.PutWeekly))
	router.DELETE("/api/v1/goals/weekly/:date", mw.Authenticate(h.DeleteWeekly))
	router.GET("/api/v1/goals/effective/:date", mw.Authenticate(h.GetEffective))
}

func AddProfileRoutes(router *httprouter.Router, mw *middleware.Middleware, h *profile.Handlers) {
	router.GET("/api/v1/profile", mw.Authenticate(h.GetProfile))
	router.PUT("/api/v1/profile/features", mw.Authenticate(h.EditFeatures))
	router.PUT("/api/v1/profile/intervals", mw.Authenticate(h.EditIntervals))
	router.DELETE("/api/v1/profile/intervals", mw.Authenticate(h.DeleteIntervals))
}

func AddLookupRoutes(router *httprouter.Router, mw *middleware.Middleware, h *ai.Handlers) {
	router.GET("/api/v1/lookup/status", mw.OptionalAuth(h.Status))
	router.GET("/api/v1/lookup/text", ratelim.RateLimit(mw.Authenticate(h.Text)))
	router.POST("/api/v1/lookup/label", ratelim.RateLimit(mw.Authenticate(h.Label)))
	router.GET("/ws/lookup", mw.Authenticate(h.LiveSearch))
}

func AddFoodRoutes(router *httprouter.Router, mw *middleware.Middleware, h *foodsearch.Handlers) {
	router.GET("/api/v1/foods/search", ratelim.RateLimit(mw.Authenticate(h.Search)))
	router.GET("/api/v1/foods/barcode/:code", ratelim.RateLimit(mw.Authenticate(h.Barcode)))
}

func AddHomeRoutes(router *httprouter.Router, mw *middleware.Middleware, h *home.Handlers) {
	router.GET("/api/v1/home/:apiRoute", mw.Authenticate(h.GetHomeContent))
}

func AddSuggestionsRoutes(router *httprouter.Router, mw *middleware.Middleware, h *suggestions.Handlers) {
	router.GET("/api/v1/suggestions/dishes", mw.Authenticate(h.Dishes))
}
