package handlers

import (
	"net/http"

	"github.com/deepgram/pipeview/internal/config"
	"github.com/deepgram/pipeview/internal/middleware"
	"github.com/deepgram/pipeview/internal/services"
	"github.com/deepgram/pipeview/pkg/logger"
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the console, its JSON and websocket endpoints, and the
// operational endpoints on router.
func RegisterRoutes(router *mux.Router, services *services.Services) {
	router.Use(middleware.AccessLog(logger.Base(), services.GetMetrics()))
	router.Use(middleware.RateLimit("global"))

	// Operational routes (no session)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		HandleHealth(services.GetRedisService(), w, r)
	}).Methods("GET")
	router.Handle("/metrics", services.GetMetrics().Handler()).Methods("GET")
	router.HandleFunc("/history/failed", func(w http.ResponseWriter, r *http.Request) {
		HandleFailedHistory(services.GetHistoryService(), w, r)
	}).Methods("GET")

	// Console routes
	consoleRouter := router.NewRoute().Subrouter()
	consoleRouter.Use(middleware.Security(config.IsDevelopment()))
	consoleRouter.Use(services.GetSessionService().Middleware)

	consoleRouter.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		HandlePage(services.GetConsoleService(), w, r)
	}).Methods("GET")
	consoleRouter.Handle("/", middleware.RateLimit("submit")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleFormSubmit(services.GetConsoleService(), w, r)
	}))).Methods("POST")
	consoleRouter.Handle("/console/submit", middleware.RateLimit("submit")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleSubmit(services.GetConsoleService(), w, r)
	}))).Methods("POST")
	consoleRouter.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		HandleHistory(services.GetHistoryService(), w, r)
	}).Methods("GET")
	consoleRouter.HandleFunc("/session/reset", func(w http.ResponseWriter, r *http.Request) {
		HandleResetSession(services.GetSessionService(), w, r)
	}).Methods("POST")
	consoleRouter.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleWebSocket(services.GetConsoleService(), services.GetConnectionManager(), w, r)
	})
}
