package calendar

import (
	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/calendar").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/stories", handler.UploadStory).Methods("POST")
	api.HandleFunc("/stories/{date}", handler.GetStoriesForDate).Methods("GET")
	api.HandleFunc("/mine", handler.GetMyCalendarDays).Methods("GET")
	api.HandleFunc("/{calendarId}", handler.DeleteCalendarDay).Methods("DELETE")
}
