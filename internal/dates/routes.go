package dates

import (
	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/dates").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.CreateDate).Methods("POST")
	api.HandleFunc("/upcoming", handler.GetUpcomingDates).Methods("GET")
	api.HandleFunc("/lookup/{userFrom}/{userTo}/{date}", handler.GetDateByUsersAndDate).Methods("GET")
	api.HandleFunc("/{dateId}", handler.GetDateByID).Methods("GET")
	api.HandleFunc("/{dateId}", handler.UpdateDate).Methods("PATCH")
	api.HandleFunc("/{dateId}/cancel", handler.CancelDate).Methods("POST")
	api.HandleFunc("/{dateId}/feedback", handler.AddFeedback).Methods("POST")
}
