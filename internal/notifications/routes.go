package notifications

import (
	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/notifications").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.GetMyNotifications).Methods("GET")
	api.HandleFunc("/mark-read", handler.MarkAllAsRead).Methods("POST")
	api.HandleFunc("/unread-count", handler.GetUnreadCount).Methods("GET")
}
