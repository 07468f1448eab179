package users

import (
	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	// Account creation happens before a token exists
	router.HandleFunc("/api/v1/users", handler.CreateUser).Methods("POST")

	api := router.PathPrefix("/api/v1/users").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Profile
	api.HandleFunc("/me", handler.GetMe).Methods("GET")
	api.HandleFunc("/me", handler.UpdateMe).Methods("PATCH")
	api.HandleFunc("/me", handler.DeleteMe).Methods("DELETE")
	api.HandleFunc("/me/push-token", handler.RegisterPushToken).Methods("POST")

	// Blocks
	api.HandleFunc("/me/blocks", handler.BlockUser).Methods("POST")
	api.HandleFunc("/me/blocks", handler.GetBlockedUsers).Methods("GET")
	api.HandleFunc("/me/blocks/{userId}", handler.UnblockUser).Methods("DELETE")

	api.HandleFunc("/{userId}", handler.GetProfile).Methods("GET")
}
