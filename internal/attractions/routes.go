package attractions

import (
	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/attractions").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.ExpressAttraction).Methods("POST")
	api.HandleFunc("/match/{userTo}/{date}", handler.CheckMatch).Methods("GET")
	api.HandleFunc("/{userTo}/{date}", handler.GetMyAttraction).Methods("GET")
}
