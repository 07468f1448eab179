// internal/attractions/handlers.go

package attractions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/common/utils"
	"github.com/daymatch/daymatch-backend/internal/users"
)

// Handler handles attraction HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a new attractions handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ExpressAttraction handles POST /api/v1/attractions
func (h *Handler) ExpressAttraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ExpressAttractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ExpressAttraction(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfAttraction):
			utils.RespondWithError(w, http.StatusBadRequest, "Cannot express attraction to yourself.")
		case errors.Is(err, users.ErrInsufficientTokens):
			utils.RespondWithError(w, http.StatusPaymentRequired, "Insufficient tokens to express attraction.")
		case errors.Is(err, users.ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to express attraction")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, result)
}

// GetMyAttraction handles GET /api/v1/attractions/{userTo}/{date}
func (h *Handler) GetMyAttraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	a, err := h.service.GetAttraction(r.Context(), userID, vars["userTo"], vars["date"])
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get attraction")
		return
	}
	if a == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Attraction not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, a)
}

// CheckMatch handles GET /api/v1/attractions/match/{userTo}/{date}
func (h *Handler) CheckMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	mutual, err := h.service.CheckMutualMatch(r.Context(), userID, vars["userTo"], vars["date"])
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check match")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"matched": mutual})
}
