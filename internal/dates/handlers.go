// internal/dates/handlers.go
// HTTP handlers for the date proposal lifecycle

package dates

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/common/utils"
)

// Handler handles date HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a new dates handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// statusForCode maps domain error codes to HTTP statuses
func statusForCode(code string) int {
	switch code {
	case CodeNotAMatch, CodeSchedulingConflict:
		return http.StatusConflict
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeForbidden, CodeForbiddenTurn:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes a domain error, attaching the conflicting
// proposal when one exists.
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	de, ok := AsError(err)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
		return
	}

	body := map[string]interface{}{
		"code":    de.Code,
		"message": de.Message,
	}
	if de.Conflicting != nil {
		body["existingDate"] = de.Conflicting
	}
	utils.RespondWithJSON(w, statusForCode(de.Code), body)
}

// CreateDate handles POST /api/v1/dates
func (h *Handler) CreateDate(w http.ResponseWriter, r *http.Request) {
	proposerID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if proposerID == req.UserTo {
		utils.RespondWithError(w, http.StatusBadRequest, "Cannot propose a date to yourself.")
		return
	}

	created, err := h.service.CreateFullDateProposal(r.Context(), proposerID, &req)
	if err != nil {
		respondDomainError(w, err, "Failed to create date proposal")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// UpdateDate handles PATCH /api/v1/dates/{dateId}. A payload with date, time
// or venue reschedules; a payload with only a status responds.
func (h *Handler) UpdateDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	dateID, err := parseDateID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid numeric dateId is required.")
		return
	}

	var req UpdateDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var updated *DateProposal
	switch {
	case req.Date != nil || req.Time != nil || req.LocationMetadata != nil:
		updated, err = h.service.RescheduleProposal(r.Context(), dateID, userID, &req)
	case req.Status != nil:
		updated, err = h.service.RespondToProposal(r.Context(), dateID, userID, *req.Status == StatusApproved)
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "No valid update data provided.")
		return
	}
	if err != nil {
		respondDomainError(w, err, "Failed to update date")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// CancelDate handles POST /api/v1/dates/{dateId}/cancel
func (h *Handler) CancelDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	dateID, err := parseDateID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid numeric dateId is required.")
		return
	}

	updated, err := h.service.CancelProposal(r.Context(), dateID, userID)
	if err != nil {
		respondDomainError(w, err, "Failed to cancel date")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// AddFeedback handles POST /api/v1/dates/{dateId}/feedback
func (h *Handler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	dateID, err := parseDateID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid numeric dateId is required.")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	fb, err := h.service.AddFeedback(r.Context(), dateID, userID, &req)
	if err != nil {
		respondDomainError(w, err, "Failed to save feedback")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, fb)
}

// GetDateByID handles GET /api/v1/dates/{dateId}
func (h *Handler) GetDateByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	dateID, err := parseDateID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid numeric dateId is required.")
		return
	}

	d, err := h.service.GetDateWithUserDetails(r.Context(), dateID, userID)
	if err != nil {
		respondDomainError(w, err, "Failed to get date")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, d)
}

// GetDateByUsersAndDate handles GET /api/v1/dates/lookup/{userFrom}/{userTo}/{date}
func (h *Handler) GetDateByUsersAndDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	d, err := h.service.GetDateEntryByUsersAndDate(r.Context(), userID, vars["userFrom"], vars["userTo"], vars["date"])
	if err != nil {
		respondDomainError(w, err, "Failed to get date")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, d)
}

// GetUpcomingDates handles GET /api/v1/dates/upcoming
func (h *Handler) GetUpcomingDates(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.GetUpcomingDates(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list upcoming dates")
		return
	}
	if items == nil {
		items = []UpcomingDate{}
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

func parseDateID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["dateId"], 10, 64)
}
