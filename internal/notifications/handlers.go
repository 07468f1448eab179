// internal/notifications/handlers.go

package notifications

import (
	"net/http"
	"strconv"

	"github.com/daymatch/daymatch-backend/internal/common/utils"
)

// Handler handles notification HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a new notifications handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMyNotifications handles GET /api/v1/notifications
func (h *Handler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.service.GetUserNotifications(r.Context(), userID, limit, offset)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	if items == nil {
		items = []Notification{}
	}

	utils.RespondWithData(w, http.StatusOK, items)
}

// MarkAllAsRead handles POST /api/v1/notifications/mark-read
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count, err := h.service.MarkAllAsRead(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to mark notifications read")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"marked": count})
}

// GetUnreadCount handles GET /api/v1/notifications/unread-count
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count unread notifications")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]int{"unread": count})
}
