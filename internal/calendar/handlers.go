// internal/calendar/handlers.go

package calendar

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/daymatch/daymatch-backend/internal/common/utils"
)

const maxVideoUploadBytes = 100 << 20 // 100 MB

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Handler handles calendar HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a new calendar handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// UploadStory handles POST /api/v1/calendar/stories (multipart: date, video)
func (h *Handler) UploadStory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	date := r.FormValue("date")
	if !dateFormat.MatchString(date) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "A video file is required")
		return
	}
	defer file.Close()

	cd, err := h.service.UploadStory(r.Context(), userID, date, file, header.Header.Get("Content-Type"))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to upload story")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, cd)
}

// GetMyCalendarDays handles GET /api/v1/calendar/mine
func (h *Handler) GetMyCalendarDays(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.GetMyCalendarDays(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list calendar days")
		return
	}
	if items == nil {
		items = []CalendarDay{}
	}

	utils.RespondWithData(w, http.StatusOK, items)
}

// GetStoriesForDate handles GET /api/v1/calendar/stories/{date}?nearby=true
func (h *Handler) GetStoriesForDate(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	date := mux.Vars(r)["date"]
	if !dateFormat.MatchString(date) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		return
	}
	nearby := r.URL.Query().Get("nearby") == "true"

	stories, err := h.service.GetStoriesForDate(r.Context(), date, userID, nearby)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load stories")
		return
	}
	if stories == nil {
		stories = []Story{}
	}

	utils.RespondWithData(w, http.StatusOK, stories)
}

// DeleteCalendarDay handles DELETE /api/v1/calendar/{calendarId}
func (h *Handler) DeleteCalendarDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	calendarID, err := strconv.ParseInt(mux.Vars(r)["calendarId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Valid numeric calendarId is required.")
		return
	}

	if err := h.service.DeleteCalendarDay(r.Context(), calendarID, userID); err != nil {
		switch {
		case errors.Is(err, ErrDayNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Calendar day not found")
		case errors.Is(err, ErrNotOwner):
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete calendar day")
		}
		return
	}

	utils.MessageResponse(w, "Calendar day deleted", http.StatusOK)
}
