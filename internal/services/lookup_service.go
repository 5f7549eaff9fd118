package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/trulyexpense/backend/internal/models"
)

// LookupService serves the global label suggestion lists and per-user
// display preferences. The lists carry no referential weight: records keep
// whatever free-text label they were saved with.
type LookupService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewLookupService(db *sql.DB) *LookupService {
	return &LookupService{db: db, validator: NewValidationHelper()}
}

// ListCategories returns the expense label suggestions.
// @Summary List categories
// @Tags lookups
// @Router /categories [get]
func (s *LookupService) ListCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query("SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		log.Printf("[LOOKUP] Category list failed: %v", err)
		SendErrorResponse(w, "Failed to fetch categories", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			log.Printf("[LOOKUP] Category scan failed: %v", err)
			SendErrorResponse(w, "Failed to fetch categories", http.StatusInternalServerError, nil)
			return
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[LOOKUP] Category iteration failed: %v", err)
		SendErrorResponse(w, "Failed to fetch categories", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// ListSources returns the income label suggestions.
// @Summary List sources
// @Tags lookups
// @Router /sources [get]
func (s *LookupService) ListSources(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query("SELECT id, name FROM sources ORDER BY name")
	if err != nil {
		log.Printf("[LOOKUP] Source list failed: %v", err)
		SendErrorResponse(w, "Failed to fetch sources", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	sources := []models.Source{}
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Name); err != nil {
			log.Printf("[LOOKUP] Source scan failed: %v", err)
			SendErrorResponse(w, "Failed to fetch sources", http.StatusInternalServerError, nil)
			return
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[LOOKUP] Source iteration failed: %v", err)
		SendErrorResponse(w, "Failed to fetch sources", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// GetPreferences returns the user's display currency, defaulting when none
// is stored.
// @Summary Get preferences
// @Tags preferences
// @Router /preferences [get]
func (s *LookupService) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	pref := models.UserPreference{UserID: userID, Currency: models.DefaultCurrency}
	err := s.db.QueryRow("SELECT currency FROM user_preferences WHERE user_id = $1", userID).Scan(&pref.Currency)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("[LOOKUP] Preference fetch failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch preferences", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// UpdatePreferences upserts the user's display currency.
// @Summary Update preferences
// @Tags preferences
// @Router /preferences [put]
func (s *LookupService) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Currency string `json:"currency" validate:"required,max=50"`
	}

	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	_, err := s.db.Exec(`INSERT INTO user_preferences (user_id, currency) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET currency = EXCLUDED.currency`, userID, req.Currency)
	if err != nil {
		log.Printf("[LOOKUP] Preference update failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to update preferences", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, models.UserPreference{UserID: userID, Currency: req.Currency})
}
