package services

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trulyexpense/backend/internal/config"
	"github.com/trulyexpense/backend/internal/models"
)

// IncomeService mirrors ExpenseService for income records. Income has no
// export variants.
type IncomeService struct {
	db        *sql.DB
	validator *ValidationHelper
	cfg       *config.ReportConfig
}

// IncomeRequest is the create/edit payload for income records.
type IncomeRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0" example:"1500.00"`
	Description string  `json:"description" validate:"required" example:"February payroll"`
	Source      string  `json:"source" validate:"required" example:"Salary"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02" example:"2024-02-01"`
}

func NewIncomeService(db *sql.DB) *IncomeService {
	return &IncomeService{
		db:        db,
		validator: NewValidationHelper(),
		cfg:       config.LoadReportConfig(),
	}
}

const incomeColumns = "id, owner_id, amount, description, source, income_date, created_at"

func scanIncome(row interface{ Scan(...any) error }) (models.Income, error) {
	var in models.Income
	err := row.Scan(&in.ID, &in.OwnerID, &in.Amount, &in.Description, &in.Source, &in.Date, &in.CreatedAt)
	return in, err
}

// ListIncome returns one page of the user's income records in store order.
// @Summary List income
// @Tags income
// @Router /income [get]
func (s *IncomeService) ListIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	pageSize := s.cfg.PageSize

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM incomes WHERE owner_id = $1", userID).Scan(&count); err != nil {
		log.Printf("[INCOME] Count failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch income", http.StatusInternalServerError, nil)
		return
	}

	rows, err := s.db.Query("SELECT "+incomeColumns+" FROM incomes WHERE owner_id = $1 ORDER BY id LIMIT $2 OFFSET $3",
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Printf("[INCOME] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch income", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	incomes := []models.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			log.Printf("[INCOME] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch income", http.StatusInternalServerError, nil)
			return
		}
		incomes = append(incomes, in)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[INCOME] List iteration failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch income", http.StatusInternalServerError, nil)
		return
	}

	var currency string
	if err := s.db.QueryRow("SELECT currency FROM user_preferences WHERE user_id = $1", userID).Scan(&currency); err != nil {
		currency = models.DefaultCurrency
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"income":      incomes,
		"page":        page,
		"total_pages": (count + pageSize - 1) / pageSize,
		"count":       count,
		"currency":    currency,
	})
}

// CreateIncome stores a new income record owned by the requesting user.
// @Summary Create income
// @Tags income
// @Router /income [post]
func (s *IncomeService) CreateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req IncomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, _ := time.Parse(models.DateLayout, req.Date)

	income := models.Income{
		OwnerID:     userID,
		Amount:      req.Amount,
		Description: req.Description,
		Source:      req.Source,
		Date:        models.Date{Time: date},
	}

	err := s.db.QueryRow("INSERT INTO incomes (owner_id, amount, description, source, income_date) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		userID, req.Amount, req.Description, req.Source, income.Date).Scan(&income.ID, &income.CreatedAt)
	if err != nil {
		log.Printf("[INCOME] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to save record", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[INCOME] Created income %d for user %d", income.ID, userID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Record saved successfully",
		"income":  income,
	})
}

// GetIncome fetches one income record owned by the requesting user.
// @Summary Get income
// @Tags income
// @Router /income/{id} [get]
func (s *IncomeService) GetIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid income id", http.StatusBadRequest, nil)
		return
	}

	income, err := scanIncome(s.db.QueryRow("SELECT "+incomeColumns+" FROM incomes WHERE id = $1 AND owner_id = $2", id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Record not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[INCOME] Fetch failed for income %d: %v", id, err)
			SendErrorResponse(w, "Failed to fetch record", http.StatusInternalServerError, nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, income)
}

// UpdateIncome overwrites all fields of an owned income record.
// @Summary Update income
// @Tags income
// @Router /income/{id} [put]
func (s *IncomeService) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid income id", http.StatusBadRequest, nil)
		return
	}

	var req IncomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, _ := time.Parse(models.DateLayout, req.Date)

	result, err := s.db.Exec("UPDATE incomes SET amount = $1, description = $2, source = $3, income_date = $4 WHERE id = $5 AND owner_id = $6",
		req.Amount, req.Description, req.Source, models.Date{Time: date}, id, userID)
	if err != nil {
		log.Printf("[INCOME] Update failed for income %d: %v", id, err)
		SendErrorResponse(w, "Failed to update record", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Record not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[INCOME] Updated income %d for user %d", id, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record updated successfully"})
}

// DeleteIncome removes an owned income record immediately.
// @Summary Delete income
// @Tags income
// @Router /income/{id} [delete]
func (s *IncomeService) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid income id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec("DELETE FROM incomes WHERE id = $1 AND owner_id = $2", id, userID)
	if err != nil {
		log.Printf("[INCOME] Delete failed for income %d: %v", id, err)
		SendErrorResponse(w, "Failed to delete record", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Record not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[INCOME] Deleted income %d for user %d", id, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record removed"})
}

// SearchIncome matches the query against amount prefix, date prefix,
// description substring or source substring, scoped to the user.
// @Summary Search income
// @Tags income
// @Router /income/search [post]
func (s *IncomeService) SearchIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	rows, err := s.db.Query(`SELECT `+incomeColumns+` FROM incomes
		WHERE owner_id = $1 AND (
			CAST(amount AS TEXT) LIKE $2 || '%' ESCAPE '\' OR
			CAST(income_date AS TEXT) LIKE $2 || '%' ESCAPE '\' OR
			description ILIKE '%' || $2 || '%' ESCAPE '\' OR
			source ILIKE '%' || $2 || '%' ESCAPE '\'
		)`, userID, likeEscaper.Replace(req.SearchText))
	if err != nil {
		log.Printf("[INCOME] Search failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to search income", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	incomes := []models.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			log.Printf("[INCOME] Search scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to search income", http.StatusInternalServerError, nil)
			return
		}
		incomes = append(incomes, in)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[INCOME] Search iteration failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to search income", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, incomes)
}
