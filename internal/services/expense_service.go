package services

import (
	"bytes"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trulyexpense/backend/internal/config"
	"github.com/trulyexpense/backend/internal/models"
	"github.com/trulyexpense/backend/internal/reports"
)

type ExpenseService struct {
	db        *sql.DB
	validator *ValidationHelper
	cfg       *config.ReportConfig
}

// ExpenseRequest is the create/edit payload. Edits overwrite every field.
type ExpenseRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0" example:"42.50"`
	Description string  `json:"description" validate:"required" example:"Groceries"`
	Category    string  `json:"category" validate:"required" example:"Food"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02" example:"2024-01-15"`
}

// SearchRequest carries the free-text query for record search.
type SearchRequest struct {
	SearchText string `json:"searchText"`
}

// likeEscaper neutralizes LIKE wildcards so queries match their text
// literally; a search for "50%" must not match every amount.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func NewExpenseService(db *sql.DB) *ExpenseService {
	return &ExpenseService{
		db:        db,
		validator: NewValidationHelper(),
		cfg:       config.LoadReportConfig(),
	}
}

const expenseColumns = "id, owner_id, amount, description, category, expense_date, created_at"

func scanExpense(row interface{ Scan(...any) error }) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.OwnerID, &e.Amount, &e.Description, &e.Category, &e.Date, &e.CreatedAt)
	return e, err
}

// ListExpenses returns one page of the user's expenses in store order,
// together with the display currency preference.
// @Summary List expenses
// @Tags expenses
// @Router /expenses [get]
func (s *ExpenseService) ListExpenses(w http.ResponseWriter, r *http.Request) {
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
	if err := s.db.QueryRow("SELECT COUNT(*) FROM expenses WHERE owner_id = $1", userID).Scan(&count); err != nil {
		log.Printf("[EXPENSE] Count failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch expenses", http.StatusInternalServerError, nil)
		return
	}

	rows, err := s.db.Query("SELECT "+expenseColumns+" FROM expenses WHERE owner_id = $1 ORDER BY id LIMIT $2 OFFSET $3",
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Printf("[EXPENSE] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch expenses", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			log.Printf("[EXPENSE] Scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch expenses", http.StatusInternalServerError, nil)
			return
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[EXPENSE] List iteration failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch expenses", http.StatusInternalServerError, nil)
		return
	}

	totalPages := (count + pageSize - 1) / pageSize

	writeJSON(w, http.StatusOK, map[string]any{
		"expenses":    expenses,
		"page":        page,
		"total_pages": totalPages,
		"count":       count,
		"currency":    s.currencyFor(userID),
	})
}

// currencyFor looks up the user's display currency; absence is not an error.
func (s *ExpenseService) currencyFor(userID int) string {
	var currency string
	err := s.db.QueryRow("SELECT currency FROM user_preferences WHERE user_id = $1", userID).Scan(&currency)
	if err != nil {
		return models.DefaultCurrency
	}
	return currency
}

// CreateExpense stores a new expense owned by the requesting user.
// @Summary Create expense
// @Tags expenses
// @Router /expenses [post]
func (s *ExpenseService) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, _ := time.Parse(models.DateLayout, req.Date)

	expense := models.Expense{
		OwnerID:     userID,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        models.Date{Time: date},
	}

	err := s.db.QueryRow("INSERT INTO expenses (owner_id, amount, description, category, expense_date) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		userID, req.Amount, req.Description, req.Category, expense.Date).Scan(&expense.ID, &expense.CreatedAt)
	if err != nil {
		log.Printf("[EXPENSE] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to save expense", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[EXPENSE] Created expense %d for user %d", expense.ID, userID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Expense saved successfully",
		"expense": expense,
	})
}

// GetExpense fetches one expense owned by the requesting user.
// @Summary Get expense
// @Tags expenses
// @Router /expenses/{id} [get]
func (s *ExpenseService) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid expense id", http.StatusBadRequest, nil)
		return
	}

	expense, err := scanExpense(s.db.QueryRow("SELECT "+expenseColumns+" FROM expenses WHERE id = $1 AND owner_id = $2", id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Expense not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[EXPENSE] Fetch failed for expense %d: %v", id, err)
			SendErrorResponse(w, "Failed to fetch expense", http.StatusInternalServerError, nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

// UpdateExpense overwrites all fields of an owned expense.
// @Summary Update expense
// @Tags expenses
// @Router /expenses/{id} [put]
func (s *ExpenseService) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid expense id", http.StatusBadRequest, nil)
		return
	}

	var req ExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, _ := time.Parse(models.DateLayout, req.Date)

	result, err := s.db.Exec("UPDATE expenses SET amount = $1, description = $2, category = $3, expense_date = $4 WHERE id = $5 AND owner_id = $6",
		req.Amount, req.Description, req.Category, models.Date{Time: date}, id, userID)
	if err != nil {
		log.Printf("[EXPENSE] Update failed for expense %d: %v", id, err)
		SendErrorResponse(w, "Failed to update expense", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Expense not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[EXPENSE] Updated expense %d for user %d", id, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense updated successfully"})
}

// DeleteExpense removes an owned expense immediately; there is no undo.
// @Summary Delete expense
// @Tags expenses
// @Router /expenses/{id} [delete]
func (s *ExpenseService) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Invalid expense id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec("DELETE FROM expenses WHERE id = $1 AND owner_id = $2", id, userID)
	if err != nil {
		log.Printf("[EXPENSE] Delete failed for expense %d: %v", id, err)
		SendErrorResponse(w, "Failed to delete expense", http.StatusInternalServerError, nil)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Expense not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[EXPENSE] Deleted expense %d for user %d", id, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense removed"})
}

// SearchExpenses matches the query against amount prefix, date prefix,
// description substring or category substring, scoped to the user. An empty
// query matches every record.
// @Summary Search expenses
// @Tags expenses
// @Router /expenses/search [post]
func (s *ExpenseService) SearchExpenses(w http.ResponseWriter, r *http.Request) {
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

	rows, err := s.db.Query(`SELECT `+expenseColumns+` FROM expenses
		WHERE owner_id = $1 AND (
			CAST(amount AS TEXT) LIKE $2 || '%' ESCAPE '\' OR
			CAST(expense_date AS TEXT) LIKE $2 || '%' ESCAPE '\' OR
			description ILIKE '%' || $2 || '%' ESCAPE '\' OR
			category ILIKE '%' || $2 || '%' ESCAPE '\'
		)`, userID, likeEscaper.Replace(req.SearchText))
	if err != nil {
		log.Printf("[EXPENSE] Search failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to search expenses", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			log.Printf("[EXPENSE] Search scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to search expenses", http.StatusInternalServerError, nil)
			return
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[EXPENSE] Search iteration failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to search expenses", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}

// CategorySummary sums the user's expenses per category over the trailing
// summary window. Users with no records in the window get an empty mapping.
// @Summary Category summary
// @Tags expenses
// @Router /expenses/category-summary [get]
func (s *ExpenseService) CategorySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	today := models.Today()
	windowStart := models.Date{Time: today.AddDate(0, 0, -s.cfg.SummaryWindowDays)}

	rows, err := s.db.Query("SELECT amount, category FROM expenses WHERE owner_id = $1 AND expense_date >= $2 AND expense_date <= $3",
		userID, windowStart, today)
	if err != nil {
		log.Printf("[EXPENSE] Summary query failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	var windowRows []reports.Row
	for rows.Next() {
		var row reports.Row
		if err := rows.Scan(&row.Amount, &row.Category); err != nil {
			log.Printf("[EXPENSE] Summary scan failed for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
			return
		}
		windowRows = append(windowRows, row)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[EXPENSE] Summary iteration failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expense_category_data": reports.SummarizeByCategory(windowRows),
	})
}

// exportRows fetches the user's full expense set in store order, flattened
// for the exporters.
func (s *ExpenseService) exportRows(userID int) ([]reports.Row, error) {
	rows, err := s.db.Query("SELECT amount, description, category, expense_date FROM expenses WHERE owner_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reports.Row
	for rows.Next() {
		var row reports.Row
		var date models.Date
		if err := rows.Scan(&row.Amount, &row.Description, &row.Category, &date); err != nil {
			return nil, err
		}
		row.Date = date.Time
		out = append(out, row)
	}
	return out, rows.Err()
}

func exportFilename(extension string) string {
	return "Expenses" + time.Now().Format("2006-01-02T15-04-05") + extension
}

// ExportCSV streams the user's full expense set as delimited text.
// @Summary Export expenses as CSV
// @Tags expenses
// @Router /expenses/export-csv [get]
func (s *ExpenseService) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.exportRows(userID)
	if err != nil {
		log.Printf("[EXPORT] CSV row fetch failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteCSV(&buf, rows); err != nil {
		log.Printf("[EXPORT] CSV encoding failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[EXPORT] CSV export of %d rows for user %d", len(rows), userID)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFilename(".csv")))
	w.Write(buf.Bytes())
}

// ExportExcel streams the user's full expense set as a spreadsheet.
// @Summary Export expenses as spreadsheet
// @Tags expenses
// @Router /expenses/export-excel [get]
func (s *ExpenseService) ExportExcel(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.exportRows(userID)
	if err != nil {
		log.Printf("[EXPORT] Excel row fetch failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteExcel(&buf, rows); err != nil {
		log.Printf("[EXPORT] Excel encoding failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[EXPORT] Excel export of %d rows for user %d", len(rows), userID)
	w.Header().Set("Content-Type", "application/ms-excel")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFilename(".xlsx")))
	w.Write(buf.Bytes())
}

// ExportPDF streams the user's full expense set as a paginated document with
// a running total computed store-side over the whole set.
// @Summary Export expenses as PDF
// @Tags expenses
// @Router /expenses/export-pdf [get]
func (s *ExpenseService) ExportPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.exportRows(userID)
	if err != nil {
		log.Printf("[EXPORT] PDF row fetch failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	var total float64
	if err := s.db.QueryRow("SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE owner_id = $1", userID).Scan(&total); err != nil {
		log.Printf("[EXPORT] PDF total failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	var buf bytes.Buffer
	if err := reports.WritePDF(&buf, s.cfg.CompanyName, s.cfg.ReportTitle, rows, total); err != nil {
		log.Printf("[EXPORT] PDF encoding failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export expenses", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[EXPORT] PDF export of %d rows for user %d", len(rows), userID)
	w.Header().Set("Content-Type", "application/pdf")
	// The doubled disposition is load-bearing for existing clients.
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; attachment; filename=%s", exportFilename(".pdf")))
	w.Write(buf.Bytes())
}
