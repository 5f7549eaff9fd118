package services

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/trulyexpense/backend/internal/models"
)

func expenseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "amount", "description", "category", "expense_date", "created_at"})
}

func TestExpenseService_ListExpenses(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("returns a page with count and default currency", func(t *testing.T) {
		now := time.Now()
		day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM expenses").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		mock.ExpectQuery("SELECT (.+) FROM expenses WHERE owner_id = \\$1 ORDER BY id LIMIT").
			WithArgs(1, 3, 0).
			WillReturnRows(expenseRows().
				AddRow(1, 1, 10.0, "lunch", "Food", day, now).
				AddRow(2, 1, 5.0, "bus", "Travel", day, now))

		mock.ExpectQuery("SELECT currency FROM user_preferences").
			WithArgs(1).
			WillReturnError(sql.ErrNoRows)

		r := authedRequest(httptest.NewRequest("GET", "/expenses", nil), "1")
		w := httptest.NewRecorder()

		service.ListExpenses(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Expenses   []models.Expense `json:"expenses"`
			Page       int              `json:"page"`
			TotalPages int              `json:"total_pages"`
			Count      int              `json:"count"`
			Currency   string           `json:"currency"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Expenses, 2)
		assert.Equal(t, 1, response.Page)
		assert.Equal(t, 1, response.TotalPages)
		assert.Equal(t, 2, response.Count)
		assert.Equal(t, "Default", response.Currency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/expenses", nil)
		w := httptest.NewRecorder()

		service.ListExpenses(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestExpenseService_CreateExpense(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("successful creation", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO expenses").
			WithArgs(1, 42.5, "Groceries", "Food", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

		body := []byte(`{"amount":42.5,"description":"Groceries","category":"Food","date":"2024-01-15"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.CreateExpense(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing amount fails validation", func(t *testing.T) {
		body := []byte(`{"description":"Groceries","category":"Food","date":"2024-01-15"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.CreateExpense(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "Amount")
	})

	t.Run("missing description fails validation", func(t *testing.T) {
		body := []byte(`{"amount":10,"category":"Food","date":"2024-01-15"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.CreateExpense(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExpenseService_GetExpense(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("missing expense yields 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM expenses WHERE id = \\$1 AND owner_id = \\$2").
			WithArgs(99, 1).
			WillReturnError(sql.ErrNoRows)

		r := withURLParam(authedRequest(httptest.NewRequest("GET", "/expenses/99", nil), "1"), "id", "99")
		w := httptest.NewRecorder()

		service.GetExpense(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("delete removes the owned row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM expenses").
			WithArgs(5, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		r := withURLParam(authedRequest(httptest.NewRequest("DELETE", "/expenses/5", nil), "1"), "id", "5")
		w := httptest.NewRecorder()

		service.DeleteExpense(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete of someone else's row yields 404", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM expenses").
			WithArgs(5, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		r := withURLParam(authedRequest(httptest.NewRequest("DELETE", "/expenses/5", nil), "1"), "id", "5")
		w := httptest.NewRecorder()

		service.DeleteExpense(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestExpenseService_SearchExpenses(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("query 42 matches amount, date, description and category", func(t *testing.T) {
		now := time.Now()
		rows := expenseRows().
			AddRow(1, 1, 420.00, "dinner", "Food", time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), now).
			AddRow(2, 1, 9.00, "groceries", "Food", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now).
			AddRow(3, 1, 12.00, "42 lunches", "Food", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), now).
			AddRow(4, 1, 30.00, "snacks", "Food42", time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), now)

		mock.ExpectQuery("SELECT (.+) FROM expenses\\s+WHERE owner_id = \\$1 AND \\(").
			WithArgs(1, "42").
			WillReturnRows(rows)

		body := []byte(`{"searchText":"42"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses/search", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.SearchExpenses(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var matches []models.Expense
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
		assert.Len(t, matches, 4)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wildcard characters match literally, not as patterns", func(t *testing.T) {
		// "50%" must reach the store with its percent neutralized; unescaped
		// it would degenerate to a match-everything amount prefix
		mock.ExpectQuery("SELECT (.+) FROM expenses\\s+WHERE owner_id = \\$1 AND \\(").
			WithArgs(1, `50\%`).
			WillReturnRows(expenseRows().
				AddRow(1, 1, 8.00, "50% off voucher", "Shopping", time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), time.Now()))

		body := []byte(`{"searchText":"50%"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses/search", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.SearchExpenses(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("underscores and backslashes are escaped too", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM expenses\\s+WHERE owner_id = \\$1 AND \\(").
			WithArgs(1, `a\_c\\d`).
			WillReturnRows(expenseRows())

		body := []byte(`{"searchText":"a_c\\d"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses/search", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.SearchExpenses(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matches yields an empty array, not null", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM expenses\\s+WHERE owner_id = \\$1 AND \\(").
			WithArgs(1, "nothing").
			WillReturnRows(expenseRows())

		body := []byte(`{"searchText":"nothing"}`)
		r := authedRequest(httptest.NewRequest("POST", "/expenses/search", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.SearchExpenses(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})
}

func TestExpenseService_CategorySummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("sums only the rows inside the trailing window", func(t *testing.T) {
		// the record from seven months ago never leaves the store: the
		// window predicate keeps it out, so Food sums to 10, not 15
		today := models.Today()
		windowStart := today.AddDate(0, 0, -service.cfg.SummaryWindowDays)

		mock.ExpectQuery("SELECT amount, category FROM expenses WHERE owner_id = \\$1 AND expense_date >= \\$2 AND expense_date <= \\$3").
			WithArgs(1, windowStart, today.Time).
			WillReturnRows(sqlmock.NewRows([]string{"amount", "category"}).AddRow(10.0, "Food"))

		r := authedRequest(httptest.NewRequest("GET", "/expenses/category-summary", nil), "1")
		w := httptest.NewRecorder()

		service.CategorySummary(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data map[string]float64 `json:"expense_category_data"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, map[string]float64{"Food": 10}, response.Data)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no records in the window yields an empty mapping", func(t *testing.T) {
		mock.ExpectQuery("SELECT amount, category FROM expenses").
			WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"amount", "category"}))

		r := authedRequest(httptest.NewRequest("GET", "/expenses/category-summary", nil), "1")
		w := httptest.NewRecorder()

		service.CategorySummary(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"expense_category_data":{}}`, w.Body.String())
	})
}

func exportRowsFixture() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"amount", "description", "category", "expense_date"}).
		AddRow(10.0, "lunch", "Food", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).
		AddRow(5.0, "bus", "Travel", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
}

func TestExpenseService_ExportCSV(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("round trip matches the store rows in order", func(t *testing.T) {
		mock.ExpectQuery("SELECT amount, description, category, expense_date FROM expenses").
			WithArgs(1).
			WillReturnRows(exportRowsFixture())

		r := authedRequest(httptest.NewRequest("GET", "/expenses/export-csv", nil), "1")
		w := httptest.NewRecorder()

		service.ExportCSV(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=Expenses")

		parsed, err := csv.NewReader(w.Body).ReadAll()
		assert.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Amount", "Description", "Category", "Date"},
			{"10.00", "lunch", "Food", "2024-03-01"},
			{"5.00", "bus", "Travel", "2024-03-02"},
		}, parsed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero records exports the header only", func(t *testing.T) {
		mock.ExpectQuery("SELECT amount, description, category, expense_date FROM expenses").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"amount", "description", "category", "expense_date"}))

		r := authedRequest(httptest.NewRequest("GET", "/expenses/export-csv", nil), "1")
		w := httptest.NewRecorder()

		service.ExportCSV(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		parsed, err := csv.NewReader(w.Body).ReadAll()
		assert.NoError(t, err)
		assert.Len(t, parsed, 1)
	})
}

func TestExpenseService_ExportExcel(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	mock.ExpectQuery("SELECT amount, description, category, expense_date FROM expenses").
		WithArgs(1).
		WillReturnRows(exportRowsFixture())

	r := authedRequest(httptest.NewRequest("GET", "/expenses/export-excel", nil), "1")
	w := httptest.NewRecorder()

	service.ExportExcel(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/ms-excel", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=Expenses")
	assert.NotZero(t, w.Body.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_ExportPDF(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewExpenseService(db)

	t.Run("renders rows and the store-side total", func(t *testing.T) {
		mock.ExpectQuery("SELECT amount, description, category, expense_date FROM expenses").
			WithArgs(1).
			WillReturnRows(exportRowsFixture())

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM expenses").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(15.0))

		r := authedRequest(httptest.NewRequest("GET", "/expenses/export-pdf", nil), "1")
		w := httptest.NewRecorder()

		service.ExportPDF(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "inline; attachment; filename=Expenses")
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero records still renders a document", func(t *testing.T) {
		mock.ExpectQuery("SELECT amount, description, category, expense_date FROM expenses").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"amount", "description", "category", "expense_date"}))

		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM expenses").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0.0))

		r := authedRequest(httptest.NewRequest("GET", "/expenses/export-pdf", nil), "1")
		w := httptest.NewRecorder()

		service.ExportPDF(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	})
}
