package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/trulyexpense/backend/internal/models"
)

func TestLookupService_ListCategories(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLookupService(db)

	mock.ExpectQuery("SELECT id, name FROM categories ORDER BY name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Food").
			AddRow(2, "Travel"))

	r := httptest.NewRequest("GET", "/categories", nil)
	w := httptest.NewRecorder()

	service.ListCategories(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Categories []models.Category `json:"categories"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Categories, 2)
	assert.Equal(t, "Food", response.Categories[0].Name)
}

func TestLookupService_ListSources(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLookupService(db)

	mock.ExpectQuery("SELECT id, name FROM sources ORDER BY name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Salary"))

	r := httptest.NewRequest("GET", "/sources", nil)
	w := httptest.NewRecorder()

	service.ListSources(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Sources []models.Source `json:"sources"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Sources, 1)
}

func TestLookupService_GetPreferences(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLookupService(db)

	t.Run("stored preference is returned", func(t *testing.T) {
		mock.ExpectQuery("SELECT currency FROM user_preferences").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"currency"}).AddRow("EUR"))

		r := authedRequest(httptest.NewRequest("GET", "/preferences", nil), "1")
		w := httptest.NewRecorder()

		service.GetPreferences(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var pref models.UserPreference
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
		assert.Equal(t, "EUR", pref.Currency)
	})

	t.Run("no stored preference falls back to the default", func(t *testing.T) {
		mock.ExpectQuery("SELECT currency FROM user_preferences").
			WithArgs(1).
			WillReturnError(sql.ErrNoRows)

		r := authedRequest(httptest.NewRequest("GET", "/preferences", nil), "1")
		w := httptest.NewRecorder()

		service.GetPreferences(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var pref models.UserPreference
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
		assert.Equal(t, models.DefaultCurrency, pref.Currency)
	})
}

func TestLookupService_UpdatePreferences(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLookupService(db)

	t.Run("upsert stores the new currency", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO user_preferences").
			WithArgs(1, "GBP").
			WillReturnResult(sqlmock.NewResult(0, 1))

		body := []byte(`{"currency":"GBP"}`)
		r := authedRequest(httptest.NewRequest("PUT", "/preferences", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.UpdatePreferences(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var pref models.UserPreference
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
		assert.Equal(t, "GBP", pref.Currency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty currency fails validation", func(t *testing.T) {
		body := []byte(`{"currency":""}`)
		r := authedRequest(httptest.NewRequest("PUT", "/preferences", bytes.NewBuffer(body)), "1")
		w := httptest.NewRecorder()

		service.UpdatePreferences(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
