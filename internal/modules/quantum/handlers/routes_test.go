package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	handler := setupTestHandler()
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		router.Route("/api", handler.RegisterRoutes)
	})

	req := httptest.NewRequest("POST", "/api/quantum/circuit", strings.NewReader(`{"sequence":"GY"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
