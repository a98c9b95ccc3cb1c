package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/config"
	"github.com/hypervisual/fincore/internal/extractor"
	"github.com/hypervisual/fincore/internal/matcher"
	"github.com/hypervisual/fincore/internal/suggester"
)

func testServer() *Server {
	identity := classifier.Identity{Names: []string{"HYPERVISUAL"}}
	logger := zap.NewNop()
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, Pipeline{
		Classifier:    classifier.New(classifier.DefaultConfig(identity), logger),
		Extractor:     extractor.New(extractor.DefaultConfig(identity), logger),
		Matcher:       matcher.New(matcher.DefaultConfig(), logger),
		Suggester:     suggester.New(logger),
		MinConfidence: 0.6,
	}, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealthCheck(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestClassifyEndpoint(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/classify", gin.H{
		"text": "HYPERVISUAL\nFACTURE N° 7\nDestinataire: PUBLIGRAMA SA\nTotal: 100.00",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "client_invoice", data["doc_type"])
}

func TestClassifyRequiresText(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/classify", gin.H{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestVATEndpoint(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/vat", gin.H{
		"net":        13500.00,
		"rate_class": "normal",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.InDelta(t, 1093.50, data["vat_amount"].(float64), 1e-9)
	assert.InDelta(t, 14593.50, data["gross"].(float64), 1e-9)

	rec, _ = doJSON(t, s, http.MethodPost, "/api/v1/vat", gin.H{
		"net":        100.0,
		"gross":      108.1,
		"rate_class": "normal",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReferenceEndpoint(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/reference/validate", gin.H{
		"reference": "21 00000 00003 13947 14300 09017",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["valid"])
}

func TestMatchEndpoint(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/match", gin.H{
		"transactions": []gin.H{{
			"id":          "T-1",
			"amount":      1081.00,
			"currency":    "CHF",
			"date":        time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
			"description": "VIREMENT PUBLIGRAMA SA FACTURE 2025-0042",
		}},
		"invoices": []gin.H{{
			"id":         "INV-1",
			"amount":     1081.00,
			"currency":   "CHF",
			"due_date":   time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
			"reference":  "2025-0042",
			"party_name": "Publigrama SA",
		}},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	commits := data["commits"].([]interface{})
	require.Len(t, commits, 1)

	// Invalid currency is rejected before scoring.
	rec, _ = doJSON(t, s, http.MethodPost, "/api/v1/match", gin.H{
		"transactions": []gin.H{},
		"invoices": []gin.H{{
			"id": "INV-1", "amount": 10.0, "currency": "chf",
			"due_date": time.Now(), "party_name": "X",
		}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileWithoutStore(t *testing.T) {
	s := testServer()

	rec, resp := doJSON(t, s, http.MethodPost, "/api/v1/reconcile", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}
