package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/pipeline"
)

func testServer(t *testing.T, csvPath string) *Server {
	t.Helper()
	cfg := config.Config{
		MatchMinScore:  0.60,
		MatchMargin:    0.15,
		CatalogCSVPath: csvPath,
	}
	store, err := catalog.NewStore([]internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
		{SKU: "B-200", Name: "Steel Bracket", Price: 1.2, Stock: 50, MinOrderQty: 5},
	})
	require.NoError(t, err)
	return New(cfg, nil, pipeline.NewIntakeService(cfg, store), store)
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, "")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["products"])
}

func TestParseEmailEndpoint(t *testing.T) {
	srv := testServer(t, "")

	email := "Subject: Order\n\nHello,\n\n- 4 x Blue Widget\n\nThanks,\nAlice Johnson\n"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "order.eml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(email))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/parse-email", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var order internal.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Len(t, order.Items, 1)
	assert.Equal(t, internal.StatusValid, order.Items[0].Status)
	assert.Equal(t, 4, order.Items[0].RequestedQty)
	require.NotNil(t, order.Items[0].SKU)
	assert.Equal(t, "W-100", *order.Items[0].SKU)
}

func TestParseEmailEndpointEmptyBody(t *testing.T) {
	srv := testServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/parse-email", strings.NewReader("   "))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestValidateOrderEndpoint(t *testing.T) {
	srv := testServer(t, "")
	payload := `{"items":[{"lineNo":1,"source":"email_text","rawLine":"3 x Steel Bracket","description":"Steel Bracket","qty":3}]}`

	req := httptest.NewRequest(http.MethodPost, "/validate-order", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var order internal.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Len(t, order.Items, 1)
	// Qty 3 is under the bracket's minimum order of 5.
	assert.Equal(t, internal.StatusBelowMinimumOrder, order.Items[0].Status)
}

func TestValidateOrderEndpointRejectsEmpty(t *testing.T) {
	srv := testServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/validate-order", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMergeOrdersEndpointNoOrders(t *testing.T) {
	srv := testServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/merge-orders", strings.NewReader(`{"orders":[]}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogReloadEndpoint(t *testing.T) {
	tmp := t.TempDir()
	csvPath := filepath.Join(tmp, "catalog.csv")
	csv := "Product_Code,Product_Name,Description,Price,Available_in_Stock,Min_Order_Quantity\n" +
		"W-100,Blue Widget,A widget,2.50,100,1\n" +
		"B-200,Steel Bracket,A bracket,1.20,50,5\n" +
		"P-300,Copper Pipe,A pipe,4.00,10,2\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	srv := testServer(t, csvPath)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/catalog/reload", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["products"])
}
