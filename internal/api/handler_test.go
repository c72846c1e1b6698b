package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"muleguard/intel-api/internal/api"
	"muleguard/intel-api/internal/engine"
	"muleguard/intel-api/internal/store"
	"muleguard/intel-api/internal/webhook"
)

// ─── Test server setup ────────────────────────────────────────────────────────

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	e := engine.New(mem, nil)
	reg := webhook.NewRegistry()
	n := webhook.New(reg)
	h := api.NewHandler(e, mem, reg, n)
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func del(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	d, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'data' key: %v", env)
	}
	return d
}

func decodeError(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	e, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'error' key: %v", env)
	}
	return e
}

// cycleTxs builds a minimal 3-account cycle as JSON-ready payloads.
func cycleTxs() []map[string]any {
	var txs []map[string]any
	routes := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}
	for i, route := range routes {
		txs = append(txs, map[string]any{
			"transaction_id": fmt.Sprintf("t%d", i+1),
			"sender_id":      route[0],
			"receiver_id":    route[1],
			"amount":         1000.0,
			"timestamp":      fmt.Sprintf("2026-02-25T%02d:00:00Z", 10+i),
		})
	}
	return txs
}

// ─── POST /api/v1/analyze ─────────────────────────────────────────────────────

func TestAnalyzeJSON_DetectsCycle(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/v1/analyze", cycleTxs())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	data := decodeData(t, resp)
	rings, _ := data["fraud_rings"].([]any)
	if len(rings) != 1 {
		t.Fatalf("fraud_rings = %v", data["fraud_rings"])
	}
	accounts, _ := data["suspicious_accounts"].([]any)
	if len(accounts) != 3 {
		t.Fatalf("suspicious_accounts = %v", data["suspicious_accounts"])
	}
}

func TestAnalyzeJSON_RejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/v1/analyze", map[string]any{"not": "an array"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "INVALID_JSON" {
		t.Errorf("error = %v", e)
	}
}

func TestAnalyzeJSON_RejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/v1/analyze", []map[string]any{
		{"transaction_id": "t1", "sender_id": "", "receiver_id": "B", "amount": 10.0, "timestamp": "2026-02-25T10:00:00Z"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "VALIDATION_ERROR" {
		t.Errorf("error = %v", e)
	}
}

// ─── POST /api/v1/upload ──────────────────────────────────────────────────────

func uploadCSV(t *testing.T, srv *httptest.Server, filename, contents string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(contents)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/v1/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	return resp
}

func TestUpload_AnalyzesCSV(t *testing.T) {
	srv := newTestServer(t)

	csvBody := "transaction_id,sender_id,receiver_id,amount,timestamp\n" +
		"t1,A,B,1000,2026-02-25T10:00:00Z\n" +
		"t2,B,C,1000,2026-02-25T11:00:00Z\n" +
		"t3,C,A,1000,2026-02-25T12:00:00Z\n"

	resp := uploadCSV(t, srv, "batch.csv", csvBody)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	data := decodeData(t, resp)
	if data["filename"] != "batch.csv" {
		t.Errorf("filename = %v", data["filename"])
	}
	if data["rows_analyzed"] != float64(3) {
		t.Errorf("rows_analyzed = %v", data["rows_analyzed"])
	}
	if data["upload_id"] == "" {
		t.Error("upload_id missing")
	}
	result, _ := data["result"].(map[string]any)
	if result == nil {
		t.Fatal("result missing")
	}
	summary, _ := result["summary"].(map[string]any)
	if summary["total_transactions"] != float64(3) {
		t.Errorf("summary = %v", summary)
	}
}

func TestUpload_RejectsBadCSV(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadCSV(t, srv, "bad.csv", "transaction_id,sender_id\nt1,A\n")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "INVALID_CSV" {
		t.Errorf("error = %v", e)
	}
}

func TestUpload_RequiresFileField(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/v1/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// ─── GET /api/v1/history ──────────────────────────────────────────────────────

func TestHistory_GrowsAfterAnalysis(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/api/v1/history")
	data := decodeData(t, resp)
	resp.Body.Close()
	if data["total_records"] != float64(0) {
		t.Fatalf("fresh server history = %v", data)
	}

	post(t, srv, "/api/v1/analyze", cycleTxs()).Body.Close()

	resp = get(t, srv, "/api/v1/history")
	defer resp.Body.Close()
	data = decodeData(t, resp)
	if data["total_records"] != float64(3) {
		t.Fatalf("history after cycle analysis = %v", data)
	}
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

func TestWebhooks_RegisterAndDelete(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/v1/webhooks", map[string]any{
		"url":       "http://example.com/hook",
		"threshold": 75,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	data := decodeData(t, resp)
	resp.Body.Close()
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatalf("webhook id missing: %v", data)
	}

	resp = del(t, srv, "/api/v1/webhooks/"+id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = del(t, srv, "/api/v1/webhooks/"+id)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestWebhooks_RejectsMissingURL(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/v1/webhooks", map[string]any{"threshold": 75})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "MISSING_URL" {
		t.Errorf("error = %v", e)
	}
}

// ─── GET /health ──────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/health")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if data := decodeData(t, resp); data["status"] != "ok" {
		t.Errorf("health = %v", data)
	}
}
