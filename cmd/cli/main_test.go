package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iho/rentledger/internal/adapter/http/middleware"
	"github.com/iho/rentledger/internal/infrastructure/auth"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()

	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.body); err != nil {
				t.Errorf("request body is not json: %s", raw)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	return srv, rec
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{"total_amount":"120.00"}`)

	out, err := execute(t, "--url", srv.URL, "--owner", "owner-1",
		"preview", "--property", "prop-1", "--from", "2024-01-01", "--to", "2024-02-01")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if rec.method != http.MethodPost || rec.path != "/api/v1/settlements/preview" {
		t.Fatalf("unexpected request %s %s", rec.method, rec.path)
	}
	if rec.header.Get(middleware.OwnerHeader) != "owner-1" {
		t.Fatalf("expected owner header, got %q", rec.header.Get(middleware.OwnerHeader))
	}
	if rec.body["property_id"] != "prop-1" || rec.body["start_date"] != "2024-01-01" || rec.body["approach"] != "MONTHLY" {
		t.Fatalf("unexpected body %v", rec.body)
	}
	if out != "{\n  \"total_amount\": \"120.00\"\n}\n" {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSettlementVoidCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{"status":"VOIDED"}`)

	_, err := execute(t, "--url", srv.URL, "--token", "tok",
		"settlement", "void", "set-1", "--reason", "wrong meter value")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if rec.path != "/api/v1/settlements/set-1/void" {
		t.Fatalf("unexpected path %s", rec.path)
	}
	if rec.header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", rec.header.Get("Authorization"))
	}
	if rec.body["reason"] != "wrong meter value" {
		t.Fatalf("unexpected body %v", rec.body)
	}
}

func TestSettlementVoidCmd_RequiresReason(t *testing.T) {
	if _, err := execute(t, "settlement", "void", "set-1"); err == nil {
		t.Fatal("expected missing --reason to fail")
	}
}

func TestSettlementAdjustCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{}`)

	_, err := execute(t, "--url", srv.URL, "settlement", "adjust", "set-1", "share-2", "--amount", "45.50")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if rec.method != http.MethodPatch || rec.path != "/api/v1/settlements/set-1/shares/share-2" {
		t.Fatalf("unexpected request %s %s", rec.method, rec.path)
	}
	if rec.body["adjusted_amount"] != "45.50" {
		t.Fatalf("unexpected body %v", rec.body)
	}
}

func TestSettlementListCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `[]`)

	_, err := execute(t, "--url", srv.URL, "settlement", "list", "prop-1", "--limit", "10")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if rec.path != "/api/v1/properties/prop-1/settlements" || rec.query != "limit=10&offset=0" {
		t.Fatalf("unexpected request %s?%s", rec.path, rec.query)
	}
}

func TestMeterExchangeCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusCreated, `{}`)

	_, err := execute(t, "--url", srv.URL, "meter", "exchange", "m-1",
		"--date", "2024-03-15", "--final", "1234.5", "--number", "NEW-1", "--price", "0.42")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if rec.path != "/api/v1/meters/m-1/exchange" {
		t.Fatalf("unexpected path %s", rec.path)
	}
	newMeter, ok := rec.body["new_meter"].(map[string]any)
	if !ok {
		t.Fatalf("expected new_meter object, got %v", rec.body)
	}
	if rec.body["final_reading"] != "1234.5" || rec.body["initial_reading"] != "0" || newMeter["number"] != "NEW-1" || newMeter["price_per_unit"] != "0.42" {
		t.Fatalf("unexpected body %v", rec.body)
	}
}

func TestReconcileCmd(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{"consistent":true}`)

	if _, err := execute(t, "--url", srv.URL, "reconcile", "--property", "prop-1"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if rec.path != "/api/v1/properties/prop-1/reconciliation" {
		t.Fatalf("unexpected path %s", rec.path)
	}

	if _, err := execute(t, "--url", srv.URL, "reconcile"); err == nil {
		t.Fatal("expected reconcile without target to fail")
	}
}

func TestAPIErrorIsReported(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusConflict, `{"error":"settlement is not a draft","kind":"invalid_state"}`)

	_, err := execute(t, "--url", srv.URL, "settlement", "finalize", "set-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "settlement is not a draft") || !strings.Contains(err.Error(), "409") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSettlementExportCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/settlements/set-1/export.xlsx" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("PK-fake-workbook"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := execute(t, "--url", srv.URL, "settlement", "export", "set-1", "-o", path)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "PK-fake-workbook" {
		t.Fatalf("unexpected file contents %q", data)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "owner-9", "--secret", "s3cret", "--email", "o@example.com")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Owner().ID != "owner-9" {
		t.Fatalf("expected owner-9, got %s", claims.Owner().ID)
	}
}

func TestPrintJSON_PassesThroughNonJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, []byte("plain")); err != nil {
		t.Fatalf("printJSON: %v", err)
	}
	if buf.String() != "plain" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
