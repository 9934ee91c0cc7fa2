package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"digisale-dash/internal/loader"
	"digisale-dash/internal/merge"
	"digisale-dash/internal/schema"
	"digisale-dash/internal/services"
)

func TestFromPipeline(t *testing.T) {
	schemaErr := &services.StageError{
		Stage: "load:orders",
		Err: &loader.SchemaValidationError{
			Source:  "orders.csv",
			Missing: []string{"Status"},
			Found:   []string{"Order_ID", "Customer_ID"},
		},
	}

	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
		wantStage  string
	}{
		{"no snapshot", services.ErrNoSnapshot, CodeNotFound, http.StatusNotFound, ""},
		{"schema", schemaErr, CodeValidation, http.StatusBadRequest, "load:orders"},
		{"unsupported", &loader.UnsupportedFormatError{Source: "x.pdf", Hint: "x.pdf"}, CodeValidation, http.StatusBadRequest, ""},
		{"parse", &services.StageError{Stage: "load:products", Err: &loader.ParseError{Source: "p.csv", Row: 3, Column: "Unit_Price", Err: fmt.Errorf("bad")}}, CodeValidation, http.StatusBadRequest, "load:products"},
		{"duplicate", &loader.DuplicateKeyError{Source: "o.csv", Column: "Order_ID", Keys: []string{"O1"}}, CodeValidation, http.StatusBadRequest, ""},
		{"join", &services.StageError{Stage: "merge", Err: &merge.JoinAmbiguityError{Kind: schema.Products, Column: "Product_ID", Keys: []string{"P1"}}}, CodeValidation, http.StatusBadRequest, "merge"},
		{"too large", &http.MaxBytesError{Limit: 10}, CodeTooLarge, http.StatusRequestEntityTooLarge, ""},
		{"unknown", fmt.Errorf("disk on fire"), CodeInternal, http.StatusInternalServerError, ""},
		{"already app error", NotFound("gone"), CodeNotFound, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromPipeline(tt.err)
			if got.Code != tt.wantCode || got.StatusCode != tt.wantStatus {
				t.Errorf("FromPipeline() = %s/%d, want %s/%d", got.Code, got.StatusCode, tt.wantCode, tt.wantStatus)
			}
			if got.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", got.Stage, tt.wantStage)
			}
		})
	}
}

func TestFromPipeline_SchemaFields(t *testing.T) {
	err := &loader.SchemaValidationError{Source: "orders.csv", Missing: []string{"Status"}, Found: []string{"Order_ID"}}

	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	WriteError(w, logger, FromPipeline(err), "req-1")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
			Details   string `json:"details"`
			Fields    struct {
				Missing []string `json:"missing"`
				Found   []string `json:"found"`
			} `json:"fields"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error.Code != string(CodeValidation) || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if len(resp.Error.Fields.Missing) != 1 || resp.Error.Fields.Missing[0] != "Status" {
		t.Errorf("missing columns not reported: %+v", resp.Error.Fields)
	}
	if len(resp.Error.Fields.Found) != 1 || resp.Error.Details == "" {
		t.Errorf("found columns or details not reported: %+v", resp.Error)
	}
}

func TestWriteError_PlainErrorIsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	WriteError(w, logger, fmt.Errorf("boom"), "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"n": 1}, map[string]string{"Cache-Control": "no-store"})

	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("custom header not set")
	}
	var resp SuccessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || !resp.Success {
		t.Errorf("unexpected response: %+v, %v", resp, err)
	}
}
