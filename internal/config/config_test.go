package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8084 || cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Pipeline.ErrorLogFile != "error_log.md" {
		t.Errorf("ErrorLogFile = %q, want error_log.md", cfg.Pipeline.ErrorLogFile)
	}
	if cfg.Pipeline.DefaultDimension != "City" {
		t.Errorf("DefaultDimension = %q, want City", cfg.Pipeline.DefaultDimension)
	}
	if cfg.Pipeline.Preload() {
		t.Error("Preload should be false without input files")
	}
	if cfg.Address() != "localhost:8084" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoad_PipelineFromEnv(t *testing.T) {
	t.Setenv("ORDERS_FILE", "data/orders.csv")
	t.Setenv("CUSTOMERS_FILE", "data/customers.xlsx")
	t.Setenv("PRODUCTS_FILE", "data/products.xls")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("STATUS_COMPLETED_LITERALS", "Done, Shipped ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Pipeline.Preload() {
		t.Error("Preload should be true when all inputs are set")
	}
	if cfg.Pipeline.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d, want 1024", cfg.Pipeline.MaxUploadBytes)
	}
	if diff := cmp.Diff([]string{"Done", "Shipped"}, cfg.Pipeline.CompletedStatus); diff != "" {
		t.Errorf("CompletedStatus mismatch (-want +got):\n%s", diff)
	}
	if cfg.Pipeline.CancelledStatus != nil {
		t.Errorf("CancelledStatus = %v, want nil", cfg.Pipeline.CancelledStatus)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "server port"},
		{"bad log level", map[string]string{"LOG_LEVEL": "trace"}, "invalid log level"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "invalid log format"},
		{"zero upload limit", map[string]string{"MAX_UPLOAD_BYTES": "0"}, "max upload bytes"},
		{"partial inputs", map[string]string{"ORDERS_FILE": "orders.csv"}, "must be set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
