package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"digisale-dash/internal/models"
)

var orderRequired = []string{"Order_ID", "Customer_ID", "Product_ID", "Order_Date", "Quantity", "Status"}

func csvSource(name, content string) Source {
	return Source{Name: name, Reader: strings.NewReader(content)}
}

func TestLoad_CSV(t *testing.T) {
	content := "Order_ID,Customer_ID,Product_ID,Order_Date,Quantity,Status,Channel\n" +
		"O1,C1,P1,2024-01-05,2,Completed,web\n" +
		"O2,C1,P1,2024-01-06,1,Cancelled,\n"

	tbl, err := Load(context.Background(), csvSource("orders.csv", content), orderRequired)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if !tbl.Has("Channel") {
		t.Error("extra column Channel should be passed through")
	}
	if v, ok := tbl.Cell(0, "Channel"); !ok || v != "web" {
		t.Errorf("Cell(0, Channel) = %q, %v; want web, true", v, ok)
	}
	if _, ok := tbl.Cell(1, "Channel"); ok {
		t.Error("empty cell should be null")
	}
	if diff := cmp.Diff([]int{2, 3}, tbl.RowNumbers); diff != "" {
		t.Errorf("row numbers mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CSVStripsBOM(t *testing.T) {
	content := "\uFEFFCustomer_ID,Customer_Segment,City\nC1,VIP,Haifa\n"

	tbl, err := Load(context.Background(), csvSource("customers.csv", content), []string{"Customer_ID", "Customer_Segment", "City"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tbl.Columns[0] != "Customer_ID" {
		t.Errorf("expected BOM stripped from first header, got %q", tbl.Columns[0])
	}
}

func TestLoad_CSVBOMBeforeQuotedHeader(t *testing.T) {
	content := "\uFEFF\"Order_ID\",\"Status\"\nO1,Completed\n"

	tbl, err := Load(context.Background(), csvSource("orders.csv", content), []string{"Order_ID", "Status"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]string{"Order_ID", "Status"}, tbl.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if v, _ := tbl.Cell(0, "Order_ID"); v != "O1" {
		t.Errorf("Order_ID = %q, want O1", v)
	}
}

func TestLoad_SkipsBlankRows(t *testing.T) {
	content := "Customer_ID,Customer_Segment,City\nC1,VIP,Haifa\n,,\nC2,New,Eilat\n"

	tbl, err := Load(context.Background(), csvSource("customers.csv", content), []string{"Customer_ID"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", tbl.Len())
	}
}

func TestLoad_SchemaValidation(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		required    []string
		wantMissing []string
	}{
		{
			name:        "all present",
			header:      "A,B,C",
			required:    []string{"A", "C"},
			wantMissing: nil,
		},
		{
			name:        "one missing",
			header:      "A,B",
			required:    []string{"A", "C"},
			wantMissing: []string{"C"},
		},
		{
			name:        "several missing keep required order",
			header:      "B",
			required:    []string{"D", "A", "B", "C"},
			wantMissing: []string{"D", "A", "C"},
		},
		{
			name:        "case sensitive",
			header:      "order_id",
			required:    []string{"Order_ID"},
			wantMissing: []string{"Order_ID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), csvSource("x.csv", tt.header+"\n"), tt.required)

			if tt.wantMissing == nil {
				if err != nil {
					t.Fatalf("Load() unexpected error: %v", err)
				}
				return
			}

			var sve *SchemaValidationError
			if !errors.As(err, &sve) {
				t.Fatalf("expected *SchemaValidationError, got %T: %v", err, err)
			}
			if diff := cmp.Diff(tt.wantMissing, sve.Missing); diff != "" {
				t.Errorf("Missing mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(strings.Split(tt.header, ","), sve.Found); diff != "" {
				t.Errorf("Found mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	for _, name := range []string{"orders.json", "orders", "orders.txt"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), csvSource(name, "Order_ID\nO1\n"), []string{"Order_ID"})
			var ufe *UnsupportedFormatError
			if !errors.As(err, &ufe) {
				t.Fatalf("expected *UnsupportedFormatError, got %T: %v", err, err)
			}
			if ufe.Source != name {
				t.Errorf("Source = %q, want %q", ufe.Source, name)
			}
		})
	}
}

func TestLoad_FormatHintOverridesName(t *testing.T) {
	src := Source{Name: "upload.bin", Format: ".CSV", Reader: strings.NewReader("Order_ID\nO1\n")}
	if _, err := Load(context.Background(), src, []string{"Order_ID"}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantRow int
	}{
		{
			name:    "empty csv",
			src:     csvSource("empty.csv", ""),
			wantRow: 0,
		},
		{
			name:    "ragged row",
			src:     csvSource("ragged.csv", "A,B\n1,2\n3\n"),
			wantRow: 3,
		},
		{
			name:    "bad quote",
			src:     csvSource("quote.csv", "A,B\n\"1,2\n"),
			wantRow: 0,
		},
		{
			name: "garbage xlsx",
			src:  Source{Name: "broken.xlsx", Reader: strings.NewReader("not a zip")},
		},
		{
			name: "garbage xls",
			src:  Source{Name: "broken.xls", Reader: strings.NewReader("not a workbook")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.src, []string{"A"})
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if pe.Source != tt.src.Name {
				t.Errorf("Source = %q, want %q", pe.Source, tt.src.Name)
			}
			if tt.wantRow > 0 && pe.Row != tt.wantRow {
				t.Errorf("Row = %d, want %d", pe.Row, tt.wantRow)
			}
		})
	}
}

func TestLoad_EmptyCSVWrapsErrEmptyInput(t *testing.T) {
	_, err := Load(context.Background(), csvSource("empty.csv", ""), []string{"A"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestLoad_RequiresColumns(t *testing.T) {
	if _, err := Load(context.Background(), csvSource("x.csv", "A\n"), nil); err == nil {
		t.Error("expected error for empty required set")
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, csvSource("x.csv", "A\n1\n"), []string{"A"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Product_ID", "Product_Name", "Category", "Unit_Price", "Cost_Price"},
		{"P1", "Kettle", "Kitchen", 100, 60},
		{"P2", "Lamp", "Home", 45.5, 20},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	src := Source{Name: "products.xlsx", Reader: bytes.NewReader(buf.Bytes())}
	tbl, err := Load(context.Background(), src, []string{"Product_ID", "Category", "Unit_Price", "Cost_Price"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if v, _ := tbl.Cell(1, "Unit_Price"); v != "45.5" {
		t.Errorf("Unit_Price = %q, want 45.5", v)
	}

	products, err := DecodeProducts(tbl)
	if err != nil {
		t.Fatalf("DecodeProducts() error: %v", err)
	}
	if got := products[0].UnitPrice.Decimal.String(); got != "100" {
		t.Errorf("UnitPrice = %s, want 100", got)
	}
}

func TestLoad_XLSXFormattedNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Order_ID", "Customer_ID", "Product_ID", "Order_Date", "Quantity", "Discount", "Status"},
		{"O1", "C1", "P1", "2024-01-05", 1200, 0.1, "Completed"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		t.Fatal(err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle("Sheet1", "E2", "E2", thousands); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle("Sheet1", "F2", "F2", percent); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	src := Source{Name: "orders.xlsx", Reader: bytes.NewReader(buf.Bytes())}
	tbl, err := Load(context.Background(), src, orderRequired)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	orders, err := DecodeOrders(tbl, DefaultStatusMap())
	if err != nil {
		t.Fatalf("DecodeOrders() error: %v", err)
	}
	if orders[0].Quantity != 1200 {
		t.Errorf("Quantity = %d, want 1200", orders[0].Quantity)
	}
	if got := orders[0].Discount.String(); got != "0.1" {
		t.Errorf("Discount = %s, want 0.1", got)
	}
}

func TestLoad_XLS(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "orders.xls"))
	if err != nil {
		t.Fatal(err)
	}

	src := Source{Name: "orders.xls", Reader: bytes.NewReader(data)}
	tbl, err := Load(context.Background(), src, orderRequired)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// the sheet has no record for its third row
	if diff := cmp.Diff([]int{2, 4}, tbl.RowNumbers); diff != "" {
		t.Errorf("row numbers mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tbl.Cell(1, "Discount"); ok {
		t.Error("blank Discount cell should be null")
	}

	orders, err := DecodeOrders(tbl, DefaultStatusMap())
	if err != nil {
		t.Fatalf("DecodeOrders() error: %v", err)
	}
	want := []struct {
		id       string
		quantity int
		discount string
		status   models.Status
	}{
		{"O1", 2, "0.1", models.StatusCompleted},
		{"O2", 1, "0", models.StatusCancelled},
	}
	if len(orders) != len(want) {
		t.Fatalf("expected %d orders, got %d", len(want), len(orders))
	}
	for i, w := range want {
		o := orders[i]
		if o.OrderID != w.id || o.Quantity != w.quantity || o.Discount.String() != w.discount || o.Status != w.status {
			t.Errorf("order %d = %+v, want %+v", i, o, w)
		}
	}
	if orders[0].OrderDate != "2024-01-05" || orders[1].Channel != "Store" {
		t.Errorf("text cells not read: %+v", orders)
	}
}

func TestLoad_XLSTruncated(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "orders.xls"))
	if err != nil {
		t.Fatal(err)
	}

	// keep the container header, allocation table and directory only
	src := Source{Name: "orders.xls", Reader: bytes.NewReader(data[:1536])}
	_, err = Load(context.Background(), src, orderRequired)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if pe.Source != "orders.xls" {
		t.Errorf("Source = %q, want orders.xls", pe.Source)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte("Customer_ID,Customer_Segment,City\nC1,VIP,Haifa\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer f.Close()

	if src.Name != "customers.csv" {
		t.Errorf("Name = %q, want customers.csv", src.Name)
	}
	if _, err := Load(context.Background(), src, []string{"Customer_ID"}); err != nil {
		t.Errorf("Load() error: %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		hint    string
		want    Format
		wantErr bool
	}{
		{".csv", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{".xlsx", FormatXLSX, false},
		{".xlsm", FormatXLSX, false},
		{".xls", FormatXLS, false},
		{".ods", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.hint)
		if got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.hint, got, tt.want)
		}
		if !tt.wantErr {
			if err != nil {
				t.Errorf("DetectFormat(%q) unexpected error: %v", tt.hint, err)
			}
			continue
		}
		var ufe *UnsupportedFormatError
		if !errors.As(err, &ufe) || ufe.Hint != tt.hint {
			t.Errorf("DetectFormat(%q) error = %v, want *UnsupportedFormatError", tt.hint, err)
		}
	}
}
