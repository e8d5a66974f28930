package sheet

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-screener/internal/candidate"
)

var defaultHeader = []any{"Carimbo de data/hora", "Adicione seu Currículo", "Nome Completo", "Email"}

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	return rows
}

func TestLoadFailsOnMissingRequiredColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	writeWorkbook(t, path, [][]any{
		{"Carimbo de data/hora", "Email"},
		{"2024-01-01", "a@example.com"},
	})

	_, err := Load(path, Options{})
	if err == nil {
		t.Fatal("expected schema error")
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %T: %v", err, err)
	}

	if len(schemaErr.Missing) != 2 {
		t.Fatalf("expected two missing columns, got %v", schemaErr.Missing)
	}
}

func TestLoadCreatesVerdictColumnAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	writeWorkbook(t, path, [][]any{
		defaultHeader,
		{"2024-01-01", "https://drive.google.com/open?id=abc", "Ana Souza", "ana@example.com"},
		{"2024-01-02", "joao.pdf", "João Lima", ""},
	})

	store, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	rows := readRows(t, path)
	if got := rows[0][len(rows[0])-1]; got != "Primeira Fase" {
		t.Fatalf("expected verdict column to be persisted, header is %v", rows[0])
	}

	records := store.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].RowID != 2 || records[1].RowID != 3 {
		t.Fatalf("unexpected row ids: %d, %d", records[0].RowID, records[1].RowID)
	}

	if records[0].Name != "Ana Souza" || records[0].Email != "ana@example.com" {
		t.Fatalf("unexpected record: %+v", records[0])
	}

	if records[1].ResumeReference != "joao.pdf" {
		t.Fatalf("unexpected reference: %q", records[1].ResumeReference)
	}

	if summary := store.Summarize(); summary.Total != 2 || summary.Remaining != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPersistRoundTripKeepsVerdicts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.xlsx")
	output := filepath.Join(dir, "output.xlsx")

	writeWorkbook(t, input, [][]any{
		append(append([]any{}, defaultHeader...), "Primeira Fase", "Observações"),
		{"2024-01-01", "a.pdf", "Ana", "", "", "keep me"},
		{"2024-01-02", "b.pdf", "Bruno", "", "Sim", ""},
		{},
		{"2024-01-03", "c.pdf", "Carla", "", "", ""},
	})

	store, err := Load(input, Options{Output: output})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.Records()) != 3 {
		t.Fatalf("expected blank rows to be skipped, got %d records", len(store.Records()))
	}

	if err := store.SetVerdict(2, candidate.VerdictRejected); err != nil {
		t.Fatalf("set verdict: %v", err)
	}
	if err := store.SetVerdict(5, candidate.VerdictError); err != nil {
		t.Fatalf("set verdict: %v", err)
	}
	if err := store.SetVerdict(42, candidate.VerdictError); err == nil {
		t.Fatal("expected error for unknown row")
	}

	if err := store.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}
	// Persisting twice must produce the same content.
	if err := store.Persist(); err != nil {
		t.Fatalf("second persist: %v", err)
	}
	store.Close()

	reloaded, err := Load(output, Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.Close()

	got := reloaded.Summarize()
	expect := candidate.Summary{Total: 3, Processed: 3, Approved: 1, Rejected: 1, Errors: 1}
	if got != expect {
		t.Fatalf("expected %+v, got %+v", expect, got)
	}

	rows := readRows(t, output)
	if rows[1][5] != "keep me" {
		t.Fatalf("expected unmanaged column to be preserved, got %v", rows[1])
	}

	inputRows := readRows(t, input)
	if inputRows[1][4] != "" {
		t.Fatalf("expected input table to stay untouched, got %v", inputRows[1])
	}
}

func TestSetDownloadAddsColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	writeWorkbook(t, path, [][]any{
		append(append([]any{}, defaultHeader...), "Primeira Fase", "Retry_Count"),
		{"2024-01-01", "https://example.com/a.pdf", "Ana", "", "", "2"},
		{"2024-01-02", "https://example.com/b.pdf", "Bia", "", "", "many"},
	})

	store, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	first, _ := store.Record(2)
	if first.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", first.RetryCount)
	}

	second, _ := store.Record(3)
	if second.RetryCount != 0 || second.Name != "Bia" {
		t.Fatalf("expected malformed retry count to be ignored, got %+v", second)
	}

	if err := store.SetDownload(2, DownloadUpdate{RetryCount: 1}); err == nil {
		t.Fatal("expected error when retry count decreases")
	}

	err = store.SetDownload(2, DownloadUpdate{
		Status:       candidate.DownloadRetry,
		ErrorMessage: "timeout",
		RetryCount:   3,
	})
	if err != nil {
		t.Fatalf("set download: %v", err)
	}

	if err := store.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	reloaded, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.Close()

	r, ok := reloaded.Record(2)
	if !ok {
		t.Fatal("row 2 not found after reload")
	}
	if r.DownloadStatus != candidate.DownloadRetry || r.ErrorMessage != "timeout" || r.RetryCount != 3 {
		t.Fatalf("unexpected reloaded record: %+v", r)
	}
}

func TestReadOnlyLoadLeavesTableUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	writeWorkbook(t, path, [][]any{
		defaultHeader,
		{"2024-01-01", "a.pdf", "Ana", ""},
	})

	store, err := Load(path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	if summary := store.Summarize(); summary.Total != 1 || summary.Remaining != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if err := store.Persist(); err == nil {
		t.Fatal("expected persist to fail on a read-only table")
	}

	if rows := readRows(t, path); len(rows[0]) != len(defaultHeader) {
		t.Fatalf("expected header to stay as written, got %v", rows[0])
	}
}
