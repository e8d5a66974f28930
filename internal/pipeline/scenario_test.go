package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/fetch"
	"github.com/spigell/cv-screener/internal/matching"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/sheet"
)

type echoTranscriber struct{ calls int }

func (e *echoTranscriber) Transcribe(_ context.Context, content string) (string, error) {
	e.calls++
	return content, nil
}

// nameJudge says yes to every question about resumes mentioning approved.
type nameJudge struct {
	approved string
	calls    int
}

func (j *nameJudge) Ask(_ context.Context, _, prompt string) (*ai.Answer, error) {
	j.calls++
	if strings.Contains(prompt, j.approved) {
		return &ai.Answer{Affirmative: true, Raw: "Sim"}, nil
	}
	return &ai.Answer{Raw: "Não"}, nil
}

func writeTable(t *testing.T, path string, rows [][]any) {
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
		t.Fatalf("save: %v", err)
	}
}

type screenDeps struct {
	judge       *nameJudge
	transcriber *echoTranscriber
}

func screenTable(t *testing.T, input, output, resumes string, deps screenDeps) candidate.Summary {
	t.Helper()

	store, err := sheet.Load(input, sheet.Options{Output: output})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer store.Close()

	classifier, err := screening.New(screening.ModeDual, deps.judge, screening.DefaultCriteria(), nil)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}

	fetcher := fetch.New(fetch.Options{BaseDir: resumes, Transcriber: deps.transcriber})
	resolver := NewLocalResolver(resumes, matching.Fuzzy{}, store.Records(), nil)

	summary, err := NewRunner(store, resolver, fetcher, classifier, Options{Delay: time.Millisecond}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return summary
}

func TestScreenTableEndToEnd(t *testing.T) {
	dir := t.TempDir()
	resumes := filepath.Join(dir, "cvs")
	if err := os.Mkdir(resumes, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files := map[string]string{
		"ana.doc":   "Ana Souza, graduanda em Engenharia na Universidade Federal, iniciação científica.",
		"bruno.doc": "Bruno Lima, formado em Administração por universidade privada.",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(resumes, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write resume: %v", err)
		}
	}

	input := filepath.Join(dir, "aplication_updated.xlsx")
	output := filepath.Join(dir, "aplication_processed.xlsx")
	writeTable(t, input, [][]any{
		{"Carimbo de data/hora", "Adicione seu Currículo", "Nome Completo", "Email"},
		{"2024-01-01 10:00", "ana.doc", "Ana Souza", "ana@example.com"},
		{"2024-01-01 11:00", "bruno.doc", "Bruno Lima", "bruno@example.com"},
		{"2024-01-01 12:00", "carla.pdf", "Carla Dias", ""},
	})

	deps := screenDeps{judge: &nameJudge{approved: "Ana Souza"}, transcriber: &echoTranscriber{}}
	summary := screenTable(t, input, output, resumes, deps)

	expect := candidate.Summary{Total: 3, Processed: 3, Approved: 1, Rejected: 1, Errors: 1}
	if summary != expect {
		t.Fatalf("expected %+v, got %+v", expect, summary)
	}

	// Ana passes both gates, Bruno stops at eligibility, Carla never reaches the judge.
	if deps.judge.calls != 3 {
		t.Fatalf("expected 3 judge calls, got %d", deps.judge.calls)
	}

	f, err := excelize.OpenFile(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	rows, err := f.GetRows("Sheet1")
	f.Close()
	if err != nil {
		t.Fatalf("rows: %v", err)
	}

	verdicts := []string{rows[1][4], rows[2][4], rows[3][4]}
	if verdicts[0] != "Sim" || verdicts[1] != "Não" || verdicts[2] != "Erro" {
		t.Fatalf("unexpected verdict cells: %v", verdicts)
	}

	rerun := screenDeps{judge: &nameJudge{approved: "Ana Souza"}, transcriber: &echoTranscriber{}}
	again := screenTable(t, output, output, resumes, rerun)
	if again != expect {
		t.Fatalf("expected re-run to keep %+v, got %+v", expect, again)
	}
	if rerun.judge.calls != 0 || rerun.transcriber.calls != 0 {
		t.Fatalf("re-run must not process anything, got judge=%d transcriber=%d", rerun.judge.calls, rerun.transcriber.calls)
	}
}

func TestRunRejectsOversizedResume(t *testing.T) {
	const size = 11 << 20

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", fetch.MimePDF)
		w.Header().Set("Content-Length", strconv.Itoa(size))
		w.Write(make([]byte, size))
	}))
	defer server.Close()

	store := &fakeStore{records: []*candidate.Record{{RowID: 2, Name: "Big", ResumeReference: server.URL + "/big.pdf"}}}
	transcriber := &echoTranscriber{}
	fetcher := &recordingFetcher{inner: fetch.New(fetch.Options{Transcriber: transcriber})}
	classifier := &fakeClassifier{}

	summary, err := NewRunner(store, passthroughResolver{}, fetcher, classifier, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !errors.Is(fetcher.err, fetch.ErrFileTooLarge) {
		t.Fatalf("expected too large, got %v", fetcher.err)
	}
	if transcriber.calls != 0 || classifier.calls != 0 {
		t.Fatal("oversized resumes must not be extracted or classified")
	}
	if summary.Errors != 1 || store.records[0].Verdict != candidate.VerdictError {
		t.Fatalf("unexpected outcome: %+v", summary)
	}
}

type recordingFetcher struct {
	inner *fetch.Fetcher
	err   error
}

func (r *recordingFetcher) Fetch(ctx context.Context, reference string) (string, error) {
	text, err := r.inner.Fetch(ctx, reference)
	r.err = err
	return text, err
}
