package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
)

// Options configures how a workbook is loaded and where it is saved.
type Options struct {
	// Sheet is the worksheet holding candidates. Empty means the first one.
	Sheet string
	// Output is the path Persist writes to. Empty means the loaded path.
	Output  string
	Columns Columns
	Logger  *zap.Logger

	// ReadOnly loads the table for inspection. Nothing is added and Persist fails.
	ReadOnly bool
}

// DownloadUpdate carries the download stage outcome for a single record.
type DownloadUpdate struct {
	FileName     string
	Status       candidate.DownloadStatus
	ErrorMessage string
	RetryCount   int
}

// Store keeps the candidate records of one workbook in memory.
type Store struct {
	file    *excelize.File
	sheet   string
	output  string
	columns Columns
	logger  *zap.Logger

	header  map[string]int
	width   int
	records []*candidate.Record
	byRow   map[int]*candidate.Record

	downloads bool
	readOnly  bool
}

// Load opens the workbook at path and decodes its rows into records.
// A missing verdict column is created and persisted right away.
func Load(path string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}

	sheet := strings.TrimSpace(opts.Sheet)
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, fmt.Errorf("workbook %q has no sheets", path)
		}
		sheet = sheets[0]
	}

	output := strings.TrimSpace(opts.Output)
	if output == "" {
		output = path
	}

	s := &Store{
		file:    f,
		sheet:   sheet,
		output:  output,
		columns: opts.Columns.WithDefaults(),
		logger:  logger.With(zap.String("sheet", sheet)),
		header:  make(map[string]int),
		byRow:   make(map[int]*candidate.Record),

		readOnly: opts.ReadOnly,
	}

	if err := s.load(); err != nil {
		f.Close()
		return nil, err
	}

	if _, ok := s.header[s.columns.Verdict]; !ok && !s.readOnly {
		s.logger.Info("adding missing column", zap.String("column", s.columns.Verdict))
		if _, err := s.ensureColumn(s.columns.Verdict); err != nil {
			f.Close()
			return nil, err
		}
		if err := s.Persist(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) load() error {
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", s.sheet, err)
	}

	if len(rows) > 0 {
		for i, name := range rows[0] {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, dup := s.header[name]; !dup {
				s.header[name] = i + 1
			}
		}
	}
	for _, row := range rows {
		if len(row) > s.width {
			s.width = len(row)
		}
	}

	var missing []string
	for _, name := range s.columns.required() {
		if _, ok := s.header[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Sheet: s.sheet, Missing: missing}
	}

	_, hasStatus := s.header[s.columns.DownloadStatus]
	_, hasFile := s.header[s.columns.FileName]
	s.downloads = hasStatus || hasFile

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}

		rowID := i + 1
		record, err := s.decode(rowID, row)
		if err != nil {
			return err
		}

		s.records = append(s.records, record)
		s.byRow[rowID] = record
	}

	s.logger.Debug("sheet loaded", zap.Int("records", len(s.records)), zap.Int("columns", len(s.header)))
	return nil
}

func (s *Store) decode(rowID int, row []string) (*candidate.Record, error) {
	cell := func(name string) string {
		idx, ok := s.header[name]
		if !ok || idx-1 >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx-1])
	}

	raw := map[string]any{
		"row_id":           rowID,
		"timestamp":        cell(s.columns.Timestamp),
		"name":             cell(s.columns.Name),
		"resume_reference": cell(s.columns.ResumeLink),
		"email":            cell(s.columns.Email),
		"phone":            cell(s.columns.Phone),
		"linkedin":         cell(s.columns.LinkedIn),
		"file_name":        cell(s.columns.FileName),
		"error_message":    cell(s.columns.ErrorMessage),
		"retry_count":      cell(s.columns.RetryCount),
	}

	record := &candidate.Record{}
	if err := decodeRecord(raw, record); err != nil {
		s.logger.Warn("ignoring malformed retry count",
			zap.Int("row", rowID),
			zap.String("value", cell(s.columns.RetryCount)),
			zap.Error(err),
		)
		delete(raw, "retry_count")
		record = &candidate.Record{}
		if err := decodeRecord(raw, record); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", rowID, err)
		}
	}

	record.Verdict = candidate.ParseVerdict(cell(s.columns.Verdict))
	record.DownloadStatus = candidate.ParseDownloadStatus(cell(s.columns.DownloadStatus))

	return record, nil
}

func decodeRecord(raw map[string]any, record *candidate.Record) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           record,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// Records returns the records in sheet order.
func (s *Store) Records() []*candidate.Record {
	return s.records
}

// Record returns the record stored at the given row.
func (s *Store) Record(rowID int) (*candidate.Record, bool) {
	r, ok := s.byRow[rowID]
	return r, ok
}

// Output returns the path Persist writes to.
func (s *Store) Output() string {
	return s.output
}

// Summarize computes processing counters from the current state.
func (s *Store) Summarize() candidate.Summary {
	return candidate.Summarize(s.records)
}

// SetVerdict updates a record in memory. Call Persist to save it.
func (s *Store) SetVerdict(rowID int, verdict candidate.Verdict) error {
	r, ok := s.byRow[rowID]
	if !ok {
		return fmt.Errorf("row %d not found", rowID)
	}
	r.Verdict = verdict
	return nil
}

// SetDownload records the download outcome of a row in memory.
func (s *Store) SetDownload(rowID int, update DownloadUpdate) error {
	r, ok := s.byRow[rowID]
	if !ok {
		return fmt.Errorf("row %d not found", rowID)
	}

	if update.RetryCount < r.RetryCount {
		return fmt.Errorf("row %d: retry count cannot decrease from %d to %d", rowID, r.RetryCount, update.RetryCount)
	}

	r.FileName = update.FileName
	r.DownloadStatus = update.Status
	r.ErrorMessage = update.ErrorMessage
	r.RetryCount = update.RetryCount
	s.downloads = true

	return nil
}

// Persist writes every record into the workbook and saves it atomically.
func (s *Store) Persist() error {
	if s.readOnly {
		return errors.New("table was loaded read-only")
	}

	for _, name := range s.managedColumns() {
		if _, err := s.ensureColumn(name); err != nil {
			return err
		}
	}

	for _, r := range s.records {
		if err := s.setCell(s.columns.Verdict, r.RowID, r.Verdict.String()); err != nil {
			return err
		}

		if !s.downloads {
			continue
		}

		values := []struct {
			column string
			value  any
		}{
			{s.columns.FileName, r.FileName},
			{s.columns.DownloadStatus, string(r.DownloadStatus)},
			{s.columns.ErrorMessage, r.ErrorMessage},
			{s.columns.RetryCount, r.RetryCount},
		}
		for _, v := range values {
			if err := s.setCell(v.column, r.RowID, v.value); err != nil {
				return err
			}
		}
	}

	if err := s.save(); err != nil {
		return err
	}

	s.logger.Info("progress saved", zap.String("path", s.output), zap.Int("records", len(s.records)))
	return nil
}

// Close releases the underlying workbook.
func (s *Store) Close() error {
	return s.file.Close()
}

func (s *Store) managedColumns() []string {
	columns := []string{s.columns.Verdict}
	if s.downloads {
		columns = append(columns, s.columns.FileName, s.columns.DownloadStatus, s.columns.ErrorMessage, s.columns.RetryCount)
	}
	return columns
}

func (s *Store) ensureColumn(name string) (int, error) {
	if idx, ok := s.header[name]; ok {
		return idx, nil
	}

	idx := s.width + 1
	cell, err := excelize.CoordinatesToCellName(idx, 1)
	if err != nil {
		return 0, err
	}
	if err := s.file.SetCellValue(s.sheet, cell, name); err != nil {
		return 0, fmt.Errorf("add column %q: %w", name, err)
	}

	s.header[name] = idx
	s.width = idx
	return idx, nil
}

func (s *Store) setCell(column string, row int, value any) error {
	idx, ok := s.header[column]
	if !ok {
		return fmt.Errorf("column %q not found", column)
	}

	cell, err := excelize.CoordinatesToCellName(idx, row)
	if err != nil {
		return err
	}

	if err := s.file.SetCellValue(s.sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	return nil
}

// save writes into a temporary file first so a crash never leaves a truncated table.
func (s *Store) save() error {
	dir := filepath.Dir(s.output)
	tmp, err := os.CreateTemp(dir, ".cv-screener-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := s.file.Write(tmp)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write workbook: %w", err)
	}

	if err := os.Rename(tmpName, s.output); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %q: %w", s.output, err)
	}

	return nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
