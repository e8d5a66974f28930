package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/matching"
)

// LocalResolver prefers resumes already present in the resumes directory.
// The order is the downloaded file name, then a matched file, then the table reference.
// Returned file names are relative to the directory.
// Files owned by another row of records are never offered to the matcher.
type LocalResolver struct {
	dir     string
	matcher matching.Matcher
	logger  *zap.Logger

	// owners maps a downloaded file name or download stem to its row.
	owners map[string]int

	files  []string
	listed bool
}

func NewLocalResolver(dir string, matcher matching.Matcher, records []*candidate.Record, logger *zap.Logger) *LocalResolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	owners := make(map[string]int, 2*len(records))
	for _, r := range records {
		if r.FileName != "" {
			owners[r.FileName] = r.RowID
		}
		owners[matching.FileStem(r)] = r.RowID
	}

	return &LocalResolver{dir: dir, matcher: matcher, logger: logger, owners: owners}
}

func (l *LocalResolver) Resolve(r *candidate.Record) (string, error) {
	if r.FileName != "" {
		if info, err := os.Stat(filepath.Join(l.dir, r.FileName)); err == nil && !info.IsDir() {
			return r.FileName, nil
		}
		l.logger.Debug("downloaded file is missing", zap.Int("row", r.RowID), zap.String("file", r.FileName))
	}

	if l.matcher != nil && r.DownloadStatus != candidate.DownloadFailed {
		if file, ok := l.matcher.Match(r, l.unclaimed(r.RowID)); ok {
			l.logger.Debug("resume matched by name", zap.Int("row", r.RowID), zap.String("file", file))
			return file, nil
		}
	}

	if r.ResumeReference != "" {
		return r.ResumeReference, nil
	}

	return "", errors.New("candidate has no resume reference")
}

func (l *LocalResolver) unclaimed(row int) []string {
	var files []string
	for _, file := range l.list() {
		if l.ownedByOther(file, row) {
			continue
		}
		files = append(files, file)
	}
	return files
}

func (l *LocalResolver) ownedByOther(file string, row int) bool {
	if owner, ok := l.owners[file]; ok && owner != row {
		return true
	}
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	owner, ok := l.owners[stem]
	return ok && owner != row
}

func (l *LocalResolver) list() []string {
	if l.listed {
		return l.files
	}
	l.listed = true

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		l.logger.Warn("cannot list resumes directory", zap.String("dir", l.dir), zap.Error(err))
		return nil
	}

	for _, e := range entries {
		if e.Type().IsRegular() {
			l.files = append(l.files, e.Name())
		}
	}
	return l.files
}
