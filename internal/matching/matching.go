package matching

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spigell/cv-screener/internal/candidate"
)

const (
	StrategyFuzzy = "fuzzy"
	StrategyExact = "exact"

	minTokenLength = 4
)

// Matcher picks the resume file that belongs to a candidate.
type Matcher interface {
	Match(r *candidate.Record, files []string) (string, bool)
}

// New returns the matcher registered under strategy.
func New(strategy string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyFuzzy:
		return Fuzzy{}, nil
	case StrategyExact:
		return Exact{}, nil
	default:
		return nil, fmt.Errorf("unsupported matching strategy: %s", strategy)
	}
}

// Fuzzy matches when the filename contains the candidate's full name, or failing
// that, any name token longer than three characters. It can mismatch on common names.
type Fuzzy struct{}

func (Fuzzy) Match(r *candidate.Record, files []string) (string, bool) {
	if r == nil {
		return "", false
	}

	name := Normalize(r.Name)
	if name == "" {
		return "", false
	}

	sorted := slices.Clone(files)
	slices.Sort(sorted)

	stems := make([]string, len(sorted))
	for i, file := range sorted {
		stems[i] = Normalize(stem(file))
	}

	for i, s := range stems {
		if strings.Contains(s, name) {
			return sorted[i], true
		}
	}

	for _, token := range strings.Fields(name) {
		if len([]rune(token)) < minTokenLength {
			continue
		}
		for i, s := range stems {
			if strings.Contains(s, token) {
				return sorted[i], true
			}
		}
	}

	return "", false
}

// Exact matches the file named by the download stage for this row.
type Exact struct{}

func (Exact) Match(r *candidate.Record, files []string) (string, bool) {
	if r == nil {
		return "", false
	}

	want := FileStem(r)
	for _, file := range files {
		if stem(file) == want {
			return file, true
		}
	}
	return "", false
}

// FileStem is the file name, without extension, used when storing a candidate's resume.
func FileStem(r *candidate.Record) string {
	return fmt.Sprintf("%s_%d", SanitizeName(r.Name), r.RowID)
}

// SanitizeName turns a person's name into a lowercase, underscore separated token.
func SanitizeName(name string) string {
	sanitized := strings.ReplaceAll(Normalize(name), " ", "_")
	if sanitized == "" {
		return "candidate"
	}
	return sanitized
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips accents and collapses anything that is not a
// letter or digit into single spaces.
func Normalize(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}

	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func stem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
