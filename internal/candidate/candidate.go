package candidate

import "strings"

// Verdict is the screening outcome stored in the verdict column.
type Verdict string

const (
	VerdictUnset    Verdict = ""
	VerdictApproved Verdict = "Sim"
	VerdictRejected Verdict = "Não"
	VerdictError    Verdict = "Erro"
)

// ParseVerdict maps a raw cell value to a Verdict. Unknown non-empty values are
// kept verbatim so they survive a save and still count as processed.
func ParseVerdict(raw string) Verdict {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "":
		return VerdictUnset
	case "sim":
		return VerdictApproved
	case "não", "nao":
		return VerdictRejected
	case "erro":
		return VerdictError
	default:
		return Verdict(value)
	}
}

func (v Verdict) IsSet() bool {
	return v != VerdictUnset
}

func (v Verdict) String() string {
	return string(v)
}

// DownloadStatus tracks the download stage outcome of a record.
type DownloadStatus string

const (
	DownloadUnset   DownloadStatus = ""
	DownloadSuccess DownloadStatus = "Success"
	DownloadRetry   DownloadStatus = "Retry"
	DownloadFailed  DownloadStatus = "Failed"
)

func ParseDownloadStatus(raw string) DownloadStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return DownloadSuccess
	case "retry":
		return DownloadRetry
	case "failed":
		return DownloadFailed
	default:
		return DownloadUnset
	}
}

// Record is a single row of the candidates table.
type Record struct {
	RowID           int    `mapstructure:"row_id"`
	Timestamp       string `mapstructure:"timestamp"`
	Name            string `mapstructure:"name"`
	ResumeReference string `mapstructure:"resume_reference"`
	Email           string `mapstructure:"email"`
	Phone           string `mapstructure:"phone"`
	LinkedIn        string `mapstructure:"linkedin"`
	FileName        string `mapstructure:"file_name"`
	ErrorMessage    string `mapstructure:"error_message"`
	RetryCount      int    `mapstructure:"retry_count"`

	Verdict        Verdict        `mapstructure:"-"`
	DownloadStatus DownloadStatus `mapstructure:"-"`
}

// Summary holds aggregate counters over a record set.
type Summary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Errors    int `json:"errors"`
	Remaining int `json:"remaining"`
}

// Summarize computes the counters for the given records.
func Summarize(records []*Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if !r.Verdict.IsSet() {
			continue
		}
		s.Processed++
		switch r.Verdict {
		case VerdictApproved:
			s.Approved++
		case VerdictRejected:
			s.Rejected++
		case VerdictError:
			s.Errors++
		}
	}
	s.Remaining = s.Total - s.Processed
	return s
}
