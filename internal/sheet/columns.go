package sheet

import (
	"fmt"
	"strings"
)

// Columns maps record fields to header names of the candidates sheet.
type Columns struct {
	Timestamp      string `mapstructure:"timestamp"`
	ResumeLink     string `mapstructure:"resume-link"`
	Name           string `mapstructure:"name"`
	Email          string `mapstructure:"email"`
	Phone          string `mapstructure:"phone"`
	LinkedIn       string `mapstructure:"linkedin"`
	Verdict        string `mapstructure:"verdict"`
	FileName       string `mapstructure:"file-name"`
	DownloadStatus string `mapstructure:"download-status"`
	ErrorMessage   string `mapstructure:"error-message"`
	RetryCount     string `mapstructure:"retry-count"`
}

// DefaultColumns returns the header names used by the application form export.
func DefaultColumns() Columns {
	return Columns{
		Timestamp:      "Carimbo de data/hora",
		ResumeLink:     "Adicione seu Currículo",
		Name:           "Nome Completo",
		Email:          "Email",
		Phone:          "Telefone",
		LinkedIn:       "Link do LinkedIn",
		Verdict:        "Primeira Fase",
		FileName:       "PDF_Filename",
		DownloadStatus: "Download_Status",
		ErrorMessage:   "Error_Message",
		RetryCount:     "Retry_Count",
	}
}

// WithDefaults fills empty names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	pick := func(v, def string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return def
	}

	return Columns{
		Timestamp:      pick(c.Timestamp, d.Timestamp),
		ResumeLink:     pick(c.ResumeLink, d.ResumeLink),
		Name:           pick(c.Name, d.Name),
		Email:          pick(c.Email, d.Email),
		Phone:          pick(c.Phone, d.Phone),
		LinkedIn:       pick(c.LinkedIn, d.LinkedIn),
		Verdict:        pick(c.Verdict, d.Verdict),
		FileName:       pick(c.FileName, d.FileName),
		DownloadStatus: pick(c.DownloadStatus, d.DownloadStatus),
		ErrorMessage:   pick(c.ErrorMessage, d.ErrorMessage),
		RetryCount:     pick(c.RetryCount, d.RetryCount),
	}
}

func (c Columns) required() []string {
	return []string{c.Timestamp, c.ResumeLink, c.Name}
}

// SchemaError reports required columns absent from the sheet header.
type SchemaError struct {
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("sheet %q is missing required columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
}
