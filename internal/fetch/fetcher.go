package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	DefaultMaxSize int64 = 10 << 20
	DefaultTimeout       = 30 * time.Second

	defaultUserAgent = "cv-screener/1.0"
)

var extensions = map[string]string{
	MimePDF:  "pdf",
	MimeDOC:  "doc",
	MimeDOCX: "docx",
}

// Document is a retrieved resume before text extraction.
type Document struct {
	Reference string
	Name      string
	MimeType  string
	Data      []byte
}

// Extension returns the file extension matching the document content type.
func (d *Document) Extension() string {
	if ext, ok := extensions[d.MimeType]; ok {
		return ext
	}
	return "bin"
}

// Options configures a Fetcher. Only BaseDir is commonly set, the rest has defaults.
type Options struct {
	// BaseDir resolves relative local references.
	BaseDir string
	MaxSize int64
	Timeout time.Duration

	HTTPClient *http.Client
	// DriveDownloadURL is the direct download endpoint for Drive file IDs.
	DriveDownloadURL string
	// Drive is used when a Drive link cannot be downloaded directly. Nil disables the fallback.
	Drive DriveClient
	// Storage serves s3:// references. Nil disables them.
	Storage ObjectStorage
	// Transcriber reads documents that have no native text extractor.
	Transcriber ai.Transcriber

	UserAgent string
	Logger    *zap.Logger
}

// Fetcher turns resume references into plain text.
type Fetcher struct {
	baseDir     string
	maxSize     int64
	httpClient  *http.Client
	driveURL    string
	drive       DriveClient
	storage     ObjectStorage
	transcriber ai.Transcriber
	userAgent   string
	logger      *zap.Logger
}

func New(opts Options) *Fetcher {
	f := &Fetcher{
		baseDir:     opts.BaseDir,
		maxSize:     opts.MaxSize,
		httpClient:  opts.HTTPClient,
		driveURL:    opts.DriveDownloadURL,
		drive:       opts.Drive,
		storage:     opts.Storage,
		transcriber: opts.Transcriber,
		userAgent:   opts.UserAgent,
		logger:      opts.Logger,
	}

	if f.maxSize <= 0 {
		f.maxSize = DefaultMaxSize
	}
	if f.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		f.httpClient = &http.Client{Timeout: timeout}
	}
	if f.driveURL == "" {
		f.driveURL = driveDownloadURL
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}

	return f
}

// Fetch retrieves the document behind reference and extracts its text.
func (f *Fetcher) Fetch(ctx context.Context, reference string) (string, error) {
	doc, err := f.Retrieve(ctx, reference)
	if err != nil {
		return "", err
	}
	return f.Extract(ctx, doc)
}

// Retrieve loads the raw document and checks its size and content type.
func (f *Fetcher) Retrieve(ctx context.Context, reference string) (*Document, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, genericError(reference, "empty resume reference", nil)
	}

	var (
		doc *Document
		err error
	)

	switch {
	case isHTTP(reference):
		if id, ok := DriveFileID(reference); ok {
			doc, err = f.retrieveDrive(ctx, reference, id)
		} else {
			doc, err = f.get(ctx, reference, reference)
		}
	case strings.HasPrefix(reference, s3Scheme):
		doc, err = f.retrieveObject(ctx, reference)
	default:
		doc, err = f.retrieveLocal(reference)
	}
	if err != nil {
		return nil, asExtractionError(reference, "retrieve document", err)
	}

	doc.MimeType = detectType(doc.MimeType, doc.Name, doc.Data)
	if _, ok := extensions[doc.MimeType]; !ok {
		return nil, newError(KindUnsupportedType, reference, fmt.Sprintf("content type %q is not accepted", doc.MimeType), nil)
	}

	f.logger.Debug("document retrieved",
		zap.String("reference", reference),
		zap.String("mime_type", doc.MimeType),
		zap.Int("bytes", len(doc.Data)),
	)

	return doc, nil
}

// Download stores the raw document as dir/baseName.<ext> and returns the file name.
func (f *Fetcher) Download(ctx context.Context, reference, dir, baseName string) (string, error) {
	doc, err := f.Retrieve(ctx, reference)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", genericError(reference, "create download directory", err)
	}

	name := baseName + "." + doc.Extension()
	if err := os.WriteFile(filepath.Join(dir, name), doc.Data, 0o644); err != nil {
		return "", genericError(reference, "save document", err)
	}

	return name, nil
}

func (f *Fetcher) retrieveLocal(reference string) (*Document, error) {
	path := reference
	if !filepath.IsAbs(path) && f.baseDir != "" {
		path = filepath.Join(f.baseDir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, genericError(reference, "file not found", nil)
		}
		return nil, genericError(reference, "stat file", err)
	}
	if info.IsDir() {
		return nil, genericError(reference, "reference is a directory", nil)
	}
	if info.Size() > f.maxSize {
		return nil, tooLarge(reference, f.maxSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, genericError(reference, "open file", err)
	}
	defer file.Close()

	data, err := f.readLimited(reference, file)
	if err != nil {
		return nil, err
	}

	return &Document{Reference: reference, Name: filepath.Base(path), Data: data}, nil
}

// readLimited reads at most one byte past the limit so oversized bodies are detected
// even when no length was declared.
func (f *Fetcher) readLimited(reference string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxSize+1))
	if err != nil {
		return nil, genericError(reference, "read document", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, tooLarge(reference, f.maxSize)
	}
	return data, nil
}

func (f *Fetcher) checkDeclaredSize(reference string, size int64) error {
	if size > f.maxSize {
		return tooLarge(reference, f.maxSize)
	}
	return nil
}

// detectType settles the content type from the declared type, the file name and the
// leading bytes, in that order.
func detectType(declared, name string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		declared = strings.ToLower(mediaType)
	}
	if _, ok := extensions[declared]; ok {
		return declared
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".doc":
		return MimeDOC
	case ".docx":
		return MimeDOCX
	}

	sniffed := sniff(data)
	if sniffed == MimePDF {
		return sniffed
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return sniffed
}

func sniff(data []byte) string {
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

func isHTTP(reference string) bool {
	lower := strings.ToLower(reference)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
