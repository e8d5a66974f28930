package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	driveDownloadURL = "https://drive.google.com/uc"
	googleDocMime    = "application/vnd.google-apps.document"
)

var driveFilePath = regexp.MustCompile(`/(?:file/)?d/([A-Za-z0-9_-]+)`)

// DriveFileID extracts the file ID from Drive share links such as
// open?id=<id>, uc?id=<id> and /file/d/<id>/view.
func DriveFileID(reference string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(reference))
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host != "drive.google.com" && host != "docs.google.com" {
		return "", false
	}

	if id := u.Query().Get("id"); id != "" {
		return id, true
	}
	if match := driveFilePath.FindStringSubmatch(u.Path); match != nil {
		return match[1], true
	}
	return "", false
}

// DriveFile is the metadata of a Drive file.
type DriveFile struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// DriveClient reads files through the authenticated Drive API.
type DriveClient interface {
	Metadata(ctx context.Context, fileID string) (*DriveFile, error)
	Open(ctx context.Context, file *DriveFile) (io.ReadCloser, error)
}

// retrieveDrive tries the public download link first. A consent page, a bad status or a
// transport failure switches to the Drive API.
func (f *Fetcher) retrieveDrive(ctx context.Context, reference, id string) (*Document, error) {
	direct := f.driveURL + "?" + url.Values{
		"export":  {"download"},
		"id":      {id},
		"confirm": {"t"},
	}.Encode()

	doc, err := f.get(ctx, reference, direct)
	switch {
	case err == nil && !isHTML(doc):
		return doc, nil
	case errors.Is(err, ErrFileTooLarge):
		return nil, err
	case ctx.Err() != nil:
		return nil, genericError(reference, "download interrupted", ctx.Err())
	}

	reason := "direct download returned an html page"
	if err != nil {
		reason = err.Error()
	}

	if f.drive == nil {
		return nil, genericError(reference, "direct download failed and drive api is not configured", errors.New(reason))
	}

	f.logger.Info("direct download failed, using drive api",
		zap.String("file_id", id),
		zap.String("reason", reason),
	)

	return f.retrieveDriveAPI(ctx, reference, id)
}

func (f *Fetcher) retrieveDriveAPI(ctx context.Context, reference, id string) (*Document, error) {
	file, err := f.drive.Metadata(ctx, id)
	if err != nil {
		return nil, genericError(reference, "drive api metadata", err)
	}

	if err := f.checkDeclaredSize(reference, file.Size); err != nil {
		return nil, err
	}

	body, err := f.drive.Open(ctx, file)
	if err != nil {
		return nil, genericError(reference, "drive api download", err)
	}
	defer body.Close()

	data, err := f.readLimited(reference, body)
	if err != nil {
		return nil, err
	}

	mimeType := file.MimeType
	if mimeType == googleDocMime {
		mimeType = MimeDOCX
	}

	return &Document{Reference: reference, Name: file.Name, MimeType: mimeType, Data: data}, nil
}

// DriveConfig points to the OAuth client credentials and the token cache.
type DriveConfig struct {
	CredentialsFile string
	TokenFile       string
	// AskCode shows the authorization URL and returns the code pasted back by the user.
	// It is only called when no token is cached.
	AskCode func(authURL string) (string, error)
}

// DriveAPI is a DriveClient backed by google.golang.org/api/drive/v3.
// It authorizes on first use, so runs that never need the fallback never prompt.
type DriveAPI struct {
	config  DriveConfig
	logger  *zap.Logger
	service *drive.Service
}

func NewDriveAPI(config DriveConfig, logger *zap.Logger) *DriveAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriveAPI{config: config, logger: logger}
}

func (d *DriveAPI) Metadata(ctx context.Context, fileID string) (*DriveFile, error) {
	srv, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	file, err := srv.Files.Get(fileID).
		Fields("id", "name", "mimeType", "size").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	return &DriveFile{ID: file.Id, Name: file.Name, MimeType: file.MimeType, Size: file.Size}, nil
}

// Open streams the file content. Google Docs are exported as DOCX.
func (d *DriveAPI) Open(ctx context.Context, file *DriveFile) (io.ReadCloser, error) {
	srv, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	if file.MimeType == googleDocMime {
		resp, err = srv.Files.Export(file.ID, MimeDOCX).Context(ctx).Download()
	} else {
		resp, err = srv.Files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

func (d *DriveAPI) connect(ctx context.Context) (*drive.Service, error) {
	if d.service != nil {
		return d.service, nil
	}

	raw, err := os.ReadFile(d.config.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials %q: %w", d.config.CredentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(raw, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	token, err := d.token(ctx, conf)
	if err != nil {
		return nil, err
	}

	source := &cachedTokenSource{
		base:   conf.TokenSource(ctx, token),
		path:   d.config.TokenFile,
		last:   token.AccessToken,
		logger: d.logger,
	}

	srv, err := drive.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	d.service = srv
	return srv, nil
}

func (d *DriveAPI) token(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	token, err := readToken(d.config.TokenFile)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		d.logger.Warn("ignoring unreadable drive token cache", zap.String("path", d.config.TokenFile), zap.Error(err))
	}

	if d.config.AskCode == nil {
		return nil, errors.New("drive token is not cached and interactive authorization is disabled")
	}

	code, err := d.config.AskCode(conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	if err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}

	token, err = conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := writeToken(d.config.TokenFile, token); err != nil {
		d.logger.Warn("drive token was not cached", zap.Error(err))
	}

	return token, nil
}

// cachedTokenSource writes refreshed tokens back to the cache file.
type cachedTokenSource struct {
	base   oauth2.TokenSource
	path   string
	last   string
	logger *zap.Logger
}

func (s *cachedTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := writeToken(s.path, token); err != nil {
			s.logger.Warn("refreshed drive token was not cached", zap.Error(err))
		}
	}

	return token, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func writeToken(path string, token *oauth2.Token) error {
	if path == "" {
		return errors.New("token cache path is empty")
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
