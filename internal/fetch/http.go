package fetch

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"
)

// get downloads url directly. reference is the value taken from the sheet and is
// only used to label errors.
func (f *Fetcher) get(ctx context.Context, reference, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, genericError(reference, "build request", err)
	}

	resp, err := f.request(f.setHeaders(req))
	if err != nil {
		return nil, genericError(reference, "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, genericError(reference, fmt.Sprintf("bad status: %s", resp.Status), nil)
	}

	if err := f.checkDeclaredSize(reference, resp.ContentLength); err != nil {
		return nil, err
	}

	data, err := f.readLimited(reference, resp.Body)
	if err != nil {
		return nil, err
	}

	return &Document{
		Reference: reference,
		Name:      responseName(resp),
		MimeType:  resp.Header.Get("Content-Type"),
		Data:      data,
	}, nil
}

func (f *Fetcher) request(req *http.Request) (*http.Response, error) {
	f.logger.Debug("make request", zap.String("url", req.URL.String()))
	return f.httpClient.Do(req)
}

func (f *Fetcher) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", strings.Join([]string{MimePDF, MimeDOCX, MimeDOC, "*/*;q=0.1"}, ", "))
	return req
}

func responseName(resp *http.Response) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return path.Base(resp.Request.URL.Path)
	}
	return ""
}

func isHTML(doc *Document) bool {
	if mediaType, _, err := mime.ParseMediaType(doc.MimeType); err == nil && mediaType == "text/html" {
		return true
	}
	return sniff(doc.Data) == "text/html"
}
