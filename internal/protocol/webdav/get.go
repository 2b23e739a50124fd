package webdav

import (
	"context"
	"net/http"
	"net/url"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// GetHandler serves GET: the content of a document.
type GetHandler struct{}

func (h *GetHandler) Names() []string {
	return []string{http.MethodGet}
}

// Handle streams the addressed document to the response.
//
// Process:
//  1. Resolve the parent collection (409 if missing)
//  2. Resolve the item (404 if missing or not a Document)
//  3. Open the read stream and answer 200
//  4. Copy the content in 4096-byte chunks; a zero-size document has no body
//
// The read stream is closed on every path.
func (h *GetHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) (err error) {
	ctx := req.Context()

	doc, err := resolveDocument(ctx, req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	r, err := doc.OpenRead(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sendStatus(resp, http.StatusOK)

	size := doc.Size()
	if size == 0 {
		return nil
	}

	n, err := copyChunks(resp.Body(), r, -1)
	if err != nil {
		logger.Warn("GET: stream aborted: path=%s sent=%d size=%d error=%v", doc.Path(), n, size, err)
		return err
	}

	logger.Debug("GET: path=%s size=%d", doc.Path(), n)
	return nil
}

// HeadHandler serves HEAD: the headers GET would send, without a body.
type HeadHandler struct{}

func (h *HeadHandler) Names() []string {
	return []string{http.MethodHead}
}

// Handle answers 200 with Content-Type and Last-Modified (UTC HTTP-date) for
// an existing document.
func (h *HeadHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) error {
	doc, err := resolveDocument(req.Context(), req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	resp.Header().Set(HeaderContentType, "text/html")
	resp.Header().Set(HeaderLastModified, doc.ModTime().UTC().Format(http.TimeFormat))
	sendStatus(resp, http.StatusOK)
	return nil
}

// resolveDocument resolves u to a Document, parent first.
func resolveDocument(ctx context.Context, u *url.URL, prefixes []string, st store.Store) (store.Document, error) {
	parent, err := ResolveParentCollection(ctx, u, prefixes, st)
	if err != nil {
		return nil, err
	}

	item, err := ResolveChildByName(ctx, parent, u)
	if err != nil {
		return nil, err
	}

	switch it := item.(type) {
	case store.Document:
		return it, nil
	default:
		return nil, NotFound("", nil)
	}
}
