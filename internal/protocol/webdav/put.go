package webdav

import (
	"fmt"
	"net/http"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// PutHandler serves PUT: create or replace a document.
type PutHandler struct{}

func (h *PutHandler) Names() []string {
	return []string{http.MethodPut}
}

// Handle stores the request entity as the addressed document.
//
// Process:
//  1. Resolve the parent collection (409 if missing)
//  2. An existing Collection of that name is refused (405); an existing
//     Document is overwritten
//  3. Content-Length must be present and non-negative (411), checked before
//     the store is touched
//  4. Create the document if needed, then copy exactly Content-Length bytes
//     in 4096-byte chunks into a truncating write stream
//  5. Answer 201
func (h *PutHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) (err error) {
	ctx := req.Context()

	// ========================================================================
	// Step 1: Resolve the target
	// ========================================================================

	parent, err := ResolveParentCollection(ctx, req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	name := ItemName(req.URL())
	existing, err := lookupChild(ctx, parent, name)
	if err != nil {
		return err
	}

	var doc store.Document
	switch it := existing.(type) {
	case nil:
	case store.Document:
		doc = it
	default:
		return MethodNotAllowed(fmt.Sprintf("%s is a collection", it.Path()), nil)
	}

	// ========================================================================
	// Step 2: Validate the entity length
	// ========================================================================

	length := req.ContentLength()
	if length < 0 {
		return LengthRequired("", nil)
	}

	// ========================================================================
	// Step 3: Write the content
	// ========================================================================

	if doc == nil {
		doc, err = parent.CreateDocument(ctx, name)
		if err != nil {
			return err
		}
	}

	w, err := doc.OpenWrite(ctx, false)
	if err != nil {
		return err
	}

	body := req.Body()
	if body == nil {
		body = http.NoBody
	}

	n, err := copyChunks(w, body, length)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Warn("PUT: write failed: path=%s written=%d expected=%d error=%v", doc.Path(), n, length, err)
		return err
	}

	logger.Debug("PUT: path=%s size=%d new=%t", doc.Path(), n, existing == nil)

	sendStatus(resp, http.StatusCreated)
	return nil
}
