package webdav

import (
	"errors"
	"io"
	"net/http"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// MethodMkcol is the WebDAV collection-creation method.
const MethodMkcol = "MKCOL"

// MkcolHandler serves MKCOL: create an empty collection.
type MkcolHandler struct{}

func (h *MkcolHandler) Names() []string {
	return []string{MethodMkcol}
}

// Handle creates the addressed collection.
//
// Process:
//  1. A request entity is refused (415) before anything else
//  2. Resolve the parent collection (409 if missing)
//  3. A taken name is refused (405) and the existing item is left alone
//  4. Create the collection and answer 201
func (h *MkcolHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) error {
	ctx := req.Context()

	hasBody, err := requestHasBody(req)
	if err != nil {
		return err
	}
	if hasBody {
		return UnsupportedMediaType("MKCOL request must not carry a body", nil)
	}

	parent, err := ResolveParentCollection(ctx, req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	name := ItemName(req.URL())
	existing, err := lookupChild(ctx, parent, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return MethodNotAllowed("", nil)
	}

	collection, err := parent.CreateCollection(ctx, name)
	if err != nil {
		return err
	}

	logger.Debug("MKCOL: path=%s", collection.Path())
	sendStatus(resp, http.StatusCreated)
	return nil
}

// requestHasBody reports whether req carries an entity. With an unknown
// length (chunked transfer) one byte is read to find out.
func requestHasBody(req Request) (bool, error) {
	if req.ContentLength() > 0 {
		return true, nil
	}
	if req.ContentLength() == 0 || req.Body() == nil {
		return false, nil
	}

	var probe [1]byte
	n, err := req.Body().Read(probe[:])
	if n > 0 {
		return true, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return false, nil
}
