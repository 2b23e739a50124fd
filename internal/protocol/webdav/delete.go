package webdav

import (
	"net/http"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// DeleteHandler serves DELETE: remove a document or a collection subtree.
type DeleteHandler struct{}

func (h *DeleteHandler) Names() []string {
	return []string{http.MethodDelete}
}

func (h *DeleteHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) error {
	ctx := req.Context()

	parent, err := ResolveParentCollection(ctx, req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	item, err := ResolveChildByName(ctx, parent, req.URL())
	if err != nil {
		return err
	}

	if err := parent.Delete(ctx, item); err != nil {
		return err
	}

	logger.Debug("DELETE: path=%s", item.Path())
	sendStatus(resp, http.StatusOK)
	return nil
}
