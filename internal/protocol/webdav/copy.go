package webdav

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

const (
	MethodCopy = "COPY"
	MethodMove = "MOVE"
)

// CopyHandler serves COPY: duplicate a document or collection.
type CopyHandler struct{}

func (h *CopyHandler) Names() []string {
	return []string{MethodCopy}
}

// Handle copies the addressed item to the Destination URI.
//
// Depth: 0 copies a collection without its members; any other Depth,
// including a missing header, copies the whole subtree. Documents always
// carry their content.
//
// Status:
//   - 201 when the destination did not exist
//   - 204 when an existing destination was replaced (Overwrite: T)
//   - 403 when source and destination are the same item, or the
//     destination lies inside the source
//   - 412 when the destination exists and Overwrite is not "T"
//   - 409 when Destination is missing or its parent collection does not exist
func (h *CopyHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) error {
	ctx := req.Context()

	source, err := ResolveItem(ctx, req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	switch source.(type) {
	case store.Document, store.Collection:
	default:
		return MethodNotAllowed("", nil)
	}

	deep := ParseDepth(req.Header()) != DepthZero

	target, err := prepareTransfer(ctx, req, source, prefixes, st)
	if err != nil {
		return err
	}

	if err := target.parent.CopyItemHere(ctx, source, target.name, deep); err != nil {
		return err
	}

	logger.Debug("COPY: from=%s to=%s deep=%t overwrite=%t", source.Path(), target.path, deep, !target.isNew)
	sendStatus(resp, target.status())
	return nil
}

// MoveHandler serves MOVE: relocate a document or collection with its
// whole subtree. The Depth header is ignored.
type MoveHandler struct{}

func (h *MoveHandler) Names() []string {
	return []string{MethodMove}
}

// Handle moves the addressed item to the Destination URI. Status codes match
// CopyHandler.
func (h *MoveHandler) Handle(req Request, resp Response, st store.Store, prefixes []string) error {
	ctx := req.Context()

	source, err := ResolveItem(ctx, req.URL(), prefixes, st)
	if err != nil {
		return err
	}

	switch source.(type) {
	case store.Document, store.Collection:
	default:
		return MethodNotAllowed("", nil)
	}

	if source.Path() == store.RootPath {
		return Forbidden("cannot move the root collection", nil)
	}

	target, err := prepareTransfer(ctx, req, source, prefixes, st)
	if err != nil {
		return err
	}

	if err := target.parent.MoveItemHere(ctx, source, target.name); err != nil {
		return err
	}

	logger.Debug("MOVE: from=%s to=%s overwrite=%t", source.Path(), target.path, !target.isNew)
	sendStatus(resp, target.status())
	return nil
}

// transferTarget is the resolved destination of a COPY or MOVE.
type transferTarget struct {
	parent store.Collection
	name   string
	path   string
	isNew  bool
}

func (t *transferTarget) status() int {
	if t.isNew {
		return http.StatusCreated
	}
	return http.StatusNoContent
}

// prepareTransfer resolves the Destination of a COPY or MOVE and applies the
// overwrite rules. An existing destination is deleted only once every
// precondition holds.
//
// Steps:
//  1. Parse Destination (409 if missing) and resolve its parent (409 if missing)
//  2. Refuse a destination inside the source subtree (403)
//  3. If the name is taken: same item -> 403, Overwrite not "T" -> 412,
//     otherwise delete it and mark the transfer as an overwrite
func prepareTransfer(ctx context.Context, req Request, source store.Item, prefixes []string, st store.Store) (*transferTarget, error) {
	destURI, err := ParseDestination(req.Header(), req.URL())
	if err != nil {
		return nil, err
	}

	parent, err := ResolveParentCollection(ctx, destURI, prefixes, st)
	if err != nil {
		return nil, err
	}

	target := &transferTarget{
		parent: parent,
		name:   ItemName(destURI),
		isNew:  true,
	}
	target.path = store.JoinPath(parent.Path(), target.name)

	if _, isCollection := source.(store.Collection); isCollection && store.IsDescendant(target.path, source.Path()) {
		return nil, Forbidden(fmt.Sprintf("destination %s is inside %s", target.path, source.Path()), nil)
	}

	existing, err := lookupChild(ctx, parent, target.name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return target, nil
	}

	if existing.Path() == source.Path() {
		return nil, Forbidden("source and destination are the same", nil)
	}
	if !ParseOverwrite(req.Header()) {
		return nil, PreconditionFailed("", nil)
	}

	if err := parent.Delete(ctx, existing); err != nil {
		return nil, err
	}
	target.isNew = false
	return target, nil
}
