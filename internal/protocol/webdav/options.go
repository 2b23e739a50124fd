package webdav

import (
	"net/http"

	"github.com/marmos91/dittodav/pkg/store"
)

// allowedMethods are the methods accepted on any addressed resource.
var allowedMethods = []string{
	http.MethodOptions,
	http.MethodTrace,
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	MethodCopy,
	"PROPFIND",
	"LOCK",
	"UNLOCK",
}

// publicMethods are the methods the server understands globally.
var publicMethods = append(append([]string{}, allowedMethods...),
	"PROPPATCH",
	MethodMkcol,
	http.MethodPut,
	http.MethodDelete,
	MethodMove,
)

// OptionsHandler serves OPTIONS: capability advertisement.
type OptionsHandler struct{}

func (h *OptionsHandler) Names() []string {
	return []string{http.MethodOptions}
}

// Handle always succeeds with 200. Each method is added as its own Allow and
// Public header value. The store is not consulted.
func (h *OptionsHandler) Handle(req Request, resp Response, _ store.Store, _ []string) error {
	for _, m := range allowedMethods {
		resp.Header().Add(HeaderAllow, m)
	}
	for _, m := range publicMethods {
		resp.Header().Add(HeaderPublic, m)
	}

	sendStatus(resp, http.StatusOK)
	return nil
}
