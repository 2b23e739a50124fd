package webdav

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/marmos91/dittodav/pkg/store"
)

// errRootHasNoParent is returned by GetParentURI for a URI with a single
// path segment.
var errRootHasNoParent = errors.New("cannot get parent of root")

// ============================================================================
// URI helpers
// ============================================================================

// segments splits an escaped path the way URI segment lists are usually
// presented: every segment keeps its trailing slash.
//
//	"/"          -> ["/"]
//	"/dav/a.txt" -> ["/", "dav/", "a.txt"]
//	"/dav/d/"    -> ["/", "dav/", "d/"]
func segments(escapedPath string) []string {
	if escapedPath == "" {
		escapedPath = "/"
	}

	var segs []string
	for len(escapedPath) > 0 {
		i := strings.IndexByte(escapedPath, '/')
		if i < 0 {
			segs = append(segs, escapedPath)
			break
		}
		segs = append(segs, escapedPath[:i+1])
		escapedPath = escapedPath[i+1:]
	}
	return segs
}

// segmentName unescapes a segment and strips trailing slashes and
// backslashes.
func segmentName(segment string) string {
	name, err := url.PathUnescape(segment)
	if err != nil {
		name = segment
	}
	return strings.TrimRight(name, "/\\")
}

// ItemName returns the store name addressed by the last segment of u.
func ItemName(u *url.URL) string {
	segs := segments(u.EscapedPath())
	return segmentName(segs[len(segs)-1])
}

// GetParentURI returns u with its last path segment removed. A trailing
// slash on u is tolerated. Query and fragment are dropped.
//
// Returns:
//   - an error if u denotes the root ("/"), which has no parent
func GetParentURI(u *url.URL) (*url.URL, error) {
	segs := segments(u.EscapedPath())
	if len(segs) <= 1 {
		return nil, errRootHasNoParent
	}

	escaped := strings.Join(segs[:len(segs)-1], "")
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, err
	}

	parent := *u
	parent.Path = unescaped
	parent.RawPath = escaped
	parent.RawQuery = ""
	parent.ForceQuery = false
	parent.Fragment = ""
	parent.RawFragment = ""
	return &parent, nil
}

// ResolvePrefix returns the first prefix that u starts with.
//
// Prefixes are either absolute URLs ("http://host:8080/dav/"), compared with
// the whole request URI, or paths ("/dav/"), compared with its escaped path.
// Matching is case-insensitive and stops at segment boundaries: "/dav"
// matches "/dav" and "/dav/x" but not "/davinci/x".
//
// Returns:
//   - InternalServerError (500) if no prefix matches, which means the server
//     is listening on a root it was not configured for
func ResolvePrefix(u *url.URL, prefixes []string) (string, error) {
	full := strings.ToLower(u.String())
	path := strings.ToLower(u.EscapedPath())

	for _, prefix := range prefixes {
		p := strings.ToLower(prefix)
		if strings.HasPrefix(p, "/") {
			if hasSegmentPrefix(path, p) {
				return prefix, nil
			}
			continue
		}
		if hasSegmentPrefix(full, p) {
			return prefix, nil
		}
	}

	return "", InternalServerError("unable to find correct server root", nil)
}

// hasSegmentPrefix reports whether s starts with p and the match ends on a
// path segment boundary.
func hasSegmentPrefix(s, p string) bool {
	if !strings.HasPrefix(s, p) {
		return false
	}
	if len(s) == len(p) || strings.HasSuffix(p, "/") {
		return true
	}
	switch s[len(p)] {
	case '/', '?', '#':
		return true
	}
	return false
}

// prefixSegmentCount returns how many leading URI segments a prefix covers.
func prefixSegmentCount(prefix string) int {
	if strings.HasPrefix(prefix, "/") {
		return len(segments(prefix))
	}
	pu, err := url.Parse(prefix)
	if err != nil {
		return 1
	}
	return len(segments(pu.EscapedPath()))
}

// ============================================================================
// Item resolution
// ============================================================================

// ResolveItem walks u, minus its server prefix, from the store root.
//
// Each remaining segment is unescaped and trimmed of trailing "/" and "\".
// Every intermediate segment must be a Collection. A URI equal to its prefix
// resolves to the root collection.
//
// Returns:
//   - InternalServerError (500) when no prefix matches
//   - NotFound (404) when a segment is missing or an intermediate is a Document
//   - the raw store error for any other lookup failure
func ResolveItem(ctx context.Context, u *url.URL, prefixes []string, st store.Store) (store.Item, error) {
	prefix, err := ResolvePrefix(u, prefixes)
	if err != nil {
		return nil, err
	}

	root, err := st.Root(ctx)
	if err != nil {
		return nil, err
	}

	segs := segments(u.EscapedPath())
	start := prefixSegmentCount(prefix)
	if start >= len(segs) {
		return root, nil
	}

	var (
		collection = root
		item       store.Item
	)
	for i := start; i < len(segs); i++ {
		name := segmentName(segs[i])

		next, err := collection.Child(ctx, name)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, NotFound("", err)
			}
			return nil, err
		}

		if i == len(segs)-1 {
			item = next
			break
		}

		c, ok := next.(store.Collection)
		if !ok {
			return nil, NotFound("", nil)
		}
		collection = c
	}

	if item == nil {
		return nil, NotFound("", nil)
	}
	return item, nil
}

// ResolveParentCollection resolves the collection containing the item u
// addresses.
//
// A missing parent is a Conflict rather than NotFound: the client asked to
// act on a member of a collection that does not exist.
//
// Returns:
//   - Unauthorized (401) when the store refuses access
//   - Conflict (409) when the parent is missing or is not a Collection
//   - InternalServerError (500) for the root URI or an unknown prefix
func ResolveParentCollection(ctx context.Context, u *url.URL, prefixes []string, st store.Store) (store.Collection, error) {
	parentURI, err := GetParentURI(u)
	if err != nil {
		return nil, InternalServerError("", err)
	}

	item, err := ResolveItem(ctx, parentURI, prefixes, st)
	if err != nil {
		var werr *Error
		switch {
		case store.IsAccessDenied(err):
			return nil, Unauthorized("", err)
		case errors.As(err, &werr) && werr.StatusCode == http.StatusNotFound:
			return nil, Conflict("", err)
		case store.IsNotFound(err):
			return nil, Conflict("", err)
		}
		return nil, err
	}

	collection, ok := item.(store.Collection)
	if !ok {
		return nil, Conflict("", nil)
	}
	return collection, nil
}

// ResolveChildByName looks up the item named by the last segment of u.
//
// Returns:
//   - Unauthorized (401) when the store refuses access
//   - NotFound (404) when there is no such child
func ResolveChildByName(ctx context.Context, collection store.Collection, u *url.URL) (store.Item, error) {
	item, err := collection.Child(ctx, ItemName(u))
	if err != nil {
		switch {
		case store.IsAccessDenied(err):
			return nil, Unauthorized("", err)
		case store.IsNotFound(err):
			return nil, NotFound("", err)
		}
		return nil, err
	}
	return item, nil
}

// lookupChild returns the named child, or nil when the name is free.
func lookupChild(ctx context.Context, collection store.Collection, name string) (store.Item, error) {
	item, err := collection.Child(ctx, name)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}
