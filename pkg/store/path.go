package store

import (
	"path"
	"strings"
)

// RootPath is the path of every store's root collection.
const RootPath = "/"

// JoinPath returns the path of child name inside the collection at dir.
func JoinPath(dir, name string) string {
	if dir == "" || dir == RootPath {
		return RootPath + name
	}
	return dir + "/" + name
}

// ParentPath returns the path of the collection containing p.
func ParentPath(p string) string {
	if p == "" || p == RootPath {
		return RootPath
	}
	return path.Dir(p)
}

// BaseName returns the last segment of p, or "" for the root.
func BaseName(p string) string {
	if p == "" || p == RootPath {
		return ""
	}
	return path.Base(p)
}

// IsDescendant reports whether p lies strictly inside the collection at dir.
func IsDescendant(p, dir string) bool {
	if dir == RootPath {
		return p != RootPath
	}
	return strings.HasPrefix(p, dir+"/")
}

// ValidateName checks a child name for use in any backend.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return &StoreError{Code: ErrInvalidName, Message: "invalid name", Path: name}
	}
	return nil
}
