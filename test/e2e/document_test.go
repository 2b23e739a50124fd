package e2e

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/studio-b12/gowebdav"
)

// TestWriteAndRead tests a PUT followed by a GET of the same document
func TestWriteAndRead(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		content := []byte("Hello, DittoDAV!\n")

		if err := tc.Client.Write("hello.txt", content, 0644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}

		assertContent(t, tc, "hello.txt", content)
	})
}

// TestWriteEmptyDocument tests that zero-length documents round-trip
func TestWriteEmptyDocument(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Write("empty.txt", []byte{}, 0644); err != nil {
			t.Fatalf("Failed to write empty document: %v", err)
		}

		assertContent(t, tc, "empty.txt", []byte{})

		status, headers, _ := tc.Do(http.MethodHead, "empty.txt", nil, nil)
		if status != http.StatusOK {
			t.Fatalf("HEAD: expected 200, got %d", status)
		}
		if _, err := http.ParseTime(headers.Get("Last-Modified")); err != nil {
			t.Errorf("HEAD: expected an HTTP-date Last-Modified, got %q", headers.Get("Last-Modified"))
		}
	})
}

// TestOverwriteShrinks tests that a second PUT replaces, not patches, the
// content
func TestOverwriteShrinks(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Write("doc.txt", []byte("a much longer first version"), 0644); err != nil {
			t.Fatalf("First write failed: %v", err)
		}
		if err := tc.Client.Write("doc.txt", []byte("short"), 0644); err != nil {
			t.Fatalf("Second write failed: %v", err)
		}

		assertContent(t, tc, "doc.txt", []byte("short"))
	})
}

// TestLargeDocument tests a document spanning several store chunks and,
// on S3, several multipart parts
func TestLargeDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping large document test in short mode")
	}

	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		data := patternData(12*1024*1024 + 17)

		if err := tc.Client.Write("large.bin", data, 0644); err != nil {
			t.Fatalf("Failed to write large document: %v", err)
		}

		assertContent(t, tc, "large.bin", data)
	})
}

// TestReadMissingDocument tests that GET of an unknown path is a 404
func TestReadMissingDocument(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		_, err := tc.Client.Read("does-not-exist.txt")
		if err == nil {
			t.Fatal("Expected error reading a missing document")
		}
		if !gowebdav.IsErrNotFound(err) {
			t.Errorf("Expected not-found error, got: %v", err)
		}
	})
}

// TestPutStatusAndHeaders checks the raw protocol surface of PUT and GET
func TestPutStatusAndHeaders(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		status, headers, _ := tc.Do(http.MethodPut, "raw.txt", strings.NewReader("raw"), nil)
		if status != http.StatusCreated {
			t.Fatalf("PUT: expected 201, got %d", status)
		}
		if headers.Get("DAV") == "" {
			t.Error("PUT: expected DAV header on every response")
		}

		// Overwriting is still 201
		status, _, _ = tc.Do(http.MethodPut, "raw.txt", strings.NewReader("raw2"), nil)
		if status != http.StatusCreated {
			t.Fatalf("PUT overwrite: expected 201, got %d", status)
		}

		status, _, body := tc.Do(http.MethodGet, "raw.txt", nil, nil)
		if status != http.StatusOK {
			t.Fatalf("GET: expected 200, got %d", status)
		}
		if !bytes.Equal(body, []byte("raw2")) {
			t.Errorf("GET: unexpected body %q", body)
		}
	})
}

// TestPutIntoMissingCollection tests that PUT needs an existing parent
func TestPutIntoMissingCollection(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		status, _, _ := tc.Do(http.MethodPut, "nope/file.txt", strings.NewReader("x"), nil)
		if status != http.StatusConflict {
			t.Fatalf("PUT: expected 409, got %d", status)
		}
	})
}

// TestPutOnCollection tests that a collection cannot be overwritten by PUT
func TestPutOnCollection(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Mkdir("folder", 0755); err != nil {
			t.Fatalf("Failed to create collection: %v", err)
		}

		status, _, _ := tc.Do(http.MethodPut, "folder", strings.NewReader("x"), nil)
		if status != http.StatusMethodNotAllowed {
			t.Fatalf("PUT on collection: expected 405, got %d", status)
		}
	})
}

// TestChunkedPutRejected tests that a PUT without Content-Length gets 411
// and leaves nothing behind
func TestChunkedPutRejected(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		req, err := http.NewRequest(http.MethodPut, tc.URL("chunked.txt"), strings.NewReader("data"))
		if err != nil {
			t.Fatalf("Failed to build request: %v", err)
		}
		req.ContentLength = -1
		req.TransferEncoding = []string{"chunked"}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT failed: %v", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusLengthRequired {
			t.Fatalf("Expected 411, got %d", resp.StatusCode)
		}
		assertStatus(t, tc, http.StatusNotFound, http.MethodGet, "chunked.txt", nil)
	})
}

// TestDeleteDocument tests removing a document
func TestDeleteDocument(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Write("gone.txt", []byte("bye"), 0644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}

		assertStatus(t, tc, http.StatusOK, http.MethodDelete, "gone.txt", nil)
		assertStatus(t, tc, http.StatusNotFound, http.MethodGet, "gone.txt", nil)
		assertStatus(t, tc, http.StatusNotFound, http.MethodDelete, "gone.txt", nil)
	})
}

// TestOptions tests the capability discovery response
func TestOptions(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		status, headers, _ := tc.Do(http.MethodOptions, "", nil, nil)
		if status != http.StatusOK {
			t.Fatalf("OPTIONS: expected 200, got %d", status)
		}

		allowed := map[string]bool{}
		for _, m := range headers.Values("Allow") {
			for _, part := range strings.Split(m, ",") {
				allowed[strings.TrimSpace(part)] = true
			}
		}
		for _, m := range []string{"GET", "PUT", "DELETE", "MKCOL", "COPY", "MOVE", "OPTIONS"} {
			if !allowed[m] {
				t.Errorf("OPTIONS: %s missing from Allow %v", m, headers.Values("Allow"))
			}
		}
	})
}

// TestUnsupportedMethod tests that an unknown verb is refused with 405
func TestUnsupportedMethod(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		assertStatus(t, tc, http.StatusMethodNotAllowed, "LOCK", "", nil)
	})
}
