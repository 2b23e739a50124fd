package e2e

import (
	"net/http"
	"testing"
)

// TestCopyDocument tests copying a document to a new name
func TestCopyDocument(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		content := []byte("copy me")
		if err := tc.Client.Write("source.txt", content, 0644); err != nil {
			t.Fatalf("Failed to write source: %v", err)
		}

		if err := tc.Client.Copy("source.txt", "copy.txt", false); err != nil {
			t.Fatalf("Failed to copy document: %v", err)
		}

		assertContent(t, tc, "source.txt", content)
		assertContent(t, tc, "copy.txt", content)

		// The copy is independent of its source
		if err := tc.Client.Write("copy.txt", []byte("changed"), 0644); err != nil {
			t.Fatalf("Failed to write copy: %v", err)
		}
		assertContent(t, tc, "source.txt", content)
	})
}

// TestCopyCollectionDeep tests that COPY without Depth copies the subtree
func TestCopyCollectionDeep(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		assertStatus(t, tc, http.StatusCreated, "MKCOL", "src", nil)
		assertStatus(t, tc, http.StatusCreated, "MKCOL", "src/nested", nil)
		if err := tc.Client.Write("src/nested/file.txt", []byte("deep"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		assertStatus(t, tc, http.StatusCreated, "COPY", "src", map[string]string{
			"Destination": tc.URL("dst"),
		})

		assertContent(t, tc, "dst/nested/file.txt", []byte("deep"))
		assertContent(t, tc, "src/nested/file.txt", []byte("deep"))
	})
}

// TestCopyCollectionShallow tests that Depth: 0 copies only the collection
func TestCopyCollectionShallow(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		assertStatus(t, tc, http.StatusCreated, "MKCOL", "src", nil)
		if err := tc.Client.Write("src/file.txt", []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		assertStatus(t, tc, http.StatusCreated, "COPY", "src", map[string]string{
			"Destination": tc.URL("shallow"),
			"Depth":       "0",
		})

		assertStatus(t, tc, http.StatusNotFound, http.MethodGet, "shallow/file.txt", nil)
		// The empty collection exists
		assertStatus(t, tc, http.StatusMethodNotAllowed, "MKCOL", "shallow", nil)
	})
}

// TestCopyOverwrite tests the Overwrite header on an existing destination
func TestCopyOverwrite(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Write("a.txt", []byte("A"), 0644); err != nil {
			t.Fatalf("Failed to write a.txt: %v", err)
		}
		if err := tc.Client.Write("b.txt", []byte("B"), 0644); err != nil {
			t.Fatalf("Failed to write b.txt: %v", err)
		}

		assertStatus(t, tc, http.StatusPreconditionFailed, "COPY", "a.txt", map[string]string{
			"Destination": tc.URL("b.txt"),
			"Overwrite":   "F",
		})
		assertContent(t, tc, "b.txt", []byte("B"))

		assertStatus(t, tc, http.StatusNoContent, "COPY", "a.txt", map[string]string{
			"Destination": tc.URL("b.txt"),
			"Overwrite":   "T",
		})
		assertContent(t, tc, "b.txt", []byte("A"))
	})
}

// TestCopyIntoItself tests that a collection cannot be copied below itself
func TestCopyIntoItself(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		assertStatus(t, tc, http.StatusCreated, "MKCOL", "loop", nil)

		assertStatus(t, tc, http.StatusForbidden, "COPY", "loop", map[string]string{
			"Destination": tc.URL("loop/inner"),
		})
	})
}

// TestCopyWithoutDestination tests that COPY needs a Destination header
func TestCopyWithoutDestination(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Write("lonely.txt", []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		assertStatus(t, tc, http.StatusConflict, "COPY", "lonely.txt", nil)
	})
}

// TestMoveDocument tests renaming a document
func TestMoveDocument(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		content := []byte("move me")
		if err := tc.Client.Write("old.txt", content, 0644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}

		if err := tc.Client.Rename("old.txt", "new.txt", false); err != nil {
			t.Fatalf("Failed to move document: %v", err)
		}

		assertContent(t, tc, "new.txt", content)
		assertStatus(t, tc, http.StatusNotFound, http.MethodGet, "old.txt", nil)
	})
}

// TestMoveCollection tests moving a collection with its members into
// another collection
func TestMoveCollection(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		assertStatus(t, tc, http.StatusCreated, "MKCOL", "from", nil)
		assertStatus(t, tc, http.StatusCreated, "MKCOL", "to", nil)
		if err := tc.Client.Write("from/member.txt", []byte("member"), 0644); err != nil {
			t.Fatalf("Failed to write member: %v", err)
		}

		assertStatus(t, tc, http.StatusCreated, "MOVE", "from", map[string]string{
			"Destination": tc.URL("to/moved"),
		})

		assertContent(t, tc, "to/moved/member.txt", []byte("member"))
		assertStatus(t, tc, http.StatusNotFound, http.MethodGet, "from/member.txt", nil)
	})
}

// TestMoveOverwrite tests replacing an existing destination with MOVE
func TestMoveOverwrite(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		if err := tc.Client.Write("winner.txt", []byte("winner"), 0644); err != nil {
			t.Fatalf("Failed to write winner: %v", err)
		}
		if err := tc.Client.Write("loser.txt", []byte("loser"), 0644); err != nil {
			t.Fatalf("Failed to write loser: %v", err)
		}

		if err := tc.Client.Rename("winner.txt", "loser.txt", true); err != nil {
			t.Fatalf("Failed to move with overwrite: %v", err)
		}

		assertContent(t, tc, "loser.txt", []byte("winner"))
		assertStatus(t, tc, http.StatusNotFound, http.MethodGet, "winner.txt", nil)
	})
}

// TestMoveRoot tests that the root collection cannot be moved
func TestMoveRoot(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		assertStatus(t, tc, http.StatusForbidden, "MOVE", "", map[string]string{
			"Destination": tc.URL("elsewhere"),
		})
	})
}
