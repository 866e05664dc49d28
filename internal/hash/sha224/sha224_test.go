// Package sha224 includes tests for the SHA-224 hasher adapter.
package sha224

import "testing"

// TestHasherHashDeterministic ensures repeated hashing yields the same digest.
func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	want := "2f05477fc24bb4faefd86517156dafdecec45b8ad3cf2522a563582b"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	again, err := h.Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() repeat error = %v", err)
	}
	if again != got {
		t.Fatalf("expected deterministic hash, got %s vs %s", got, again)
	}
}

// TestHasherHashDistinguishesInputs guards the fallback file names.
func TestHasherHashDistinguishesInputs(t *testing.T) {
	t.Parallel()

	h := New()
	cough, _ := h.Hash([]byte("cough"))
	fever, _ := h.Hash([]byte("fever"))
	if cough == fever {
		t.Fatalf("expected distinct digests, both were %s", cough)
	}
	if cough != "63a9eea4be08b44d2a55851478530318d0e7434c2a89007eb9109ddd" {
		t.Fatalf("unexpected digest for cough: %s", cough)
	}
}
