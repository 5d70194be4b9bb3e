package httpapi

import "testing"

func TestSetMaxBodyBytes(t *testing.T) {
	orig := maxBodyBytes
	t.Cleanup(func() { maxBodyBytes = orig })

	SetMaxBodyBytes(2048)
	if maxBodyBytes != 2048 {
		t.Fatalf("got %d", maxBodyBytes)
	}
	// Non-positive values reset to the 1MiB default.
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("got %d", maxBodyBytes)
	}
}

func TestSetCORSOptionsCopies(t *testing.T) {
	t.Cleanup(func() { SetCORSOptions(false, nil, nil, nil) })

	origins := []string{"https://example.com"}
	SetCORSOptions(true, origins, []string{"GET"}, []string{"Accept"})
	origins[0] = "mutated"
	if !corsEnabled || corsAllowedOrigins[0] != "https://example.com" {
		t.Fatalf("expected defensive copy, got %v", corsAllowedOrigins)
	}
}
