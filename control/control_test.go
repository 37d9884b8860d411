package control

import "testing"

// S5 — preview URL derivation.
func TestPreviewURL(t *testing.T) {
	got := PreviewURL("abc.sandbox.example.com", 3000, "preview.example.com")
	want := "https://abc-3000.preview.example.com"
	if got != want {
		t.Fatalf("PreviewURL = %q, want %q", got, want)
	}
}

func TestPreviewURL_NoDotInHost(t *testing.T) {
	got := PreviewURL("abc", 8080, "preview.example.com")
	want := "https://abc-8080.preview.example.com"
	if got != want {
		t.Fatalf("PreviewURL = %q, want %q", got, want)
	}
}
