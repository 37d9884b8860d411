package sandbox

import (
	"strings"
	"testing"
)

func TestResolveCredentials_ExplicitTakesPriority(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Set(storageKeySandboxURL, "https://persisted.example.com")
	storage.Set(storageKeySessionToken, "persisted-tok")

	url, tok, _ := resolveCredentials("https://explicit.example.com", "explicit-tok", "https://app.example.com/?sandbox_url=https://q.example.com&session_token=q-tok", storage)
	if url != "https://explicit.example.com" || tok != "explicit-tok" {
		t.Fatalf("got url=%q tok=%q, want explicit values preserved", url, tok)
	}
}

func TestResolveCredentials_QueryParamTakesPriorityOverPersisted(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Set(storageKeySandboxURL, "https://persisted.example.com")

	url, tok, stripped := resolveCredentials("", "", "https://app.example.com/page?sandbox_url=https%3A%2F%2Fq.example.com&session_token=q-tok", storage)
	if url != "https://q.example.com" {
		t.Fatalf("url = %q, want query-param value", url)
	}
	if tok != "q-tok" {
		t.Fatalf("tok = %q, want q-tok", tok)
	}
	if strings.Contains(stripped, "sandbox_url") || strings.Contains(stripped, "session_token") {
		t.Fatalf("stripped location %q still carries credential query params", stripped)
	}
	if got, ok := storage.Get(storageKeySandboxURL); !ok || got != "https://q.example.com" {
		t.Fatalf("sandbox_url not persisted: %q, %v", got, ok)
	}
}

func TestResolveCredentials_FallsBackToPersisted(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Set(storageKeySandboxURL, "https://persisted.example.com")
	storage.Set(storageKeySessionToken, "persisted-tok")

	url, tok, _ := resolveCredentials("", "", "", storage)
	if url != "https://persisted.example.com" || tok != "persisted-tok" {
		t.Fatalf("got url=%q tok=%q, want persisted values", url, tok)
	}
}

func TestNew_RequiresResolvedSandboxURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New with no resolvable sandbox URL unexpectedly succeeded")
	}
}

func TestWSURLFromHTTP(t *testing.T) {
	cases := map[string]string{
		"https://abc.sandbox.example.com": "wss://abc.sandbox.example.com/ws",
		"http://localhost:8080":           "ws://localhost:8080/ws",
	}
	for in, want := range cases {
		if got := wsURLFromHTTP(in); got != want {
			t.Fatalf("wsURLFromHTTP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoot_PreviewURL(t *testing.T) {
	r, err := New(Config{SandboxURL: "https://abc.sandbox.example.com", PreviewBase: "preview.example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := r.PreviewURL(3000)
	want := "https://abc-3000.preview.example.com"
	if got != want {
		t.Fatalf("PreviewURL = %q, want %q", got, want)
	}
}
