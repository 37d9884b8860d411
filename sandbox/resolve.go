package sandbox

import "net/url"

// resolveCredentials implements the priority chain from §4.5: explicit
// value, then a named query parameter on the caller-supplied location
// URL (stripped and persisted on discovery), then the persisted slot.
// locationURL stands in for "running in a document context" — the Go
// port has no window.location, so the caller passes whatever URL it was
// invoked or served with, and resolveCredentials treats the two named
// query parameters the same way the browser-side client would.
func resolveCredentials(explicitURL, explicitToken, locationURL string, storage Storage) (sandboxURL, sessionToken string, strippedLocation string) {
	sandboxURL = explicitURL
	sessionToken = explicitToken
	strippedLocation = locationURL

	if sandboxURL == "" || sessionToken == "" {
		if u, err := url.Parse(locationURL); err == nil && locationURL != "" {
			q := u.Query()
			changed := false
			if sandboxURL == "" {
				if v := q.Get("sandbox_url"); v != "" {
					sandboxURL = v
					storage.Set(storageKeySandboxURL, v)
					q.Del("sandbox_url")
					changed = true
				}
			}
			if sessionToken == "" {
				if v := q.Get("session_token"); v != "" {
					sessionToken = v
					storage.Set(storageKeySessionToken, v)
					q.Del("session_token")
					changed = true
				}
			}
			if changed {
				u.RawQuery = q.Encode()
				strippedLocation = u.String()
			}
		}
	}

	if sandboxURL == "" {
		if v, ok := storage.Get(storageKeySandboxURL); ok {
			sandboxURL = v
		}
	}
	if sessionToken == "" {
		if v, ok := storage.Get(storageKeySessionToken); ok {
			sessionToken = v
		}
	}

	return sandboxURL, sessionToken, strippedLocation
}

func stripTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
