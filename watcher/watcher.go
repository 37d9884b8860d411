// Package watcher implements the file-watcher channel client (C8): a
// watched path surfaces add/change/unlink events for files and
// directories, with optional file content attached and teardown via
// HTTP, mirroring the terminal package's channel-client shape.
package watcher

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/httpapi"
	"github.com/computesdk/computesdk-sub001/internal/channelid"
	"github.com/computesdk/computesdk-sub001/transport"
	"github.com/computesdk/computesdk-sub001/wire"
)

// EventKind is the change kind a file:changed frame reports.
type EventKind string

const (
	EventAdd       EventKind = "add"
	EventChange    EventKind = "change"
	EventUnlink    EventKind = "unlink"
	EventAddDir    EventKind = "addDir"
	EventUnlinkDir EventKind = "unlinkDir"
)

// Encoding is the framing the server tags attached content with.
type Encoding string

const (
	EncodingRaw    Encoding = "raw"
	EncodingBase64 Encoding = "base64"
)

// ChangeEvent is one decoded file:changed occurrence.
type ChangeEvent struct {
	Kind       EventKind
	Path       string
	Content    []byte
	HasContent bool
}

// CreateOptions configures POST /watchers.
type CreateOptions struct {
	Path           string   `json:"path"`
	IncludeContent bool     `json:"includeContent,omitempty"`
	Ignored        []string `json:"ignored,omitempty"`
	Encoding       Encoding `json:"encoding,omitempty"`
}

type createResponse struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

// Watcher is a subscribed file-watcher channel client.
type Watcher struct {
	http    *httpapi.Client
	tr      *transport.Transport
	id      string
	channel string

	mu        sync.Mutex
	destroyed bool
	onChange  []func(ChangeEvent)
}

// Create opens a new file watcher via POST /watchers and subscribes its channel on tr.
func Create(ctx context.Context, httpClient *httpapi.Client, tr *transport.Transport, opts CreateOptions) (*Watcher, error) {
	var resp createResponse
	if err := httpClient.Request(ctx, "/watchers", httpapi.RequestOptions{Method: http.MethodPost, Body: opts}, &resp); err != nil {
		return nil, err
	}
	channel := channelid.Normalize(resp.Channel)
	if err := channelid.Validate(channel); err != nil {
		return nil, fserrors.Wrap(fserrors.PathChannel, fserrors.StageValidate, fserrors.CodeInvalidInput, err)
	}
	w := &Watcher{http: httpClient, tr: tr, id: resp.ID, channel: channel}
	w.install()
	tr.Subscribe(ctx, w.channel)
	return w, nil
}

func (w *Watcher) install() {
	w.tr.On(w.channel, func(v any) {
		msg, ok := v.(wire.Message)
		if !ok || msg.Type != "file:changed" || msg.Payload.Kind != wire.PayloadMap {
			return
		}
		w.dispatch(msg.Payload.Map)
	})
}

func (w *Watcher) dispatch(m wire.Map) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	handlers := append([]func(ChangeEvent){}, w.onChange...)
	w.mu.Unlock()

	kind, _ := m.GetString("event")
	path, _ := m.GetString("path")
	ev := ChangeEvent{Kind: EventKind(kind), Path: path}

	if raw, ok := m.GetString("content"); ok {
		enc, _ := m.GetString("encoding")
		if Encoding(enc) == EncodingBase64 {
			decoded, err := base64.StdEncoding.DecodeString(raw)
			if err == nil {
				ev.Content = decoded
				ev.HasContent = true
			}
		} else {
			ev.Content = []byte(raw)
			ev.HasContent = true
		}
	}

	for _, h := range handlers {
		h(ev)
	}
}

// OnChange registers a handler for decoded file:changed events.
func (w *Watcher) OnChange(h func(ChangeEvent)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, h)
	w.mu.Unlock()
}

// ID reports the server-assigned watcher id.
func (w *Watcher) ID() string { return w.id }

// Channel reports the transport channel this watcher subscribes to.
func (w *Watcher) Channel() string { return w.channel }

// SetIncludeContent toggles whether file:changed events attach file
// content, via PATCH /watchers/{id} (§4.8).
func (w *Watcher) SetIncludeContent(ctx context.Context, include bool) error {
	body := struct {
		IncludeContent bool `json:"includeContent"`
	}{IncludeContent: include}
	return w.http.Request(ctx, "/watchers/"+w.id, httpapi.RequestOptions{Method: http.MethodPatch, Body: body}, nil)
}

// SetIgnored replaces the watcher's ignored patterns (paths or globs),
// via PATCH /watchers/{id} (§4.8).
func (w *Watcher) SetIgnored(ctx context.Context, ignored []string) error {
	body := struct {
		Ignored []string `json:"ignored"`
	}{Ignored: ignored}
	return w.http.Request(ctx, "/watchers/"+w.id, httpapi.RequestOptions{Method: http.MethodPatch, Body: body}, nil)
}

// SetEncoding changes the framing used for attached file content
// (raw or base64), via PATCH /watchers/{id} (§4.8).
func (w *Watcher) SetEncoding(ctx context.Context, enc Encoding) error {
	body := struct {
		Encoding Encoding `json:"encoding"`
	}{Encoding: enc}
	return w.http.Request(ctx, "/watchers/"+w.id, httpapi.RequestOptions{Method: http.MethodPatch, Body: body}, nil)
}

// Destroy marks the watcher destroyed and drops its change handlers,
// issues DELETE /watchers/{id}, then unsubscribes the channel and drops
// its transport handlers. A destroyed watcher emits nothing further, even if a
// file:changed frame for it is already in flight (§4.8).
func (w *Watcher) Destroy(ctx context.Context) error {
	w.mu.Lock()
	w.destroyed = true
	w.onChange = nil
	w.mu.Unlock()

	err := w.http.Request(ctx, "/watchers/"+w.id, httpapi.RequestOptions{Method: http.MethodDelete}, nil)
	w.tr.Unsubscribe(ctx, w.channel)
	w.tr.OffAll(w.channel)
	return err
}
