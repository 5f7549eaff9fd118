package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/trulyexpense/backend/internal/mailer"
)

// fakePublisher captures queued mail instead of delivering it.
type fakePublisher struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) queued() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.messages...)
}

// authedRequest builds a request carrying the authenticated user ID the way
// the session middleware does.
func authedRequest(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), "userID", userID))
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
