package v1

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const idempotencyHeader = "Idempotency-Key"

// maxIdempotencyKeys bounds the replay cache; the oldest keys are evicted first.
const maxIdempotencyKeys = 1024

type storedResponse struct {
	BodyHash string
	Status   int
	Payload  []byte
}

type idempotencyCache struct {
	mu    sync.Mutex
	byKey map[string]storedResponse
	order []string
}

func newIdempotencyCache() *idempotencyCache {
	return &idempotencyCache{byKey: make(map[string]storedResponse)}
}

func (c *idempotencyCache) get(key string) (storedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.byKey[key]
	return v, ok
}

func (c *idempotencyCache) put(key string, v storedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byKey[key]; !ok {
		c.order = append(c.order, key)
	}
	c.byKey[key] = v
	for len(c.order) > maxIdempotencyKeys {
		delete(c.byKey, c.order[0])
		c.order = c.order[1:]
	}
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// idempotent replays the stored response for a repeated Idempotency-Key with
// the same body and rejects reuse of a key with a different body. Only 2xx
// responses are stored.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			badRequest(w, "could not read body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		hash := hashBytes(body)
		if prev, ok := s.idem.get(key); ok {
			if prev.BodyHash != hash {
				writeErr(w, http.StatusConflict, "idempotency key reused with a different body", "idempotency_conflict")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(prev.Status)
			_, _ = w.Write(prev.Payload)
			return
		}

		var buf bytes.Buffer
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		next.ServeHTTP(ww, r)
		if st := ww.Status(); st >= 200 && st < 300 {
			s.idem.put(key, storedResponse{BodyHash: hash, Status: st, Payload: buf.Bytes()})
		}
	})
}
