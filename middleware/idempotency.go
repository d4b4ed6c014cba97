package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storefront/errs"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore persists Idempotency-Key records. Insert returns
// errs.ErrDuplicate when the key already exists.
type IdempotencyStore interface {
	Insert(ctx context.Context, rec *models.IdempotencyRecord) error
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Complete(ctx context.Context, key string, status int, body []byte) error
	Delete(ctx context.Context, key string) error
}

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// captureResponseWriter wraps http.ResponseWriter to capture status and body.
type captureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func (c *captureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *captureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *captureResponseWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.buf.Write(b)
	return c.w.Write(b)
}

// Idempotency makes a mutating endpoint safe to retry when the client sends an
// Idempotency-Key header:
//   - no header: pass-through.
//   - first use of a key: run the handler and remember its response. 5xx
//     responses are forgotten so the client can retry.
//   - key reused with a different request: 409.
//   - key reused while the first request is still running: 409.
//   - key reused after completion: the stored response is replayed.
func Idempotency(store IdempotencyStore, ttl time.Duration) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" {
				next(w, r, ps)
				return
			}
			userID := utils.GetUserIDFromRequest(r)

			// Limit body size to 1 MB to prevent memory issues
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "validation", "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			ctx := r.Context()
			now := time.Now()
			rec := &models.IdempotencyRecord{
				Key:         userID + ":" + key,
				Method:      r.Method,
				Path:        r.URL.Path,
				UserID:      userID,
				RequestHash: computeRequestHash(r, bodyBytes, userID),
				CreatedAt:   now,
				ExpiresAt:   now.Add(ttl),
			}

			err = store.Insert(ctx, rec)
			if err == nil {
				crw := &captureResponseWriter{w: w, statusCode: http.StatusOK}
				next(crw, r, ps)

				// the handler has finished; a cancelled request context must not
				// leave the record in flight forever
				saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if crw.statusCode >= http.StatusInternalServerError {
					if err := store.Delete(saveCtx, rec.Key); err != nil {
						log.Printf("[Idempotency] delete %s: %v", rec.Key, err)
					}
					return
				}
				if err := store.Complete(saveCtx, rec.Key, crw.statusCode, crw.buf.Bytes()); err != nil {
					log.Printf("[Idempotency] complete %s: %v", rec.Key, err)
				}
				return
			}
			if !errors.Is(err, errs.ErrDuplicate) {
				log.Printf("[Idempotency] insert %s: %v", rec.Key, err)
				utils.RespondWithError(w, http.StatusInternalServerError, "internal", "idempotency lookup error")
				return
			}

			existing, err := store.Find(ctx, rec.Key)
			if err != nil {
				log.Printf("[Idempotency] find %s: %v", rec.Key, err)
				utils.RespondWithError(w, http.StatusInternalServerError, "internal", "idempotency lookup error")
				return
			}
			if existing.RequestHash != rec.RequestHash {
				utils.RespondWithError(w, http.StatusConflict, "conflict", "Idempotency-Key was used with a different request")
				return
			}
			if !existing.Completed {
				utils.RespondWithError(w, http.StatusConflict, "conflict", "a request with this Idempotency-Key is still in progress")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(existing.StatusCode)
			_, _ = w.Write(existing.ResponseBody)
		}
	}
}
