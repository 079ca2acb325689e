package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var ErrIdempotencyConflict = errors.New("idempotency key was already used with a different request")

// IdempotencyStore keeps the response of a keyed mutation per user and
// endpoint. Entries older than TTL are ignored and overwritten.
type IdempotencyStore struct {
	db  *pgxpool.Pool
	TTL time.Duration
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db, TTL: 24 * time.Hour}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *IdempotencyStore) Lookup(ctx context.Context, userID int64, endpoint, key, hash string) ([]byte, bool, error) {
	if s == nil || s.db == nil || key == "" {
		return nil, false, nil
	}
	var storedHash string
	var body []byte
	err := s.db.QueryRow(ctx, `
		SELECT request_hash, response_json::text
		FROM idempotency_keys
		WHERE user_id = $1 AND key = $2 AND endpoint = $3
		  AND created_at > now() - make_interval(secs => $4)
	`, userID, key, endpoint, s.TTL.Seconds()).Scan(&storedHash, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != hash {
		return nil, false, ErrIdempotencyConflict
	}
	return body, true, nil
}

func (s *IdempotencyStore) Remember(ctx context.Context, userID int64, endpoint, key, hash string, body []byte) error {
	if s == nil || s.db == nil || key == "" {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, response_json)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (user_id, key, endpoint)
		DO UPDATE SET request_hash = EXCLUDED.request_hash,
		              response_json = EXCLUDED.response_json,
		              created_at = now()
	`, userID, key, endpoint, hash, string(body))
	return err
}

// capture buffers a handler's response so it can be stored after the fact.
type capture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotent replays the stored response when an authenticated caller
// repeats an Idempotency-Key for the same endpoint and body. Reusing a key
// with a different body is a 409. Only 2xx responses are remembered.
func Idempotent(store *IdempotencyStore, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			user, ok := GetUser(r.Context())
			if key == "" || !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())

			var raw []byte
			if r.Body != nil {
				var err error
				raw, err = io.ReadAll(r.Body)
				if err != nil {
					api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(raw))
			}
			hash := RequestHash(append([]byte(r.URL.Path+"\n"), raw...))

			stored, found, err := store.Lookup(r.Context(), user.UserID, endpoint, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), reqID)
				return
			case err != nil:
				slog.Warn("idempotency lookup failed", "endpoint", endpoint, "err", err)
			case found:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(http.StatusOK)
				w.Write(stored)
				return
			}

			rec := &capture{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status < 200 || rec.status > 299 {
				return
			}
			if err := store.Remember(r.Context(), user.UserID, endpoint, key, hash, rec.body.Bytes()); err != nil {
				slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
			}
		})
	}
}
