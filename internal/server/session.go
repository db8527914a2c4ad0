package server

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/monorkin/stone-hub/aps/api"
	"github.com/monorkin/stone-hub/internal/metrics"
	"github.com/monorkin/stone-hub/internal/models"
)

const (
	SESSION_COOKIE       = "stonehub_session"
	SESSION_MAX_AGE      = 30 * 24 * time.Hour
	SESSION_ID_BYTES     = 32
	TOKEN_REFRESH_MARGIN = time.Minute
)

var ErrNoSession = errors.New("no session")

// Session holds the tokens of a logged in user. The tokens stay in the
// sessions table; the cookie only carries the signed and encrypted ID.
type Session struct {
	ID       string     `json:"-"`
	Internal *api.Token `json:"internal"`
	Public   *api.Token `json:"public"`
}

type contextKey string

const sessionKey contextKey = "session"

type sessionStore struct {
	codec  *securecookie.SecureCookie
	db     *gorm.DB
	secure bool
	now    func() time.Time
}

func newSessionStore(db *gorm.DB, secret string, secure bool) *sessionStore {
	hashKey := sha256.Sum256([]byte("hash:" + secret))
	blockKey := sha256.Sum256([]byte("block:" + secret))

	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.MaxAge(int(SESSION_MAX_AGE.Seconds()))

	return &sessionStore{
		codec:  codec,
		db:     db,
		secure: secure,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func newSessionID() (string, error) {
	key := securecookie.GenerateRandomKey(SESSION_ID_BYTES)
	if key == nil {
		return "", errors.New("failed to generate session id")
	}

	return base64.RawURLEncoding.EncodeToString(key), nil
}

func (store *sessionStore) cookieID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SESSION_COOKIE)
	if err != nil {
		return "", false
	}

	var id string
	if err := store.codec.Decode(SESSION_COOKIE, cookie.Value, &id); err != nil || id == "" {
		return "", false
	}

	return id, true
}

func (store *sessionStore) load(r *http.Request) (*Session, error) {
	id, ok := store.cookieID(r)
	if !ok {
		return nil, ErrNoSession
	}

	var record models.Session
	err := store.db.WithContext(r.Context()).
		Where("id = ? AND expires_at > ?", id, store.now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(record.Data), &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if session.Internal == nil || session.Public == nil {
		return nil, ErrNoSession
	}
	session.ID = id

	return &session, nil
}

// save stores the session, assigning it an ID on first save, and sets the
// cookie. Expired sessions are purged on the way.
func (store *sessionStore) save(w http.ResponseWriter, session *Session) error {
	if session.ID == "" {
		id, err := newSessionID()
		if err != nil {
			return err
		}
		session.ID = id
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	now := store.now()
	record := models.Session{
		ID:        session.ID,
		ExpiresAt: now.Add(SESSION_MAX_AGE),
		Data:      string(data),
	}

	err = store.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", now).Delete(&models.Session{}).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at", "expires_at", "data"}),
		}).Create(&record).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := store.codec.Encode(SESSION_COOKIE, session.ID)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SESSION_COOKIE,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(SESSION_MAX_AGE.Seconds()),
		HttpOnly: true,
		Secure:   store.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// clear deletes the session the request points at and expires the cookie.
func (store *sessionStore) clear(w http.ResponseWriter, r *http.Request) error {
	var err error
	if id, ok := store.cookieID(r); ok {
		err = store.db.WithContext(r.Context()).Where("id = ?", id).Delete(&models.Session{}).Error
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SESSION_COOKIE,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   store.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func sessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey).(*Session)
	return session
}

// authRefresh loads the session, refreshes expired tokens and stores the
// result in the request context. Requests without a session get a 401.
func (ws *WebServer) authRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := ws.sessions.load(r)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				ws.log(r.Context()).Error("Failed to load session", "error", err)
			}
			JSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		now := ws.now()
		if session.Internal.Expired(now, TOKEN_REFRESH_MARGIN) {
			internal, public, err := ws.aps.RefreshTokens(r.Context(), session.Internal.RefreshToken)
			if err != nil {
				metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
				ws.log(r.Context()).Warn("Failed to refresh session tokens", "error", err)
				if err := ws.sessions.clear(w, r); err != nil {
					ws.log(r.Context()).Error("Failed to clear session", "error", err)
				}
				JSONError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
			session = &Session{ID: session.ID, Internal: internal, Public: public}
			if err := ws.sessions.save(w, session); err != nil {
				ws.log(r.Context()).Error("Failed to save session", "error", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
	})
}
