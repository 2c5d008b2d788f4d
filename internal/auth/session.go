package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// SessionCookie holds the signed and encrypted admin session.
	SessionCookie = "tcc_session"

	stateCookie = "tcc_oauth_state"
	stateTTL    = 10 * time.Minute
)

// ErrNoSession is returned when the request carries no usable session.
var ErrNoSession = errors.New("no session")

// Session identifies a signed-in user.
type Session struct {
	Email   string    `json:"email"`
	Name    string    `json:"name,omitempty"`
	Expires time.Time `json:"expires"`
}

// oauthState is carried through the provider round trip.
type oauthState struct {
	State    string `json:"state"`
	Callback string `json:"callback"`
}

// Sessions issues and reads session cookies.
type Sessions struct {
	codec  *securecookie.SecureCookie
	state  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions returns a cookie codec keyed from secret. An empty secret
// generates random keys, so sessions end when the process exits.
func NewSessions(secret string, ttl time.Duration, secure bool) (*Sessions, error) {
	hashKey, blockKey, err := sessionKeys(secret)
	if err != nil {
		return nil, err
	}
	return &Sessions{
		codec:  newCodec(hashKey, blockKey, ttl),
		state:  newCodec(hashKey, blockKey, stateTTL),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}, nil
}

func newCodec(hashKey, blockKey []byte, maxAge time.Duration) *securecookie.SecureCookie {
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(maxAge / time.Second))
	return codec
}

func sessionKeys(secret string) ([]byte, []byte, error) {
	if strings.TrimSpace(secret) == "" {
		hashKey := securecookie.GenerateRandomKey(32)
		blockKey := securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, nil, fmt.Errorf("generating session keys")
		}
		return hashKey, blockKey, nil
	}
	hashKey := sha256.Sum256([]byte("tcc-session-hash:" + secret))
	blockKey := sha256.Sum256([]byte("tcc-session-block:" + secret))
	return hashKey[:], blockKey[:], nil
}

// Issue writes a session cookie for email valid for the configured TTL.
func (s *Sessions) Issue(w http.ResponseWriter, email, name string) (Session, error) {
	sess := Session{
		Email:   normalizeEmail(email),
		Name:    strings.TrimSpace(name),
		Expires: s.now().Add(s.ttl).UTC(),
	}
	if err := s.set(w, s.codec, SessionCookie, "/", sess, s.ttl); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Read decodes the session cookie. Missing, tampered and expired cookies
// all yield ErrNoSession.
func (s *Sessions) Read(r *http.Request) (Session, error) {
	var sess Session
	if err := s.get(r, s.codec, SessionCookie, &sess); err != nil {
		return Session{}, ErrNoSession
	}
	if sess.Email == "" || !s.now().Before(sess.Expires) {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	s.clear(w, SessionCookie, "/")
}

func (s *Sessions) issueState(w http.ResponseWriter, st oauthState) error {
	return s.set(w, s.state, stateCookie, authPathPrefix, st, stateTTL)
}

func (s *Sessions) readState(r *http.Request) (oauthState, error) {
	var st oauthState
	if err := s.get(r, s.state, stateCookie, &st); err != nil {
		return oauthState{}, err
	}
	return st, nil
}

func (s *Sessions) clearState(w http.ResponseWriter) {
	s.clear(w, stateCookie, authPathPrefix)
}

func (s *Sessions) set(w http.ResponseWriter, codec *securecookie.SecureCookie, name, path string, value any, ttl time.Duration) error {
	encoded, err := codec.Encode(name, value)
	if err != nil {
		return fmt.Errorf("encoding %s cookie: %w", name, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) get(r *http.Request, codec *securecookie.SecureCookie, name string, dst any) error {
	c, err := r.Cookie(name)
	if err != nil {
		return err
	}
	return codec.Decode(name, c.Value, dst)
}

func (s *Sessions) clear(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
