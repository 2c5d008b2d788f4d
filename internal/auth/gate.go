package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/config"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/httputil"
)

// Routes served by the Authenticator handlers.
const (
	SignInPath   = "/auth/signin"
	CallbackPath = "/auth/callback"
	SignOutPath  = "/auth/signout"
	DeniedPath   = "/auth/denied"

	// CallbackParam names the query parameter carrying the page to return
	// to after sign-in.
	CallbackParam = "callbackUrl"

	authPathPrefix    = "/auth"
	defaultCallback   = "/admin"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	maxUserInfoBytes  = 1 << 20
)

// DevSession is the identity attached to requests when the gate is
// bypassed in dev mode.
var DevSession = Session{Email: "dev@localhost", Name: "Developer"}

type sessionKey struct{}

// WithSession returns ctx carrying sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// FromContext returns the session the gate attached to ctx.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}

// Authenticator owns the admin gate and the Google sign-in flow.
type Authenticator struct {
	allow       AllowList
	sessions    *Sessions
	oauth       *oauth2.Config
	endpoint    oauth2.Endpoint
	userInfoURL string
	devMode     bool
	logger      zerolog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithEndpoint replaces the Google endpoints, mainly for tests.
func WithEndpoint(endpoint oauth2.Endpoint, userInfoURL string) Option {
	return func(a *Authenticator) {
		a.endpoint = endpoint
		a.userInfoURL = userInfoURL
	}
}

// WithLogger sets the logger used for sign-in events.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// New builds an Authenticator from cfg. Sign-in is disabled when no OAuth
// credentials are configured; the gate still applies.
func New(cfg config.Config, opts ...Option) (*Authenticator, error) {
	sessions, err := NewSessions(cfg.SessionSecret, cfg.SessionTTL, strings.HasPrefix(cfg.BaseURL, "https://"))
	if err != nil {
		return nil, err
	}

	a := &Authenticator{
		allow:       NewAllowList(cfg.AdminEmails),
		sessions:    sessions,
		endpoint:    endpoints.Google,
		userInfoURL: googleUserInfoURL,
		devMode:     cfg.DevMode,
		logger:      log.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.OAuthEnabled() {
		a.oauth = &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Endpoint:     a.endpoint,
			RedirectURL:  cfg.BaseURL + CallbackPath,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}

	switch {
	case a.devMode:
		a.logger.Warn().Msg("admin gate disabled in dev mode; every request is treated as signed in")
	case a.allow.Len() == 0:
		a.logger.Warn().Msg("admin allow-list is empty; set ADMIN_EMAILS to grant access")
	}
	if a.oauth == nil && !a.devMode {
		a.logger.Warn().Msg("Google sign-in is not configured; admin area is unreachable")
	}

	return a, nil
}

// Sessions exposes the cookie codec.
func (a *Authenticator) Sessions() *Sessions { return a.sessions }

// Gate lets allow-listed sessions through. Requests without a session are
// sent to sign-in with their path as the callback; signed-in users who are
// not allow-listed are sent to the denied page.
func (a *Authenticator) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.devMode {
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), DevSession)))
			return
		}

		sess, err := a.sessions.Read(r)
		if err != nil {
			target := SignInPath + "?" + url.Values{CallbackParam: {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		if !a.allow.Allowed(sess.Email) {
			a.logger.Warn().Str("email", sess.Email).Str("path", r.URL.Path).Msg("admin access denied")
			http.Redirect(w, r, DeniedPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// SignIn starts the authorization-code flow.
func (a *Authenticator) SignIn(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		httputil.RespondProblem(w, r, http.StatusServiceUnavailable,
			"sign-in is not configured; set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
		return
	}

	callback := SafeCallback(r.URL.Query().Get(CallbackParam))
	if sess, err := a.sessions.Read(r); err == nil && a.allow.Allowed(sess.Email) {
		http.Redirect(w, r, callback, http.StatusFound)
		return
	}

	state := uuid.NewString()
	if err := a.sessions.issueState(w, oauthState{State: state, Callback: callback}); err != nil {
		a.logger.Error().Err(err).Msg("failed to issue sign-in state")
		httputil.RespondProblem(w, r, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	http.Redirect(w, r, a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// Callback completes the flow: it checks the state, exchanges the code,
// reads the user's email and issues a session for allow-listed users.
func (a *Authenticator) Callback(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		httputil.RespondProblem(w, r, http.StatusServiceUnavailable, "sign-in is not configured")
		return
	}

	st, err := a.sessions.readState(r)
	a.sessions.clearState(w)
	q := r.URL.Query()
	if err != nil || st.State == "" || q.Get("state") != st.State {
		httputil.RespondProblem(w, r, http.StatusBadRequest, "sign-in state mismatch; start sign-in again")
		return
	}
	if providerErr := q.Get("error"); providerErr != "" {
		httputil.RespondProblemf(w, r, http.StatusBadRequest, "sign-in was not completed: %s", providerErr)
		return
	}
	code := q.Get("code")
	if code == "" {
		httputil.RespondProblem(w, r, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := a.oauth.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error().Err(err).Msg("authorization code exchange failed")
		httputil.RespondProblem(w, r, http.StatusBadGateway, "could not complete sign-in with the provider")
		return
	}

	info, err := a.fetchUserInfo(r.Context(), token)
	if err != nil {
		a.logger.Error().Err(err).Msg("fetching user info failed")
		httputil.RespondProblem(w, r, http.StatusBadGateway, "could not read the signed-in account")
		return
	}

	if !info.EmailVerified || !a.allow.Allowed(info.Email) {
		a.logger.Warn().Str("email", info.Email).Bool("verified", info.EmailVerified).Msg("sign-in denied")
		http.Redirect(w, r, DeniedPath, http.StatusFound)
		return
	}

	if _, err := a.sessions.Issue(w, info.Email, info.Name); err != nil {
		a.logger.Error().Err(err).Msg("failed to issue session")
		httputil.RespondProblem(w, r, http.StatusInternalServerError, "failed to start session")
		return
	}

	a.logger.Info().Str("email", normalizeEmail(info.Email)).Msg("admin signed in")
	http.Redirect(w, r, st.Callback, http.StatusFound)
}

// SignOut clears the session and returns to the home page.
func (a *Authenticator) SignOut(w http.ResponseWriter, r *http.Request) {
	a.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (a *Authenticator) fetchUserInfo(ctx context.Context, token *oauth2.Token) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	resp, err := a.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return userInfo{}, fmt.Errorf("requesting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return userInfo{}, fmt.Errorf("user info endpoint answered %s", resp.Status)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&info); err != nil {
		return userInfo{}, fmt.Errorf("decoding user info: %w", err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return userInfo{}, errors.New("user info carries no email")
	}
	return info, nil
}

// SafeCallback returns raw when it is a same-site absolute path, and the
// admin dashboard otherwise.
func SafeCallback(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return defaultCallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultCallback
	}
	return u.RequestURI()
}
