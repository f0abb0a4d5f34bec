package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "esign-backend/internal/shared/auth"
	"esign-backend/internal/shared/server/respond"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/users"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	loginTTL          = 5 * time.Minute
	ownerIDPrefix     = "google:"
)

var errMissingUIRedirect = errors.New("ui redirect url not configured")

// UserUpserter persists the authenticated owner profile.
type UserUpserter interface {
	UpsertFromAuth(ctx context.Context, user users.User) error
}

// GoogleService signs document owners in with Google and hands the frontend a session JWT.
type GoogleService struct {
	oauth      *oauth2.Config
	uiRedirect string
	logins     *loginStore
	users      UserUpserter
	userInfo   string
}

// NewGoogleService builds a GoogleService. upserter may be nil.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, upserter UserUpserter) *GoogleService {
	return &GoogleService{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		uiRedirect: uiRedirect,
		logins:     newLoginStore(),
		users:      upserter,
		userInfo:   googleUserInfoURL,
	}
}

// RegisterRoutes attaches the login routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != "" && s.oauth.RedirectURL != ""
}

// start redirects to Google's consent page. ?next=/path is carried through to the UI.
func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	s.logins.put(state, pendingLogin{
		verifier:  verifier,
		returnTo:  safeReturnPath(c.Query("next")),
		expiresAt: time.Now().Add(loginTTL),
	})

	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
}

func (s *GoogleService) callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		telemetry.Warn("auth.google_denied", map[string]any{"error": errParam})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "login was cancelled", nil)
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	login, ok := s.logins.take(state)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(login.verifier))
	if err != nil {
		telemetry.Warn("auth.google_exchange_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	owner, err := s.fetchOwner(ctx, token)
	if err != nil {
		telemetry.Error("auth.google_profile_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	if s.users != nil {
		if err := s.users.UpsertFromAuth(ctx, owner); err != nil {
			telemetry.Error("auth.user_upsert_failed", map[string]any{"user_id": owner.ID, "error": err})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to persist profile", nil)
			return
		}
	}

	session, err := sharedauth.SignJWT(sharedauth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: owner.ID},
		Email:            owner.Email,
		Name:             owner.FullName,
		Picture:          owner.PictureURL,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	dest, err := uiRedirect(s.uiRedirect, session, login.returnTo)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	telemetry.Info("auth.google_login", map[string]any{"user_id": owner.ID})
	c.Redirect(http.StatusFound, dest)
}

type googleProfile struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// owner maps a Google profile onto a document owner.
func (p googleProfile) owner() (users.User, error) {
	subject := p.Sub
	if subject == "" {
		subject = p.ID
	}
	if subject == "" {
		return users.User{}, errors.New("profile has no subject")
	}
	if p.VerifiedEmail != nil && !*p.VerifiedEmail {
		return users.User{}, errors.New("profile email is not verified")
	}
	return users.User{
		ID:         ownerIDPrefix + subject,
		Email:      strings.ToLower(strings.TrimSpace(p.Email)),
		FullName:   p.Name,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		PictureURL: p.Picture,
	}, nil
}

func (s *GoogleService) fetchOwner(ctx context.Context, token *oauth2.Token) (users.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfo, nil)
	if err != nil {
		return users.User{}, err
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return users.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return users.User{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var profile googleProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return users.User{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return profile.owner()
}
