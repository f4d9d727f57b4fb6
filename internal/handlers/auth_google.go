package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/accounts"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Accounts        *accounts.Accounts
	Expires         int
	SecureCookie    bool
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) shortCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) Routes(r fiber.Router) {
	r.Get("/auth/google/start", h.GoogleStart)
	r.Get("/auth/google/callback", h.GoogleCallback)
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	if h.GoogleClientID == "" {
		return fiber.NewError(fiber.StatusNotFound, "google login is not configured")
	}

	next := c.Query("next", "/")
	st := randomState(32)

	h.shortCookie(c, "oauth_state", st, 10*60)
	h.shortCookie(c, "oauth_next", next, 10*60)

	return c.Redirect(h.oauthCfg().AuthCodeURL(st), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Invalid("state", "missing code or state")
	}

	stCookie := c.Cookies("oauth_state")
	if stCookie == "" || stCookie != state {
		return apperr.Invalid("state", "invalid state")
	}
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}

	ctx := c.UserContext()
	tok, err := h.oauthCfg().Exchange(ctx, code)
	if err != nil {
		return apperr.Unauthenticated()
	}

	resp, err := h.oauthCfg().Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		return apperr.Internal("failed to fetch google profile", err)
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return apperr.Internal("failed to decode google profile", err)
	}
	if !gu.VerifiedEmail {
		return apperr.Unauthenticated()
	}

	sess, err := h.Accounts.UpsertGoogleUser(ctx, gu.Email, gu.Name)
	if apperr.KindOf(err) == apperr.KindAuthentication {
		return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape("account disabled"), http.StatusTemporaryRedirect)
	}
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    sess.Token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
	h.shortCookie(c, "oauth_state", "", -1)
	h.shortCookie(c, "oauth_next", "", -1)

	if sess.User.Role == models.RoleUnset {
		next = "/auth/select-role?next=" + url.QueryEscape(next)
	}
	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}
