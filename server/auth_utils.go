package server

import (
	"net/http"

	"github.com/jrsteele09/go-video-server/token"
)

const (
	// accessTokenCookie carries the short-lived access token
	accessTokenCookie = "accessToken"
	// refreshTokenCookie carries the single live refresh token
	refreshTokenCookie = "refreshToken"
)

func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func setSessionCookies(w http.ResponseWriter, pair token.Pair) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, pair.AccessToken, 0))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, pair.RefreshToken, 0))
}

// clearSessionCookies expires both cookies on the client.
func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, "", -1))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, "", -1))
}
