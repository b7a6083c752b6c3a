package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-video-server/auth"
	"github.com/jrsteele09/go-video-server/media"
	"github.com/jrsteele09/go-video-server/users"
)

// loginResponse mirrors what clients without cookie support need to keep.
type loginResponse struct {
	User         *users.AccountView `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

func (s *Server) HealthcheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, "OK", "Health check passed")
	}
}

// RegisterHandler accepts JSON, or multipart with optional avatar and coverImage files.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := s.parseFields(r)
		if err != nil {
			writeError(w, err)
			return
		}
		avatar, avatarFile, err := s.formFile(r, "avatar")
		if err != nil {
			closeAll(r)
			writeError(w, err)
			return
		}
		coverImage, coverFile, err := s.formFile(r, "coverImage")
		defer closeAll(r, avatarFile, coverFile)
		if err != nil {
			writeError(w, err)
			return
		}

		account, err := s.sessions.Register(r.Context(), auth.RegisterRequest{
			Username:   form.get("username"),
			Email:      form.get("email"),
			FullName:   form.get("fullName"),
			Password:   form.get("password"),
			Avatar:     avatar,
			CoverImage: coverImage,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, account, "User registered successfully")
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := s.parseFields(r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := s.sessions.Login(r.Context(), auth.LoginRequest{
			Username: form.get("username"),
			Email:    form.get("email"),
			Password: form.get("password"),
		})
		if err != nil {
			writeError(w, err)
			return
		}

		setSessionCookies(w, result.Tokens)
		writeSuccess(w, http.StatusOK, loginResponse{
			User:         result.Account,
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		}, "User logged in successfully")
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		if err := s.sessions.Logout(r.Context(), identity.AccountID); err != nil {
			writeError(w, err)
			return
		}
		clearSessionCookies(w)
		writeSuccess(w, http.StatusOK, nil, "User logged out")
	})
}

// RefreshTokenHandler prefers the refreshToken cookie over a body field.
// Any failure clears the session cookies.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := ""
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			presented = cookie.Value
		}
		if presented == "" {
			form, err := s.parseFields(r)
			if err != nil {
				writeError(w, err)
				return
			}
			presented = form.get("refreshToken")
		}

		pair, err := s.sessions.Refresh(r.Context(), presented)
		if err != nil {
			clearSessionCookies(w)
			writeError(w, err)
			return
		}

		setSessionCookies(w, *pair)
		writeSuccess(w, http.StatusOK, pair, "Access token refreshed")
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		form, err := s.parseFields(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.sessions.ChangePassword(r.Context(), identity.AccountID, form.get("oldPassword"), form.get("newPassword")); err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil, "Password changed successfully")
	})
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		account, err := s.accounts.Current(r.Context(), identity.AccountID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, account, "Current user fetched successfully")
	})
}

func (s *Server) UpdateAccountHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		form, err := s.parseFields(r)
		if err != nil {
			writeError(w, err)
			return
		}
		account, err := s.accounts.UpdateDetails(r.Context(), identity.AccountID, form.get("fullName"), form.get("username"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, account, "Account details updated")
	})
}

func (s *Server) AvatarHandler() http.HandlerFunc {
	return s.imageHandler("avatar", "Avatar updated successfully", s.accounts.UpdateAvatar)
}

func (s *Server) CoverImageHandler() http.HandlerFunc {
	return s.imageHandler("coverImage", "Cover image updated successfully", s.accounts.UpdateCoverImage)
}

func (s *Server) ChannelProfileHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		profile, err := s.accounts.ChannelProfile(r.Context(), r.PathValue("username"), identity.AccountID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, profile, "User channel fetched successfully")
	})
}

func (s *Server) ToggleSubscriptionHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		result, err := s.subscriptions.Toggle(r.Context(), identity.AccountID, r.PathValue("channelId"))
		if err != nil {
			writeError(w, err)
			return
		}
		message := "Unsubscribed successfully"
		if result.Subscribed {
			message = "Subscribed successfully"
		}
		writeSuccess(w, http.StatusOK, result, message)
	})
}

func (s *Server) ChannelSubscribersHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
		subscribers, err := s.subscriptions.Subscribers(r.Context(), r.PathValue("channelId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, subscribers, "List of subscribers fetched successfully")
	})
}

func (s *Server) SubscribedChannelsHandler() http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, _ *auth.Identity) {
		channels, err := s.subscriptions.SubscribedChannels(r.Context(), r.PathValue("subscriberId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, channels, "List of subscribed channels fetched successfully")
	})
}

type identityHandler func(w http.ResponseWriter, r *http.Request, identity *auth.Identity)

// withIdentity pulls the identity injected by RequireAuth.
func (s *Server) withIdentity(handler identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, auth.UnauthorizedErr)
			return
		}
		handler(w, r, identity)
	}
}

func (s *Server) imageHandler(
	field, message string,
	update func(ctx context.Context, accountID string, upload *media.Upload) (*users.AccountView, error),
) http.HandlerFunc {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, identity *auth.Identity) {
		if _, err := s.parseFields(r); err != nil {
			writeError(w, err)
			return
		}
		upload, file, err := s.formFile(r, field)
		defer closeAll(r, file)
		if err != nil {
			writeError(w, err)
			return
		}
		account, err := update(r.Context(), identity.AccountID, upload)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, account, message)
	})
}
