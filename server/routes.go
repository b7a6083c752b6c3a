package server

import "net/http"

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	authed := s.APIMiddleware(s.RequireAuth())

	s.RegisterRouteHandler("GET "+RouteHealthcheck, ChainMiddleware(s.HealthcheckHandler(), api...))

	// SESSION
	s.RegisterRouteHandler("POST "+RouteUserRegister, ChainMiddleware(s.RegisterHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteUserLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteUserRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteUserLogout, ChainMiddleware(s.LogoutHandler(), authed...))
	s.RegisterRouteHandler("POST "+RouteUserChangePassword, ChainMiddleware(s.ChangePasswordHandler(), authed...))

	// ACCOUNT
	s.RegisterRouteHandler("GET "+RouteUserCurrent, ChainMiddleware(s.CurrentUserHandler(), authed...))
	s.RegisterRouteHandler("PATCH "+RouteUserUpdate, ChainMiddleware(s.UpdateAccountHandler(), authed...))
	s.RegisterRouteHandler("PATCH "+RouteUserAvatar, ChainMiddleware(s.AvatarHandler(), authed...))
	s.RegisterRouteHandler("PATCH "+RouteUserCoverImage, ChainMiddleware(s.CoverImageHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteUserChannel, ChainMiddleware(s.ChannelProfileHandler(), authed...))

	// SUBSCRIPTIONS
	s.RegisterRouteHandler("POST "+RouteSubscriptionChannel, ChainMiddleware(s.ToggleSubscriptionHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteSubscriptionChannel, ChainMiddleware(s.ChannelSubscribersHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteSubscriptionSubscriber, ChainMiddleware(s.SubscribedChannelsHandler(), authed...))

	// CORS preflight for every API path; CorsMiddleware answers it.
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPrefix+"/", ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, api...))
}
