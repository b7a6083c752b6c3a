package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteAPIPrefix = "/api/v1"

	RouteHealthcheck = RouteAPIPrefix + "/healthcheck"

	// Users - Session lifecycle
	RouteUserRegister       = RouteAPIPrefix + "/users/register"
	RouteUserLogin          = RouteAPIPrefix + "/users/login"
	RouteUserLogout         = RouteAPIPrefix + "/users/logout"
	RouteUserRefreshToken   = RouteAPIPrefix + "/users/refresh-token"
	RouteUserChangePassword = RouteAPIPrefix + "/users/change-password"

	// Users - Account
	RouteUserCurrent    = RouteAPIPrefix + "/users/current-user"
	RouteUserUpdate     = RouteAPIPrefix + "/users/update-account"
	RouteUserAvatar     = RouteAPIPrefix + "/users/avatar"
	RouteUserCoverImage = RouteAPIPrefix + "/users/cover-image"
	RouteUserChannel    = RouteAPIPrefix + "/users/c/{username}"

	// Subscriptions
	RouteSubscriptionChannel    = RouteAPIPrefix + "/subscriptions/c/{channelId}"
	RouteSubscriptionSubscriber = RouteAPIPrefix + "/subscriptions/u/{subscriberId}"
)
