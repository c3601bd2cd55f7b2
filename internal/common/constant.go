package common

// Cookie names carrying the session tokens.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName is the standard header checked when no access token
// cookie is present. The expected value is "Bearer <token>".
const AuthorizationHeaderName = "Authorization"
