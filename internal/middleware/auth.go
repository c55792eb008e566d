package middleware

import (
	stderrors "errors"

	"finance-tracker/internal/errors"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// RequireAuth creates a middleware that requires a valid RS256 bearer token
// and resolves the local user it belongs to
func RequireAuth(tokenService services.TokenServiceInterface, userService services.UserServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return handlers.SendError(c, errors.AuthMissingToken)
			}

			token, err := tokenService.ExtractTokenFromHeader(authHeader)
			if err != nil {
				return handlers.SendError(c, errors.AuthInvalidToken, errors.WithDetails(err.Error()))
			}

			claims, err := tokenService.ValidateAccessToken(token)
			if err != nil {
				if stderrors.Is(err, services.ErrExpiredToken) {
					return handlers.SendError(c, errors.AuthInvalidToken, errors.WithDetails("Token has expired"))
				}
				return handlers.SendError(c, errors.AuthInvalidToken)
			}

			user, err := userService.ResolveUser(c.Request().Context(), claims)
			if err != nil {
				if stderrors.Is(err, services.ErrUnauthorized) {
					return handlers.SendError(c, errors.AuthUserNotResolved)
				}
				return handlers.SendSystemError(c, err)
			}

			c.Set(handlers.UserIDContextKey, user.ID)
			c.Set("user_email", user.Email)

			return next(c)
		}
	}
}
