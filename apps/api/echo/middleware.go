package echoapi

import (
	"github.com/labstack/echo/v4"
)

func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		if !usr.IsStaff {
			return errHTTPForbidden
		}
		return next(ctx)
	}
}

func superuserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		if !usr.IsSuperuser {
			return errHTTPForbidden
		}
		return next(ctx)
	}
}
