package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/history"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

const (
	contextUserKey   = "user"
	contextClaimsKey = "claims"
	tokenAudience    = "academia-admin"
)

func init() {
	// token expiry follows the application clock
	jwt.TimeFunc = func() time.Time { return core.NowFunc() }
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	IsStaff      bool   `json:"is_staff,omitempty"`
	IsSuperuser  bool   `json:"is_superuser,omitempty"`
}

// UserID returns the id of the user the token was issued for.
func (c Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := core.NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsStaff:      usr.IsStaff,
		IsSuperuser:  usr.IsSuperuser,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(conf *core.Config, raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !claims.VerifyAudience(tokenAudience, true) {
		return nil, errUnauthorized
	}
	return claims, nil
}

// activeUser returns the active user with the given id; unknown users are unauthorized.
func (s *Server) activeUser(ctx echo.Context, id int) (user.User, error) {
	usr, err := s.c.Users.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	return usr, nil
}

// authenticate reads the bearer token first, then the session cookie.
func (s *Server) authenticate(ctx echo.Context) (user.User, *Claims, error) {
	req := ctx.Request()
	if h := req.Header.Get(echo.HeaderAuthorization); h != "" {
		raw := strings.TrimPrefix(h, "Bearer ")
		if raw == h {
			return user.User{}, nil, errUnauthorized
		}
		claims, err := parseToken(s.conf, raw)
		if err != nil {
			return user.User{}, nil, err
		}
		id, err := claims.UserID()
		if err != nil {
			return user.User{}, nil, errUnauthorized
		}
		usr, err := s.activeUser(ctx, id)
		return usr, claims, err
	}

	sess, err := s.store.Get(req, s.conf.Session.CookieName)
	if err != nil {
		return user.User{}, nil, errors.Wrap(err, "loading session")
	}
	raw, _ := sess.Values[session.UserIDKey].(string)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return user.User{}, nil, errUnauthorized
	}
	usr, err := s.activeUser(ctx, id)
	return usr, nil, err
}

// authMiddleware stores the authenticated user in the echo context and in the request context, for history records.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, claims, err := s.authenticate(ctx)
		if err != nil {
			return err
		}
		ctx.Set(contextUserKey, usr)
		if claims != nil {
			ctx.Set(contextClaimsKey, claims)
		}
		req := ctx.Request()
		ctx.SetRequest(req.WithContext(history.WithUser(req.Context(), usr.ID)))
		return next(ctx)
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

type (
	LoginRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

// login authenticates a staff user, opens a session and returns a token.
func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Username = core.CleanString(data.Username, true /* lower */)
	if err := s.c.Validate.Struct(data); err != nil {
		return err
	}

	usr, err := s.c.Users.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if err == user.ErrInvalidCredentials {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	if !usr.IsStaff {
		return errAuthenticationFailed
	}
	return s.logUserIn(ctx, usr)
}

// ssoLogin consumes a single use link sent to a user and logs them in.
func (s *Server) ssoLogin(ctx echo.Context) error {
	usr, err := s.c.Users.UseSSOLink(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		if core.IsNotFound(err) {
			return errHTTPNotFound
		}
		return err
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	return s.logUserIn(ctx, usr)
}

// logUserIn records the login, opens a session and returns a token.
func (s *Server) logUserIn(ctx echo.Context, usr user.User) error {
	usr, err := s.c.Users.SetLastLogin(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}

	sess, err := s.store.New(ctx.Request(), s.conf.Session.CookieName)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	sess.ID = "" // a fresh key on every login
	sess.Values[session.UserIDKey] = strconv.Itoa(usr.ID)
	if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
		return errors.Wrap(err, "saving session")
	}

	token, err := GenerateToken(s.conf, GetUserClaims(s.conf, usr))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) logout(ctx echo.Context) error {
	sess, err := s.store.Get(ctx.Request(), s.conf.Session.CookieName)
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	if !sess.IsNew {
		sess.Options.MaxAge = -1
		if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
			return errors.Wrap(err, "deleting session")
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

// refreshToken issues a new token as long as the first one of the chain is recent enough.
func (s *Server) refreshToken(ctx echo.Context) error {
	claims, ok := ctx.Get(contextClaimsKey).(*Claims)
	if !ok {
		return errUnauthorized
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.conf.Server.JWTRefreshExpirationDelta)
	if core.NowFunc().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(s.conf, GetUserClaims(s.conf, usr, claims.OrigIssuedAt))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
