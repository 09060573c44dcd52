package echoapi

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

// sessionStore is a sessions.Store keeping the values in the session table; the cookie only holds the signed key.
type sessionStore struct {
	svc     *session.Service
	codecs  []securecookie.Codec
	options sessions.Options
}

var _ sessions.Store = (*sessionStore)(nil)

func newSessionStore(svc *session.Service, conf *core.Config) *sessionStore {
	hashKey := sha256.Sum256([]byte("academia.cookie." + conf.SecretKey))
	return &sessionStore{
		svc:    svc,
		codecs: securecookie.CodecsFromPairs(hashKey[:]),
		options: sessions.Options{
			Path:     "/",
			MaxAge:   int(conf.Session.Age / time.Second),
			Secure:   !conf.Debug && !conf.TestMode,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func (st *sessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(st, name)
}

// New loads the session named by the request cookie; missing, tampered and expired sessions come back empty.
func (st *sessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(st, name)
	opts := st.options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}
	var key string
	if err := securecookie.DecodeMulti(name, c.Value, &key, st.codecs...); err != nil {
		return sess, nil
	}
	_, values, err := st.svc.Load(r.Context(), key)
	if err != nil {
		if core.IsNotFound(err) {
			return sess, nil
		}
		return sess, err
	}
	sess.ID = key
	for k, v := range values {
		sess.Values[k] = v
	}
	sess.IsNew = false
	return sess, nil
}

// Save stores the session; a negative MaxAge deletes it along with its cookie.
func (st *sessionStore) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	ctx := r.Context()
	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if _, err := st.svc.Delete(ctx, sess.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		sess.ID = session.NewKey()
	}
	values := make(map[string]interface{}, len(sess.Values))
	for k, v := range sess.Values {
		values[fmt.Sprint(k)] = v
	}
	meta := session.Meta{UserAgent: r.UserAgent(), IP: clientIP(r)}
	if raw, ok := values[session.UserIDKey].(string); ok {
		if id, err := strconv.Atoi(raw); err == nil {
			meta.UserID = null.IntFrom(id)
		}
	}
	expire := core.NowFunc().Add(time.Duration(sess.Options.MaxAge) * time.Second)
	if _, err := st.svc.Save(ctx, sess.ID, values, expire, meta); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, st.codecs...)
	if err != nil {
		return errors.Wrap(err, "encoding session cookie")
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
