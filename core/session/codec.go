package session

import (
	"crypto/sha256"

	"github.com/gorilla/securecookie"
	"github.com/pkg/errors"
)

const codecName = "session"

// Codec turns session values into the signed text stored in session_data.
type Codec struct {
	sc *securecookie.SecureCookie
}

// NewCodec derives the signing key from secret.
func NewCodec(secret string) *Codec {
	hashKey := sha256.Sum256([]byte("academia.session." + secret))
	sc := securecookie.New(hashKey[:], nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(0)    // expiry is handled by expire_date
	sc.MaxLength(0) // session data lives in the database, not in a cookie
	return &Codec{sc: sc}
}

func (c *Codec) Encode(values map[string]interface{}) (string, error) {
	if values == nil {
		values = map[string]interface{}{}
	}
	data, err := c.sc.Encode(codecName, values)
	if err != nil {
		return "", errors.Wrap(err, "encoding session")
	}
	return data, nil
}

// Decode verifies the signature of data and returns its values.
func (c *Codec) Decode(data string) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	if data == "" {
		return values, nil
	}
	if err := c.sc.Decode(codecName, data, &values); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	return values, nil
}
