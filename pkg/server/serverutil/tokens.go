package serverutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/zeebo/blake3"
)

// FormTokenLifetime is how long a form token can be submitted after the form was rendered
const FormTokenLifetime = time.Hour

var (
	ErrBadToken      = errors.New("the form token is missing, invalid, or expired. Reload the page and try again")
	ErrNoTokenSecret = errors.New("CookieSecret must be set to sign form tokens")

	tokenSigningMethod = jwt.SigningMethodHS256
)

func tokenSecret() ([]byte, error) {
	secret := config.GetSystemCriticalConfig().CookieSecret
	if secret == "" {
		return nil, ErrNoTokenSecret
	}
	return []byte(secret), nil
}

func sessionHash(session string) string {
	sum := blake3.Sum256([]byte(session))
	return hex.EncodeToString(sum[:16])
}

// NewFormToken returns a signed token tying a form to the staff session and the action the form submits to
func NewFormToken(session string, action string) (string, error) {
	secret, err := tokenSecret()
	if err != nil {
		return "", err
	}
	token := jwt.New(tokenSigningMethod)
	claims := token.Claims.(jwt.MapClaims)
	claims["sid"] = sessionHash(session)
	claims["act"] = action
	claims["exp"] = time.Now().Add(FormTokenLifetime).Unix()
	return token.SignedString(secret)
}

// CheckFormToken returns ErrBadToken if tokenStr wasn't created by NewFormToken for the session and action,
// or if it has expired
func CheckFormToken(tokenStr string, session string, action string) error {
	if tokenStr == "" {
		return ErrBadToken
	}
	secret, err := tokenSecret()
	if err != nil {
		return err
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if m, ok := token.Method.(*jwt.SigningMethodHMAC); !ok || m != tokenSigningMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ErrBadToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrBadToken
	}
	if _, hasExp := claims["exp"]; !hasExp {
		return ErrBadToken
	}
	if sid, _ := claims["sid"].(string); sid != sessionHash(session) {
		return ErrBadToken
	}
	if act, _ := claims["act"].(string); act != action {
		return ErrBadToken
	}
	return nil
}

// ValidateFormToken checks the token form value of the request
func ValidateFormToken(request *http.Request, session string, action string) error {
	return CheckFormToken(request.PostFormValue("token"), session, action)
}
