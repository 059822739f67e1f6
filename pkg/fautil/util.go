package fautil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Eggbertx/durationutil"
	"golang.org/x/crypto/bcrypt"
	x_html "golang.org/x/net/html"
)

const (
	// DefaultMaxAge is used for cookies that have an invalid or unset max age (default is 1 month)
	DefaultMaxAge = time.Hour * 24 * 30
)

var (
	// ErrNotImplemented should be used for unimplemented functionality when necessary, not for bugs
	ErrNotImplemented = errors.New("not implemented")
)

// BcryptSum generates and returns a checksum using the bcrypt hashing function
func BcryptSum(str string) string {
	digest, err := bcrypt.GenerateFromPassword([]byte(str), 10)
	if err == nil {
		return string(digest)
	}
	return ""
}

// CompareBcrypt returns true if the plaintext password matches the bcrypt hash
func CompareBcrypt(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// FindResource searches for a file in the given paths and returns the first one it finds
// or a blank string if none of the paths exist
func FindResource(paths ...string) string {
	for _, fp := range paths {
		if _, err := os.Stat(fp); err == nil {
			return fp
		}
	}
	return ""
}

// GetRealIP checks the FA_TESTIP environment variable as well as the CF-Connecting-IP
// and X-Forwarded-For HTTP headers to get a potentially obfuscated IP address, before
// getting the request's reported remote address
func GetRealIP(request *http.Request) string {
	ip, ok := os.LookupEnv("FA_TESTIP")
	if ok {
		return ip
	}
	if ip = request.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip = request.Header.Get("X-Forwarded-For"); ip != "" {
		ip, _, _ = strings.Cut(ip, ",")
		return strings.TrimSpace(ip)
	}
	remoteHost, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return remoteHost
}

// HackyStringToInt parses a string to an int, or 0 if error
func HackyStringToInt(text string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(text))
	return value
}

// MarshalJSON creates a JSON string with the given data and returns the string and any errors
func MarshalJSON(data any, indent bool) (string, error) {
	var jsonBytes []byte
	var err error

	if indent {
		jsonBytes, err = json.MarshalIndent(data, "", "	")
	} else {
		jsonBytes, err = json.Marshal(data)
	}

	if err != nil {
		jsonBytes, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return string(jsonBytes), err
}

// RandomString returns a random hex string of the given length, suitable for session keys
func RandomString(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)[:length]
}

// StripHTML returns the text content of htmlIn with all tags removed and entities decoded,
// with runs of whitespace collapsed
func StripHTML(htmlIn string) string {
	tokenizer := x_html.NewTokenizer(strings.NewReader(htmlIn))
	var builder strings.Builder
	for {
		tokenType := tokenizer.Next()
		if tokenType == x_html.ErrorToken {
			break
		}
		if tokenType != x_html.TextToken {
			continue
		}
		builder.WriteString(string(tokenizer.Text()))
		builder.WriteByte(' ')
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

// Truncate shortens str to at most maxRunes runes, appending an ellipsis if it was cut
func Truncate(str string, maxRunes int) string {
	runes := []rune(str)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return str
	}
	return string(runes[:maxRunes]) + "..."
}

// ParseDuration parses a duration string that may use units longer than an hour
// (days, weeks, months, years), e.g. "3mo" or "1y2w"
func ParseDuration(str string) (time.Duration, error) {
	return durationutil.ParseLongerDuration(str)
}
