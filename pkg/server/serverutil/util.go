package serverutil

import (
	"mime"
	"net/http"
	"strings"
	"time"
)

// DeleteCookie deletes the given cookie if it exists. It returns true if it exists and false
// with no errors if it doesn't
func DeleteCookie(writer http.ResponseWriter, request *http.Request, cookieName string) bool {
	cookie, err := request.Cookie(cookieName)
	if err != nil {
		return false
	}
	cookie.MaxAge = 0
	cookie.Expires = time.Now().Add(-7 * 24 * time.Hour)
	http.SetCookie(writer, cookie)
	return true
}

// IsRequestingJSON returns true if the json form value is "1" or "true", or if the request's
// Accept header prefers JSON
func IsRequestingJSON(request *http.Request) bool {
	jsonField := request.FormValue("json")
	if jsonField == "" {
		jsonField = request.PostFormValue("json")
	}
	if jsonField != "" {
		return jsonField == "1" || jsonField == "true"
	}
	accept := request.Header.Get("Accept")
	if accept == "" {
		return false
	}
	first, _, _ := strings.Cut(accept, ",")
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(first))
	return err == nil && mediaType == "application/json"
}
