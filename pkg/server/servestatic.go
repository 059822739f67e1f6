package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fautil"
)

var (
	knownFileHeaders = map[string]StaticFileHeaders{
		".png":  {ContentType: "image/png", CacheControl: "max-age=86400"},
		".gif":  {ContentType: "image/gif", CacheControl: "max-age=86400"},
		".jpg":  {ContentType: "image/jpeg", CacheControl: "max-age=86400"},
		".jpeg": {ContentType: "image/jpeg", CacheControl: "max-age=86400"},
		".webp": {ContentType: "image/webp", CacheControl: "max-age=86400"},
		".svg":  {ContentType: "image/svg+xml", CacheControl: "max-age=86400"},
		".css":  {ContentType: "text/css", CacheControl: "max-age=43200"},
		".js":   {ContentType: "text/javascript", CacheControl: "max-age=43200"},
		".json": {ContentType: "application/json", CacheControl: "max-age=5, must-revalidate"},
		".html": {ContentType: "text/html", CacheControl: "max-age=5, must-revalidate"},
	}
)

// StaticFileHeaders are the headers sent with static files that have a given extension
type StaticFileHeaders struct {
	ContentType  string
	CacheControl string
	Other        map[string]string
}

// serveFile serves CSS, JavaScript, emoji and avatar images from the document root
func serveFile(writer http.ResponseWriter, request *http.Request) {
	systemCritical := config.GetSystemCriticalConfig()

	requestPath := path.Clean("/" + request.URL.Path)
	webRoot := path.Clean("/" + systemCritical.WebRoot)
	if webRoot != "/" {
		if requestPath != webRoot && !strings.HasPrefix(requestPath, webRoot+"/") {
			ServeNotFound(writer, request)
			return
		}
		requestPath = strings.TrimPrefix(requestPath, webRoot)
	}
	filePath := filepath.Join(systemCritical.DocumentRoot, filepath.FromSlash(requestPath))
	info, err := os.Stat(filePath)
	if err == nil && info.IsDir() {
		filePath = filepath.Join(filePath, "index.html")
		info, err = os.Stat(filePath)
	}
	if err != nil || info.IsDir() {
		ServeNotFound(writer, request)
		return
	}
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		fautil.LogError(err).Caller().Str("path", filePath).Msg("Unable to read static file")
		ServeErrorPage(writer, NewServerError("Unable to read the requested file", http.StatusInternalServerError))
		return
	}
	setFileHeaders(filePath, writer)
	fautil.LogAccess(request).Int("status", http.StatusOK).Send()
	writer.Write(fileBytes)
}

// set mime type/cache headers according to the file's extension
func setFileHeaders(filename string, writer http.ResponseWriter) {
	extension := strings.ToLower(path.Ext(filename))
	header, ok := knownFileHeaders[extension]
	if ok {
		writer.Header().Set("Content-Type", header.ContentType)
		writer.Header().Set("Cache-Control", header.CacheControl)
		for key, value := range header.Other {
			writer.Header().Set(key, value)
		}
	} else {
		writer.Header().Set("Content-Type", "application/octet-stream")
		writer.Header().Set("Cache-Control", "max-age=86400")
	}
}
