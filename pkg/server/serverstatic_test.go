package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestServeFile(t *testing.T) {
	config.InitTestConfig()

	tempDir, err := os.MkdirTemp("", "testservefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	// Set the DocumentRoot in the mock config
	sysConfig := config.GetSystemCriticalConfig()
	sysConfig.DocumentRoot = tempDir
	sysConfig.WebRoot = "/"

	// Create a test file
	testFileName := "testfile.txt"
	testFilePath := path.Join(tempDir, testFileName)
	err = os.WriteFile(testFilePath, []byte("Hello, World!"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/"+testFileName, nil)
	rr := httptest.NewRecorder()

	serveFile(rr, req)

	res := rr.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "Hello, World!", string(body))
}

func TestServeFile_NotFound(t *testing.T) {
	config.InitTestConfig()

	tempDir, err := os.MkdirTemp("", "testservefile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	// Set the DocumentRoot in the mock config
	sysConfig := config.GetSystemCriticalConfig()
	sysConfig.DocumentRoot = tempDir
	sysConfig.WebRoot = "/"

	// Create a request for a non-existent file
	req := httptest.NewRequest("GET", "/nonexistentfile.txt", nil)
	rr := httptest.NewRecorder()

	serveFile(rr, req)

	// Check the response
	res := rr.Result()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServeFile_WebRootAndTraversal(t *testing.T) {
	config.InitTestConfig()
	config.SetTestTemplateDir(t.TempDir())
	docRoot := t.TempDir()
	sysConfig := config.GetSystemCriticalConfig()
	sysConfig.DocumentRoot = docRoot
	sysConfig.WebRoot = "/forum/"

	if !assert.NoError(t, os.MkdirAll(path.Join(docRoot, "css"), 0755)) {
		t.FailNow()
	}
	if !assert.NoError(t, os.WriteFile(path.Join(docRoot, "css", "manage.css"), []byte("body{}"), 0644)) {
		t.FailNow()
	}
	if !assert.NoError(t, os.WriteFile(path.Join(docRoot, "index.html"), []byte("<p>hi</p>"), 0644)) {
		t.FailNow()
	}

	testCases := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/forum/css/manage.css", status: http.StatusOK, body: "body{}"},
		{path: "/forum/", status: http.StatusOK, body: "<p>hi</p>"},
		{path: "/css/manage.css", status: http.StatusNotFound},
		{path: "/forum/../../etc/passwd", status: http.StatusNotFound},
		{path: "/forum/css", status: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.URL.Path = tc.path
			rr := httptest.NewRecorder()
			serveFile(rr, req)
			assert.Equal(t, tc.status, rr.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rr.Body.String())
			}
		})
	}
}

func TestSetFileHeaders(t *testing.T) {
	tests := []struct {
		filename      string
		expectedType  string
		expectedCache string
	}{
		{"image.png", "image/png", "max-age=86400"},
		{"image.gif", "image/gif", "max-age=86400"},
		{"image.jpg", "image/jpeg", "max-age=86400"},
		{"image.jpeg", "image/jpeg", "max-age=86400"},
		{"style.css", "text/css", "max-age=43200"},
		{"script.js", "text/javascript", "max-age=43200"},
		{"data.json", "application/json", "max-age=5, must-revalidate"},
		{"smiley.webp", "image/webp", "max-age=86400"},
		{"logo.svg", "image/svg+xml", "max-age=86400"},
		{"index.html", "text/html", "max-age=5, must-revalidate"},
		{"INDEX.HTML", "text/html", "max-age=5, must-revalidate"},
		{"unknownfile.xyz", "application/octet-stream", "max-age=86400"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			rr := httptest.NewRecorder()

			setFileHeaders(tt.filename, rr)

			assert.Equal(t, tt.expectedType, rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedCache, rr.Header().Get("Cache-Control"))
		})
	}
}
