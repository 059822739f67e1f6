package serverutil

import (
	"net/http"
	"testing"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/stretchr/testify/assert"
)

var (
	checkRefererTestCases = []checkRefererTestCase{
		{
			desc:           "Internal referer",
			referer:        "http://forum.example.com/manage/bbc",
			siteHost:       "forum.example.com",
			expectedResult: InternalReferer,
		},
		{
			desc:           "External referer",
			referer:        "http://somesketchysite.com",
			siteHost:       "forum.example.com",
			expectedResult: ExternalReferer,
			expectRejected: true,
		},
		{
			desc:           "No referer",
			siteHost:       "forum.example.com",
			expectedResult: NoReferer,
		},
		{
			desc:           "Internal referer with port",
			referer:        "http://127.0.0.1:8080",
			siteHost:       "127.0.0.1:8080",
			expectedResult: InternalReferer,
		},
		{
			desc:           "Internal referer with port, IPv6",
			referer:        "http://[::1]:8080",
			siteHost:       "[::1]:8080",
			expectedResult: InternalReferer,
		},
	}
)

type checkRefererTestCase struct {
	desc           string
	referer        string
	siteHost       string
	expectedResult RefererResult
	expectRejected bool
}

func TestCheckReferer(t *testing.T) {
	config.InitTestConfig()
	systemCriticalConfig := config.GetSystemCriticalConfig()
	for _, tC := range checkRefererTestCases {
		t.Run(tC.desc, func(t *testing.T) {
			req, err := http.NewRequest("POST", "http://forum.example.com/manage/bbc", nil)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			systemCriticalConfig.SiteHost = tC.siteHost
			config.SetSystemCriticalConfig(systemCriticalConfig)
			req.Header.Set("Referer", tC.referer)
			result, err := CheckReferer(req)
			assert.NoError(t, err)
			assert.Equal(t, tC.expectedResult, result)
			if tC.expectRejected {
				assert.ErrorIs(t, ValidatePostReferer(req), ErrExternalReferer)
			} else {
				assert.NoError(t, ValidatePostReferer(req))
			}
		})
	}
}

func TestValidatePostRefererIgnoresGET(t *testing.T) {
	config.InitTestConfig()
	req, err := http.NewRequest("GET", "http://127.0.0.1/manage", nil)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	req.Header.Set("Referer", "http://somesketchysite.com")
	assert.NoError(t, ValidatePostReferer(req))
}
