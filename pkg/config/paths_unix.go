//go:build !windows

package config

const (
	ConfigNotFoundInPathsMessage = "Unable to load configuration, copy forumadmin.example.json to one of the search paths and rename it to forumadmin.json"
)

var (
	StandardConfigSearchPaths = []string{"forumadmin.json", "/usr/local/etc/forumadmin/forumadmin.json", "/etc/forumadmin/forumadmin.json"}
)
