package config

const (
	ConfigNotFoundInPathsMessage = "Unable to load configuration, copy forumadmin.example.json to the current directory and rename it to forumadmin.json"
)

var (
	StandardConfigSearchPaths = []string{"forumadmin.json"}
)
