package config

var (
	defaultConfig = Config{
		SystemCriticalConfig: SystemCriticalConfig{
			ListenAddress: "127.0.0.1",
			Port:          8080,
			DocumentRoot:  "html",
			TemplateDir:   "templates",
			LogDir:        "log",
			LanguageDir:   "languages",
			EmojiDir:      "html/emoji",
			AvatarDir:     "html/avatars",
			SourceDir:     ".",
			SettingsFile:  "settings.json",
			WebRoot:       "/",
			SQLConfig: SQLConfig{
				DBTimeoutSeconds:     DefaultSQLTimeout,
				DBMaxOpenConnections: DefaultSQLMaxConns,
				DBMaxIdleConnections: DefaultSQLMaxConns,
				DBConnMaxLifetimeMin: DefaultSQLConnMaxLifetimeMin,
			},
		},
		SiteConfig: SiteConfig{
			ForumName:            "My Community",
			MinifyHTML:           true,
			MinifyJS:             true,
			StaffSessionDuration: "3mo",
			ItemsPerPage:         DefaultItemsPerPage,
			DefaultLanguage:      "en",
		},
	}
)
