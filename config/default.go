package config

import "time"

func GetDefault() Config {
	return Config{
		GitLabURL:         "https://gitlab.com",
		CacheDir:          ".cache",
		ResultsDir:        "results",
		Transport:         TransportAPI,
		Model:             "gemini-2.0-flash-exp",
		CLICommand:        "gemini",
		CLITimeout:        Duration(5 * time.Minute),
		CLIVersionTimeout: Duration(5 * time.Second),
		HTTPTimeout:       Duration(60 * time.Second),
		GenerateTimeout:   Duration(5 * time.Minute),
		TagOrder:          TagOrderUpdated,
		MaxDiffFiles:      5,
		MaxDiffLines:      20,
		AnalyzeBatchSize:  10,
	}
}
