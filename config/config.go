package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Remote       Remote
	Sync         Sync
	GeminiApiKey string
	DataDir      string
}

type Server struct {
	Port string
}

// Remote describes the version-controlled blob store that holds the
// library document, plus the endpoint that issues a bearer token for it.
type Remote struct {
	Owner         string
	Repo          string
	Branch        string
	FilePath      string
	TokenEndpoint string
}

type Sync struct {
	DebounceMS    int
	SaveTimeoutMS int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REMOTE_BRANCH", "main")
	viper.SetDefault("REMOTE_FILE_PATH", "library.json")
	viper.SetDefault("SYNC_DEBOUNCE_MS", 2000)
	viper.SetDefault("SYNC_SAVE_TIMEOUT_MS", 30000)
	viper.SetDefault("DATA_DIR", "data")

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Remote.Owner = viper.GetString("REMOTE_OWNER")
	config.Remote.Repo = viper.GetString("REMOTE_REPO")
	config.Remote.Branch = viper.GetString("REMOTE_BRANCH")
	config.Remote.FilePath = viper.GetString("REMOTE_FILE_PATH")
	config.Remote.TokenEndpoint = viper.GetString("REMOTE_TOKEN_ENDPOINT")
	config.Sync.DebounceMS = viper.GetInt("SYNC_DEBOUNCE_MS")
	config.Sync.SaveTimeoutMS = viper.GetInt("SYNC_SAVE_TIMEOUT_MS")
	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")
	config.DataDir = viper.GetString("DATA_DIR")

	log.Info().Str("port", config.Server.Port).Str("remote_file", config.Remote.FilePath).Msg("Config loaded")
	return &config, nil
}
