package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "CLOUDREVE_GO_CONFIG"
	EnvAPIURL      = "CLOUDREVE_API_URL"
	EnvUsername    = "CLOUDREVE_USERNAME"
	EnvPassword    = "CLOUDREVE_PASSWORD"
	EnvBrowseRoot  = "CLOUDREVE_BASE_PATH"
	EnvDownloadDir = "CLOUDREVE_DOWNLOAD_PATH"
	EnvResolverURL = "CLOUDREVE_RESOLVER_URL"
)

// EnvOverrides holds values derived from environment variables. Empty
// strings mean "not set".
type EnvOverrides struct {
	ConfigPath  string
	APIURL      string
	Username    string
	Password    string
	BrowseRoot  string
	DownloadDir string
	ResolverURL string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		APIURL:      os.Getenv(EnvAPIURL),
		Username:    os.Getenv(EnvUsername),
		Password:    os.Getenv(EnvPassword),
		BrowseRoot:  os.Getenv(EnvBrowseRoot),
		DownloadDir: os.Getenv(EnvDownloadDir),
		ResolverURL: os.Getenv(EnvResolverURL),
	}
}

// apply copies every set override onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	setIf(&cfg.APIURL, e.APIURL)
	setIf(&cfg.Username, e.Username)
	setIf(&cfg.Password, e.Password)
	setIf(&cfg.BrowseRoot, e.BrowseRoot)
	setIf(&cfg.DownloadDir, e.DownloadDir)
	setIf(&cfg.ResolverURL, e.ResolverURL)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
