package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/c.toml")
	t.Setenv(EnvAPIURL, "https://cloud.example.com")
	t.Setenv(EnvUsername, "me")
	t.Setenv(EnvPassword, "pw")
	t.Setenv(EnvBrowseRoot, "cloudreve://my/base")
	t.Setenv(EnvDownloadDir, "cloudreve://my/dl")
	t.Setenv(EnvResolverURL, "https://resolver.example.com")

	env := ReadEnvOverrides()
	assert.Equal(t, EnvOverrides{
		ConfigPath:  "/tmp/c.toml",
		APIURL:      "https://cloud.example.com",
		Username:    "me",
		Password:    "pw",
		BrowseRoot:  "cloudreve://my/base",
		DownloadDir: "cloudreve://my/dl",
		ResolverURL: "https://resolver.example.com",
	}, env)
}

func TestReadEnvOverrides_Unset(t *testing.T) {
	for _, name := range []string{
		EnvConfig, EnvAPIURL, EnvUsername, EnvPassword, EnvBrowseRoot, EnvDownloadDir, EnvResolverURL,
	} {
		t.Setenv(name, "")
	}

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}

func TestEnvOverrides_ApplySkipsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Username = "file-user"

	EnvOverrides{Password: "pw"}.apply(cfg)

	assert.Equal(t, "file-user", cfg.Username)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, "cloudreve://my", cfg.BrowseRoot)
}
