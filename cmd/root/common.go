package root

import (
	"log/slog"
	"strings"

	"github.com/agromind/plantchat/pkg/httpclient"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/session"
	"github.com/agromind/plantchat/pkg/userconfig"
)

func envHint(service string) string {
	if service == "converse" {
		return userconfig.EnvConverseURL
	}
	return userconfig.EnvDiagnoseURL
}

// loadConfig reads the user config and applies flag overrides on top of
// the file and environment values.
func (f *rootFlags) loadConfig() (*userconfig.Config, error) {
	cfg, err := userconfig.Load()
	if err != nil {
		return nil, err
	}
	if err := f.applyOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *rootFlags) applyOverrides(cfg *userconfig.Config) error {
	if v := strings.TrimSpace(f.converseURL); v != "" {
		cfg.Endpoints.Converse = v
	}
	if v := strings.TrimSpace(f.diagnoseURL); v != "" {
		cfg.Endpoints.Diagnose = v
	}
	if f.timeout != 0 {
		cfg.TimeoutSeconds = f.timeout
	}
	return cfg.Validate()
}

func newGateway(cfg *userconfig.Config) *inference.Client {
	hc := httpclient.NewHTTPClient(httpclient.WithTimeout(cfg.Timeout()))
	return inference.NewClient(cfg.Endpoints.Converse, cfg.Endpoints.Diagnose, inference.WithHTTPClient(hc))
}

func closeSession(ctrl *session.Controller) {
	if err := ctrl.Close(); err != nil {
		slog.Warn("Failed to clean up image previews", "error", err)
	}
}
