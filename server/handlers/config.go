package handlers

import (
	"bytes"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ConfigHandler serves the running configuration as YAML, with secrets
// masked.
type ConfigHandler struct {
	configProvider ConfigProvider
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(provider ConfigProvider) *ConfigHandler {
	return &ConfigHandler{
		configProvider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h.configProvider.Config().Redacted()); err != nil {
		writeError(w, err)
		return
	}
	if err := enc.Close(); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/yaml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
