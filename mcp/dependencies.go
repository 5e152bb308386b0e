package mcp

import (
	"log"

	"github.com/ludo-technologies/pystage/domain"
	"github.com/ludo-technologies/pystage/internal/config"
	"github.com/ludo-technologies/pystage/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	service    domain.ConvertService
	fileReader domain.FileReader
	config     *config.Config
	configPath string
}

// NewDependencies constructs the dependency set with sane defaults.
// logger may be nil.
func NewDependencies(cfg *config.Config, configPath string, logger *log.Logger) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	return &Dependencies{
		service:    service.NewConvertService(service.WithLogger(logger)),
		fileReader: service.NewFileReader(),
		config:     cfg,
		configPath: configPath,
	}
}

// Config exposes the loaded configuration snapshot.
func (d *Dependencies) Config() *config.Config {
	return d.config
}

// ConfigPath returns the config file the server was started with.
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// baseRequest maps the configuration onto a request for a single module.
// Destinations are cleared: tools return converted source, they never
// write files.
func (d *Dependencies) baseRequest() domain.ConvertRequest {
	req := *service.ConvertRequestFromConfig(d.config)
	req.OutputDir = ""
	req.Suffix = ""
	req.InPlace = false
	return req
}
