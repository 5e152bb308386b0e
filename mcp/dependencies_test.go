package mcp

import (
	"github.com/ludo-technologies/pystage/domain"
	"github.com/ludo-technologies/pystage/internal/config"
	"github.com/ludo-technologies/pystage/service"
)

func NewTestDependencies(fr domain.FileReader, cfg *config.Config, path string) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Dependencies{
		service:    service.NewConvertService(service.WithFileReader(fr)),
		fileReader: fr,
		config:     cfg,
		configPath: path,
	}
}
