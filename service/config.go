package service

import "github.com/kardianos/service"

const (
	ServiceName        = "adr-fetch"
	ServiceDisplayName = "ADR Fetch Service"
	ServiceDescription = "EMA ADR Report Fetcher - Automatically downloads adverse-drug-reaction Excel reports"
)

// NewServiceConfig creates a new service configuration
func NewServiceConfig(exePath string, args []string) *service.Config {
	cfg := &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
		Arguments:   args,
	}

	// Windows-specific options
	cfg.Option = service.KeyValue{
		"StartType": "automatic",
	}

	return cfg
}
