package service

import "github.com/kardianos/service"

const (
	ServiceName        = "autotrack"
	ServiceDisplayName = "AutoTrack Service"
	ServiceDescription = "AutoTrack daily cycle - generates, publishes and monetizes tracks once a day"
)

// NewServiceConfig creates a new service configuration
func NewServiceConfig(args []string, workingDir string) *service.Config {
	cfg := &service.Config{
		Name:             ServiceName,
		DisplayName:      ServiceDisplayName,
		Description:      ServiceDescription,
		Arguments:        args,
		WorkingDirectory: workingDir,
	}

	cfg.Option = service.KeyValue{
		// Windows
		"StartType": "automatic",
		// systemd / launchd
		"Restart":   "on-failure",
		"KeepAlive": true,
	}

	return cfg
}
