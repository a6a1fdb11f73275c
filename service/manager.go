package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	svc "github.com/kardianos/service"
)

// Commands accepted by RunServiceCommand
var Commands = []string{"install", "uninstall", "start", "stop", "restart", "status", "run"}

// Manager handles service management operations
type Manager struct {
	service svc.Service
	program *Program
}

// NewManager registers prg with the OS service manager. configPath, when set,
// is passed back to "autotrack service run" as an absolute path.
func NewManager(prg *Program, configPath string) (*Manager, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg := NewServiceConfig(buildServiceArgs(configPath), workDir)
	s, err := svc.New(prg, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &Manager{service: s, program: prg}, nil
}

// buildServiceArgs builds the command line the service manager starts
func buildServiceArgs(configPath string) []string {
	args := []string{"service", "run"}
	if configPath == "" {
		return args
	}
	if !filepath.IsAbs(configPath) {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
	}
	return append(args, "--config", configPath)
}

func (m *Manager) Install() error   { return m.service.Install() }
func (m *Manager) Uninstall() error { return m.service.Uninstall() }
func (m *Manager) Start() error     { return m.service.Start() }
func (m *Manager) Stop() error      { return m.service.Stop() }
func (m *Manager) Restart() error   { return m.service.Restart() }

// Run runs the program in the foreground or under the service manager
func (m *Manager) Run() error { return m.service.Run() }

func (m *Manager) Status() (svc.Status, error) {
	return m.service.Status()
}

// RunServiceCommand handles service management commands
func RunServiceCommand(cmd string, mgr *Manager, logger *slog.Logger) error {
	switch cmd {
	case "install":
		if err := mgr.Install(); err != nil {
			return fmt.Errorf("failed to install service: %w", err)
		}
		logger.Info("service installed", "name", ServiceName)
		logger.Info("to start the service, run: autotrack service start")

	case "uninstall":
		_ = mgr.Stop()
		if err := mgr.Uninstall(); err != nil {
			return fmt.Errorf("failed to uninstall service: %w", err)
		}
		logger.Info("service uninstalled")

	case "start":
		if err := mgr.Start(); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		logger.Info("service started")

	case "stop":
		if err := mgr.Stop(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		logger.Info("service stopped")

	case "restart":
		if err := mgr.Restart(); err != nil {
			return fmt.Errorf("failed to restart service: %w", err)
		}
		logger.Info("service restarted")

	case "status":
		status, err := mgr.Status()
		if err != nil {
			return fmt.Errorf("failed to get service status: %w", err)
		}
		logger.Info("service status", "status", statusText(status))

	case "run":
		return mgr.Run()

	default:
		return fmt.Errorf("unknown service command: %s (valid: %v)", cmd, Commands)
	}

	return nil
}

func statusText(status svc.Status) string {
	switch status {
	case svc.StatusRunning:
		return "running"
	case svc.StatusStopped:
		return "stopped"
	}
	return "unknown"
}
