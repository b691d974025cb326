package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"botcore/pkg/config"
)

const stopTimeout = 30 * time.Second

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage botcore as a system service",
	Long: `Install and control botcore as a system service.

Examples:
  # Install as system service (requires sudo/admin privileges)
  sudo botcore service install

  # Control the service
  sudo botcore service start
  sudo botcore service stop
  sudo botcore service restart
  botcore service status

  # Uninstall the service
  sudo botcore service uninstall`,
}

// botService implements service.Interface for the Discord app.
type botService struct {
	app    *fx.App
	logger service.Logger
}

// Start implements service.Interface. It must not block.
func (s *botService) Start(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Starting botcore service")
	}

	s.app = newApp(fx.NopLogger)
	if err := s.app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.app.Start(ctx)
}

// Stop implements service.Interface.
func (s *botService) Stop(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Stopping botcore service")
	}
	if s.app == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.app.Stop(ctx); err != nil {
		if s.logger != nil {
			s.logger.Errorf("Error stopping service: %v", err)
		}
		return err
	}
	return nil
}

// ServiceConfig returns the service definition. The config location is
// passed on so the service reads the same file as the installing shell.
func ServiceConfig() *service.Config {
	args := []string{"run"}
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ConfigPathEnv))
	}
	if path != "" {
		args = append([]string{"-c", path}, args...)
	}

	return &service.Config{
		Name:        "botcore",
		DisplayName: "botcore",
		Description: "Text command engine for Discord bots",
		Arguments:   args,
	}
}

func newService() (service.Service, *botService, error) {
	prg := &botService{}
	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("creating service: %w", err)
	}
	return s, prg, nil
}

// RunService runs under the service manager until it stops the service.
func RunService() error {
	s, prg, err := newService()
	if err != nil {
		return err
	}

	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	if err := s.Run(); err != nil {
		logger.Error(err)
		return err
	}
	return nil
}

// StatusText renders a service status.
func StatusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Running"
	case service.StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// serviceAction builds a subcommand that runs one service control action.
func serviceAction(use, short, done string, action func(service.Service) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := newService()
			if err != nil {
				return err
			}
			if err := action(s); err != nil {
				return fmt.Errorf("%s service: %w (system services need administrator privileges)", use, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newService()
		if err != nil {
			return err
		}
		status, err := s.Status()
		if err != nil {
			return fmt.Errorf("getting service status: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Service Status: %s\n", StatusText(status))
		return nil
	},
}

func init() {
	serviceCmd.AddCommand(
		serviceAction("install", "Install botcore as a system service", "Service installed successfully!", service.Service.Install),
		serviceAction("uninstall", "Uninstall the botcore service", "Service uninstalled successfully!", service.Service.Uninstall),
		serviceAction("start", "Start the botcore service", "Service started successfully!", service.Service.Start),
		serviceAction("stop", "Stop the botcore service", "Service stopped successfully!", service.Service.Stop),
		serviceAction("restart", "Restart the botcore service", "Service restarted successfully!", service.Service.Restart),
		serviceStatusCmd,
	)
}
