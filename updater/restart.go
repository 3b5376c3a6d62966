package updater

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// RestartService restarts the Windows service after update
func RestartService(serviceName string, logger *log.Logger) error {
	if runtime.GOOS != "windows" {
		return fmt.Errorf("service restart only supported on Windows")
	}

	logger.Println("Scheduling service restart...")

	// Delay the restart so the current request can complete
	go func() {
		time.Sleep(2 * time.Second)

		stopCmd := exec.Command("sc", "stop", serviceName)
		if err := stopCmd.Run(); err != nil {
			logger.Printf("Warning: failed to stop service: %v", err)
		}

		time.Sleep(3 * time.Second)

		startCmd := exec.Command("sc", "start", serviceName)
		if err := startCmd.Run(); err != nil {
			logger.Printf("Warning: failed to start service: %v", err)
		}
	}()

	return nil
}

// RestartSelf restarts the current process (for non-service mode)
func RestartSelf(logger *log.Logger) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logger.Println("Restarting application...")

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}

	os.Exit(0)
	return nil
}
