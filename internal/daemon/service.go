package daemon

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"
)

const (
	launchdLabel = "dev.allaspects.procgate"
	systemdUnit  = "procgate.service"
)

// launchdPlistTemplate runs procgate as a persistent macOS user agent.
const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ProgramPath}}</string>
        <string>serve</string>
        <string>--foreground</string>
    </array>

    <key>WorkingDirectory</key>
    <string>{{.WorkingDir}}</string>

    <key>KeepAlive</key>
    <true/>

    <key>RunAtLoad</key>
    <true/>

    <key>StandardOutPath</key>
    <string>{{.LogDir}}/procgate.out.log</string>

    <key>StandardErrorPath</key>
    <string>{{.LogDir}}/procgate.err.log</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>5</integer>
</dict>
</plist>
`

// systemdUnitTemplate runs procgate as a systemd user service.
const systemdUnitTemplate = `[Unit]
Description=procgate stored procedure gateway
After=network-online.target

[Service]
ExecStart={{.ProgramPath}} serve --foreground
WorkingDirectory={{.WorkingDir}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

type serviceData struct {
	Label       string
	ProgramPath string
	WorkingDir  string
	LogDir      string
}

// renderService writes the service definition for goos to w.
func renderService(w io.Writer, goos string, data serviceData) error {
	src := systemdUnitTemplate
	if goos == "darwin" {
		src = launchdPlistTemplate
	}
	tmpl, err := template.New("service").Parse(src)
	if err != nil {
		return fmt.Errorf("parsing service template: %w", err)
	}
	return tmpl.Execute(w, data)
}

// servicePath is where the service definition for goos is installed.
func servicePath(homeDir, goos string) string {
	if goos == "darwin" {
		return filepath.Join(homeDir, "Library", "LaunchAgents", launchdLabel+".plist")
	}
	return filepath.Join(homeDir, ".config", "systemd", "user", systemdUnit)
}

// InstallService installs procgate as a user service: a launchd agent on
// macOS, a systemd user unit elsewhere. dataDir becomes the working and
// log directory.
func InstallService(dataDir string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("determining executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolving executable symlinks: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := servicePath(homeDir, runtime.GOOS)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating service directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating service file %s: %w", path, err)
	}
	defer f.Close()

	data := serviceData{
		Label:       launchdLabel,
		ProgramPath: execPath,
		WorkingDir:  dataDir,
		LogDir:      dataDir,
	}
	if err := renderService(f, runtime.GOOS, data); err != nil {
		return fmt.Errorf("writing service file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing service file: %w", err)
	}

	fmt.Printf("Service file written to %s\n", path)

	if runtime.GOOS == "darwin" {
		_ = exec.Command("launchctl", "unload", path).Run()
		if err := run("launchctl", "load", path); err != nil {
			return fmt.Errorf("launchctl load: %w", err)
		}
		fmt.Printf("Service %s loaded via launchctl\n", launchdLabel)
		return nil
	}

	if err := run("systemctl", "--user", "daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	if err := run("systemctl", "--user", "enable", "--now", systemdUnit); err != nil {
		return fmt.Errorf("systemctl enable: %w", err)
	}
	fmt.Printf("Service %s enabled via systemctl\n", systemdUnit)
	return nil
}

// UninstallService stops the service and removes its definition.
func UninstallService() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	path := servicePath(homeDir, runtime.GOOS)
	if runtime.GOOS == "darwin" {
		_ = exec.Command("launchctl", "unload", path).Run()
	} else {
		_ = exec.Command("systemctl", "--user", "disable", "--now", systemdUnit).Run()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing service file: %w", err)
	}

	fmt.Printf("Service removed (%s)\n", path)
	return nil
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
