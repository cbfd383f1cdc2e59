package printer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownPrinter = errors.New("printer: not installed on this host")
	ErrDiscovery      = errors.New("printer: discovery failed")
)

// PreferredStore persists the operator's preferred printer choice across
// restarts.
type PreferredStore interface {
	Preferred(ctx context.Context) (string, error)
	SetPreferred(ctx context.Context, name string) error
}

// Directory is the in-memory view of the printers installed on this host,
// plus the operator preference. Discovery shells out to the platform's
// printing system; results are cached until the next Reload.
type Directory struct {
	store PreferredStore
	log   *logrus.Logger

	mu            sync.RWMutex
	installed     []string
	systemDefault string
	preferred     string
}

func NewDirectory(store PreferredStore, log *logrus.Logger) *Directory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Directory{store: store, log: log}
}

// Reload re-runs OS discovery and re-reads the persisted preference. A
// persisted preference naming a printer that has since been uninstalled is
// kept in the store but not surfaced as preferred.
func (d *Directory) Reload(ctx context.Context) error {
	installed, systemDefault, err := discover(ctx)
	if err != nil {
		return err
	}

	preferred := ""
	if d.store != nil {
		name, err := d.store.Preferred(ctx)
		if err != nil {
			d.log.WithError(err).Warn("could not read persisted printer preference")
		} else if name != "" {
			if contains(installed, name) {
				preferred = name
			} else {
				d.log.WithField("printer", name).
					Warn("persisted preferred printer is no longer installed")
			}
		}
	}

	d.mu.Lock()
	d.installed = installed
	d.systemDefault = systemDefault
	d.preferred = preferred
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"installed": len(installed),
		"default":   systemDefault,
		"preferred": preferred,
	}).Info("printer directory reloaded")

	return nil
}

func (d *Directory) ListInstalled() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.installed...)
}

func (d *Directory) SystemDefault() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.systemDefault
}

func (d *Directory) Preferred() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.preferred
}

// Resolve picks the target for a job: an explicit request wins, then the
// operator preference, then the system default.
func (d *Directory) Resolve(requested string) string {
	if requested != "" {
		return requested
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.preferred != "" {
		return d.preferred
	}
	return d.systemDefault
}

// SetPreferred validates the name against the installed list before
// persisting it, so a typo can never silently blackhole future jobs.
func (d *Directory) SetPreferred(ctx context.Context, name string) error {
	d.mu.RLock()
	known := contains(d.installed, name)
	d.mu.RUnlock()

	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownPrinter, name)
	}

	if d.store != nil {
		if err := d.store.SetPreferred(ctx, name); err != nil {
			return fmt.Errorf("persist printer preference: %w", err)
		}
	}

	d.mu.Lock()
	d.preferred = name
	d.mu.Unlock()

	d.log.WithField("printer", name).Info("preferred printer updated")
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func discover(ctx context.Context) ([]string, string, error) {
	if runtime.GOOS == "windows" {
		return discoverWindows(ctx)
	}
	return discoverCUPS(ctx)
}

func discoverCUPS(ctx context.Context) ([]string, string, error) {
	output, err := exec.CommandContext(ctx, "lpstat", "-p", "-d").CombinedOutput()
	if err != nil {
		// lpstat exits non-zero when no destinations exist; that is an
		// empty directory, not a failure.
		if strings.Contains(string(output), "No destinations") ||
			strings.Contains(string(output), "no destinations") {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("%w: lpstat: %v: %s",
			ErrDiscovery, err, strings.TrimSpace(string(output)))
	}
	names, systemDefault := ParseLpstatOutput(string(output))
	return names, systemDefault, nil
}

func discoverWindows(ctx context.Context) ([]string, string, error) {
	listOut, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive",
		"-Command", "Get-Printer | Select-Object -ExpandProperty Name").CombinedOutput()
	if err != nil {
		return nil, "", fmt.Errorf("%w: Get-Printer: %v: %s",
			ErrDiscovery, err, strings.TrimSpace(string(listOut)))
	}
	names := ParseNameList(string(listOut))

	defaultOut, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive",
		"-Command", "(Get-CimInstance Win32_Printer -Filter 'Default=true').Name").CombinedOutput()
	systemDefault := ""
	if err == nil {
		if lines := ParseNameList(string(defaultOut)); len(lines) > 0 {
			systemDefault = lines[0]
		}
	}

	return names, systemDefault, nil
}

// ParseLpstatOutput extracts printer names and the system default from
// `lpstat -p -d` output. Printer lines look like
// "printer EPSON_TM_T20 is idle.  enabled since ..." and the default line
// like "system default destination: EPSON_TM_T20".
func ParseLpstatOutput(output string) (names []string, systemDefault string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "printer "):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				names = append(names, fields[1])
			}
		case strings.HasPrefix(line, "system default destination:"):
			systemDefault = strings.TrimSpace(strings.TrimPrefix(line, "system default destination:"))
		}
	}
	return names, systemDefault
}

// ParseNameList splits command output into trimmed, non-empty lines.
func ParseNameList(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}
