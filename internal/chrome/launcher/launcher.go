// Package launcher finds a local Chrome, starts it with remote debugging
// enabled and tears it down again.
package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// ErrChromeNotFound is returned when no Chrome binary can be located.
var ErrChromeNotFound = errors.New("chrome not found")

// Options configures a Chrome launch.
type Options struct {
	ChromePath string // auto-detected if empty
	Port       int    // remote debugging port
	Headless   bool
	DataDir    string        // temp dir created and removed if empty
	StartWait  time.Duration // how long to wait for the debug port, 30s if zero
}

// Instance is a running Chrome process.
type Instance struct {
	cmd      *exec.Cmd
	Port     int
	PID      int
	DataDir  string
	ownsData bool
}

// candidates lists known install locations per GOOS.
var candidates = map[string][]string{
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	},
}

// FindChrome returns chromePath if it exists, otherwise searches PATH and
// the usual install locations. It returns "" when nothing is found.
func FindChrome(chromePath string) string {
	if chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
		return ""
	}

	for _, name := range []string{"google-chrome", "chromium", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range candidates[runtime.GOOS] {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// IsPortOpen reports whether host:port accepts TCP connections.
func IsPortOpen(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitForPort blocks until host:port accepts connections or ctx ends.
func WaitForPort(ctx context.Context, host string, port int) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if IsPortOpen(host, port) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", net.JoinHostPort(host, strconv.Itoa(port)), ctx.Err())
		case <-ticker.C:
		}
	}
}

func chromeArgs(opts Options, dataDir string) []string {
	args := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-extensions",
		"--disable-background-networking",
		"--disable-sync",
		"--disable-translate",
		"--disable-popup-blocking",
		"--mute-audio",
		"--no-first-run",
		"--disable-default-apps",
		"--remote-debugging-port=" + strconv.Itoa(opts.Port),
		"--user-data-dir=" + dataDir,
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	return append(args, "about:blank")
}

// Launch starts Chrome and waits for its debugging port to open.
func Launch(ctx context.Context, opts Options) (*Instance, error) {
	chromePath := FindChrome(opts.ChromePath)
	if chromePath == "" {
		return nil, ErrChromeNotFound
	}

	inst := &Instance{Port: opts.Port, DataDir: opts.DataDir}
	if inst.DataDir == "" {
		dir, err := os.MkdirTemp("", "sitecheck-chrome-*")
		if err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		inst.DataDir = dir
		inst.ownsData = true
	}

	inst.cmd = exec.Command(chromePath, chromeArgs(opts, inst.DataDir)...)
	if err := inst.cmd.Start(); err != nil {
		inst.cleanup()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	inst.PID = inst.cmd.Process.Pid

	wait := opts.StartWait
	if wait <= 0 {
		wait = 30 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := WaitForPort(waitCtx, "localhost", opts.Port); err != nil {
		inst.Stop()
		return nil, fmt.Errorf("chrome failed to start: %w", err)
	}
	return inst, nil
}

// Info is the /json/version document of a running Chrome.
type Info struct {
	Browser              string `json:"Browser"`
	Protocol             string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	V8                   string `json:"V8-Version"`
	WebKit               string `json:"WebKit-Version"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// DetectRunning returns version info if a debug endpoint answers on host:port.
func DetectRunning(ctx context.Context, host string, port int) (*Info, error) {
	url := fmt.Sprintf("http://%s/json/version", net.JoinHostPort(host, strconv.Itoa(port)))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chrome not reachable at %s:%d: %w", host, port, err)
	}
	defer resp.Body.Close()

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parsing version info: %w", err)
	}
	return &info, nil
}

// Stop kills the process and removes a data dir created by Launch.
func (inst *Instance) Stop() error {
	if inst.cmd != nil && inst.cmd.Process != nil {
		inst.cmd.Process.Kill()
		inst.cmd.Wait()

		// Renderer and GPU helpers outlive the parent when killed.
		if inst.DataDir != "" && runtime.GOOS != "windows" {
			exec.Command("pkill", "-9", "-f", inst.DataDir).Run()
		}
		inst.cmd = nil
	}
	inst.cleanup()
	return nil
}

func (inst *Instance) cleanup() {
	if inst.ownsData && inst.DataDir != "" {
		time.Sleep(100 * time.Millisecond)
		os.RemoveAll(inst.DataDir)
		inst.DataDir = ""
	}
}
