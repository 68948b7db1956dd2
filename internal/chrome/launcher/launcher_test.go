package launcher

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFindChrome(t *testing.T) {
	t.Parallel()

	path := FindChrome("")
	if path == "" {
		t.Skip("Chrome not found on this system")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("FindChrome returned path that doesn't exist: %s", path)
	}
}

func TestFindChrome_ExplicitPath(t *testing.T) {
	t.Parallel()

	if path := FindChrome("/bin/sh"); path != "/bin/sh" {
		t.Errorf("FindChrome with explicit path: want /bin/sh, got %s", path)
	}
	if path := FindChrome("/nonexistent/chrome"); path != "" {
		t.Errorf("FindChrome with nonexistent explicit path: want empty, got %s", path)
	}
}

func TestIsPortOpen(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if !IsPortOpen("127.0.0.1", port) {
		t.Errorf("port %d should be open while listening", port)
	}
	ln.Close()
	if IsPortOpen("127.0.0.1", port) {
		t.Errorf("port %d should be closed after listener closed", port)
	}
}

func TestWaitForPort_Timeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := WaitForPort(ctx, "localhost", 19999)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("want deadline exceeded, got %v", err)
	}
}

func TestChromeArgs(t *testing.T) {
	t.Parallel()

	args := chromeArgs(Options{Port: 9333, Headless: true}, "/tmp/data")
	joined := strings.Join(args, " ")

	for _, want := range []string{"--remote-debugging-port=9333", "--user-data-dir=/tmp/data", "--headless=new"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "about:blank" {
		t.Errorf("last arg: want about:blank, got %s", args[len(args)-1])
	}

	headed := strings.Join(chromeArgs(Options{Port: 9333}, "/tmp/data"), " ")
	if strings.Contains(headed, "--headless") {
		t.Errorf("headed launch should not pass --headless: %s", headed)
	}
}

func TestLaunch_InvalidChromePath(t *testing.T) {
	t.Parallel()

	_, err := Launch(context.Background(), Options{ChromePath: "/nonexistent/chrome", Port: 19877, Headless: true})
	if !errors.Is(err, ErrChromeNotFound) {
		t.Errorf("want ErrChromeNotFound, got %v", err)
	}
}

func TestLaunchAndStop(t *testing.T) {
	t.Parallel()

	chromePath := FindChrome("")
	if chromePath == "" {
		t.Skip("Chrome not found on this system")
	}

	inst, err := Launch(context.Background(), Options{ChromePath: chromePath, Port: 19876, Headless: true})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	dataDir := inst.DataDir

	if !IsPortOpen("localhost", 19876) {
		t.Error("port should be open after launch")
	}

	info, err := DetectRunning(context.Background(), "localhost", 19876)
	if err != nil {
		t.Fatalf("DetectRunning failed: %v", err)
	}
	if info.WebSocketDebuggerURL == "" {
		t.Error("expected a websocket debugger URL")
	}

	if err := inst.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if IsPortOpen("localhost", 19876) {
		t.Error("port should be closed after stop")
	}
	if _, err := os.Stat(dataDir); !os.IsNotExist(err) {
		t.Errorf("owned data dir should be removed on stop, stat err: %v", err)
	}
}

func TestLaunch_CustomDataDir(t *testing.T) {
	t.Parallel()

	chromePath := FindChrome("")
	if chromePath == "" {
		t.Skip("Chrome not found on this system")
	}

	dataDir := t.TempDir()
	inst, err := Launch(context.Background(), Options{ChromePath: chromePath, Port: 19878, Headless: true, DataDir: dataDir})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	inst.Stop()

	if _, err := os.Stat(dataDir); err != nil {
		t.Error("user-provided data dir should not be removed on stop")
	}
}
