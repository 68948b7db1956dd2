// Package testutil provides a local Chrome and a fake copy of the site for
// tests.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomyan/sitecheck/internal/chrome"
	"github.com/tomyan/sitecheck/internal/chrome/launcher"
)

// StartChrome launches headless Chrome with remote debugging on port. The
// instance must be stopped with Stop.
func StartChrome(port int) (*launcher.Instance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return launcher.Launch(ctx, launcher.Options{Port: port, Headless: true})
}

// ChromeClient starts Chrome on port and connects to it, skipping the test
// when Chrome is not installed. Both are torn down with the test.
func ChromeClient(t testing.TB, port int) *chrome.Client {
	t.Helper()

	inst, err := StartChrome(port)
	if errors.Is(err, launcher.ErrChromeNotFound) {
		t.Skip("Chrome not found on this system")
	}
	if err != nil {
		t.Fatalf("starting Chrome: %v", err)
	}
	t.Cleanup(func() { inst.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := chrome.Connect(ctx, "localhost", port)
	if err != nil {
		t.Fatalf("connecting to Chrome: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
