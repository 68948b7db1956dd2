package main

import (
	"context"

	"github.com/tomyan/sitecheck/internal/chrome"
)

// VersionResult is the browser behind the debug endpoint.
type VersionResult struct {
	*chrome.VersionInfo
	Endpoint string `json:"endpoint"`
}

func (r VersionResult) TextValue() string { return r.Browser }

func cmdVersion(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *chrome.Client) (interface{}, error) {
		info, err := client.Version(ctx)
		if err != nil {
			return nil, err
		}
		return VersionResult{VersionInfo: info, Endpoint: client.WebSocketURL()}, nil
	})
}
