package main

// Build metadata, injected at build time via -ldflags:
//
//	-X main.Version=v1.2.3 -X main.Commit=abc1234 -X main.BuildTime=2026-01-02T15:04:05Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)
