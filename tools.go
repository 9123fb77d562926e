//go:build tools
// +build tools

// Package tools tracks code generators as module dependencies so that
// `go generate ./...` works on a fresh checkout.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
