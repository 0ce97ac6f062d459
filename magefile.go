//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target - build the binary
var Default = Build

// Build compiles the tdd-guard-go binary into bin/.
func Build() error {
	return sh.RunV("go", "build", "-o", "bin/tdd-guard-go", "./cmd/tdd-guard-go")
}

// Test runs the full test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs format and vet checks.
func Lint() error {
	if err := sh.RunV("gofmt", "-l", "."); err != nil {
		return fmt.Errorf("format check failed: %w", err)
	}
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm("bin")
}

// QA runs lint, test, and build in order.
func QA() error {
	mg.SerialDeps(Lint, Test, Build)
	return nil
}
