// Package test builds the controlled target programs the scenario tests
// attach to.
package test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

var tmpDir string

// Build compiles the fixture with the given name and returns the binary
// path. Fixtures are built with optimizations and inlining off so their
// reported addresses stay meaningful.
func Build(name string) string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		fmt.Fprintln(os.Stderr, "cannot find source file")
		os.Exit(1)
	}

	fixt := filepath.Join(filepath.Dir(filename), "fixtures", name+".go")
	binary := filepath.Join(tmpDir, name)
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}

	flags := []string{"build", "-gcflags=all=-N -l", "-o", binary, fixt}

	cmd := exec.Command("go", flags...)
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to build test binary: ", err)
		fmt.Fprintln(os.Stderr, string(out))
		os.Exit(1)
	}
	return binary
}

// Run owns the temp dir the fixtures are built into.
func Run(m *testing.M) int {
	var err error
	tmpDir, err = os.MkdirTemp("", "windbg-")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	return code
}
