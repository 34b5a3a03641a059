//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the engine with hybrid.toml when present, the defaults otherwise.
func (Run) Engine() error {
	args := []string{"run", "."}
	if _, err := os.Stat("hybrid.toml"); err == nil {
		args = append(args, "-config", "hybrid.toml")
	}
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs(args...), withStream())
	return err
}

// Renders a short run that walks through every antialiasing mode.
func (Run) Cycle() error {
	_, err := executeCmd("go", withArgs("run", ".", "-cycle", "30"), withStream())
	return err
}
