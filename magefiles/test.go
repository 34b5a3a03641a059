//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every test with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Runs the tests that need no GPU, with cgo disabled to prove it.
func (Test) Software() error {
	_, err := executeCmd("go", withArgs("test", "./engine/core/...", "./engine/config/...", "./engine/containers/...",
		"./engine/math/...", "./engine/renderer/metadata/...", "./engine/renderer/passes/...",
		"./engine/renderer/software/...", "./engine/renderer/targets/...", "./engine/scene/...",
		"./engine/systems/..."), withEnv(map[string]string{"CGO_ENABLED": "0"}), withStream())
	return err
}
