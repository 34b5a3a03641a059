//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Tidies the module and builds every package.
func (Build) All() error {
	if err := goTidy(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "./..."), withStream())
	return err
}

// Builds the engine binary into bin/.
func (Build) Engine() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/hybrid", "."), withStream())
	return err
}
