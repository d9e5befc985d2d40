//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the ray-tracing shaders to SPIR-V 1.4.
func (Build) Shaders() error {
	shaders := []struct{ src, dst string }{
		{"shaders/raygen.rgen", "shaders/raygen.spv"},
		{"shaders/miss.rmiss", "shaders/miss.spv"},
		{"shaders/closesthit.rchit", "shaders/closesthit.spv"},
	}
	for _, s := range shaders {
		if _, err := executeCmd("glslc", withArgs("--target-spv=spv1.4", s.src, "-o", s.dst), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the photon binary.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "photon", "."), withStream()); err != nil {
		return err
	}
	return nil
}
