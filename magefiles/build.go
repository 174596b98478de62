//go:build mage

package main

import (
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL source in assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the vkutility binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkutility", "."), withStream())
	return err
}

// builtin.object.vert.glsl compiles to builtin.object.vert.spv.
func buildShaders() error {
	sources, err := filepath.Glob(filepath.Join(shaderDir, "*.glsl"))
	if err != nil {
		return err
	}
	for _, src := range sources {
		out := strings.TrimSuffix(src, ".glsl") + ".spv"
		stage := strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(src, ".glsl")), ".")
		if _, err := executeCmd("glslc", withArgs("-fshader-stage="+stage, src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}
