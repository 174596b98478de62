package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
)

// ShaderSource supplies pre-compiled SPIR-V byte-code by name, for example
// "builtin.object.vert".
type ShaderSource interface {
	Bytecode(name string) ([]uint32, error)
}

var programStages = []struct {
	suffix string
	stage  vk.ShaderStageFlagBits
}{
	{"vert", vk.ShaderStageVertexBit},
	{"frag", vk.ShaderStageFragmentBit},
}

// ShaderProgram groups the shader modules of one vertex/fragment pair with
// the layouts a pipeline built from them needs.
type ShaderProgram struct {
	Name      string
	Stages    []ShaderStage
	SetLayout *DescriptorSetLayout
	Layout    *PipelineLayout
}

type ShaderProgramConfig struct {
	Bindings      []vk.DescriptorSetLayoutBinding
	PushConstants []PushConstantRange
}

// NewShaderProgram loads "<name>.vert" and "<name>.frag" from src.
func NewShaderProgram(dev *Device, src ShaderSource, name string, cfg ShaderProgramConfig) (*ShaderProgram, error) {
	sp := &ShaderProgram{Name: name}

	for _, ps := range programStages {
		stageName := fmt.Sprintf("%s.%s", name, ps.suffix)
		code, err := src.Bytecode(stageName)
		if err != nil {
			sp.Destroy()
			return nil, fmt.Errorf("unable to read shader module '%s': %w", stageName, err)
		}
		module, err := CreateShaderModule(dev, code)
		if err != nil {
			sp.Destroy()
			return nil, fmt.Errorf("shader module '%s': %w", stageName, err)
		}
		sp.Stages = append(sp.Stages, ShaderStage{Module: module, Stage: ps.stage})
	}

	var err error
	if sp.SetLayout, err = CreateDescriptorSetLayout(dev, cfg.Bindings); err != nil {
		sp.Destroy()
		return nil, err
	}
	sp.Layout, err = CreatePipelineLayout(dev, PipelineLayoutConfig{
		SetLayouts:         []*DescriptorSetLayout{sp.SetLayout},
		PushConstantRanges: cfg.PushConstants,
	})
	if err != nil {
		sp.Destroy()
		return nil, err
	}

	core.LogDebug("Shader program '%s' created.", name)
	return sp, nil
}

// Pipeline builds a graphics pipeline for renderPass covering extent.
func (sp *ShaderProgram) Pipeline(dev *Device, renderPass vk.RenderPass, extent vk.Extent2D, cfg PipelineConfig) (*Pipeline, error) {
	cfg.RenderPass = renderPass
	cfg.Layout = sp.Layout
	cfg.Stages = sp.Stages
	cfg.Viewport = vk.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	cfg.Scissor = vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	return CreateGraphicsPipeline(dev, &cfg)
}

func (sp *ShaderProgram) Destroy() {
	sp.Layout.Destroy()
	sp.SetLayout.Destroy()
	for _, s := range sp.Stages {
		s.Module.Destroy()
	}
	sp.Stages = nil
	sp.Layout = nil
	sp.SetLayout = nil
}
