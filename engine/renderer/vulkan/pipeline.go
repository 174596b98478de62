package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkutility/engine/core"
)

type (
	ShaderModule        = Owned[vk.ShaderModule]
	DescriptorSetLayout = Owned[vk.DescriptorSetLayout]
	PipelineLayout      = Owned[vk.PipelineLayout]
	Pipeline            = Owned[vk.Pipeline]
)

// NOTE: 32 is the max number of ranges we can ever have, since the API only
// guarantees 128 bytes with 4-byte alignment.
const maxPushConstantRanges = 32

func requireDevice(dev *Device, what string) error {
	if dev == nil || !dev.Valid() {
		return fmt.Errorf("%w: %s requires a live device", core.ErrResourceCreation, what)
	}
	return nil
}

// CreateShaderModule wraps pre-compiled SPIR-V byte-code.
func CreateShaderModule(dev *Device, code []uint32) (*ShaderModule, error) {
	if err := requireDevice(dev, "shader module"); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: empty shader byte-code", core.ErrResourceCreation)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	drv := dev.Driver()
	device := dev.Handle()
	handle, res := drv.CreateShaderModule(device, &createInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreateShaderModule", res)
	}
	return newOwned(drv, "shader module", handle, func(m vk.ShaderModule) {
		drv.DestroyShaderModule(device, m)
	}, dev), nil
}

func CreateDescriptorSetLayout(dev *Device, bindings []vk.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	if err := requireDevice(dev, "descriptor set layout"); err != nil {
		return nil, err
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	drv := dev.Driver()
	device := dev.Handle()
	handle, res := drv.CreateDescriptorSetLayout(device, &createInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreateDescriptorSetLayout", res)
	}
	return newOwned(drv, "descriptor set layout", handle, func(l vk.DescriptorSetLayout) {
		drv.DestroyDescriptorSetLayout(device, l)
	}, dev), nil
}

type PushConstantRange struct {
	Offset uint32
	Size   uint32
}

type PipelineLayoutConfig struct {
	SetLayouts         []*DescriptorSetLayout
	PushConstantRanges []PushConstantRange
}

func CreatePipelineLayout(dev *Device, cfg PipelineLayoutConfig) (*PipelineLayout, error) {
	if err := requireDevice(dev, "pipeline layout"); err != nil {
		return nil, err
	}
	if len(cfg.PushConstantRanges) > maxPushConstantRanges {
		return nil, fmt.Errorf("%w: cannot have more than %d push constant ranges, got %d",
			core.ErrResourceCreation, maxPushConstantRanges, len(cfg.PushConstantRanges))
	}

	setLayouts := make([]vk.DescriptorSetLayout, 0, len(cfg.SetLayouts))
	for _, l := range cfg.SetLayouts {
		if !l.Valid() {
			return nil, fmt.Errorf("%w: pipeline layout references a destroyed descriptor set layout", core.ErrResourceCreation)
		}
		setLayouts = append(setLayouts, l.Handle())
	}

	var ranges []vk.PushConstantRange
	for _, r := range cfg.PushConstantRanges {
		ranges = append(ranges, vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     r.Offset,
			Size:       r.Size,
		})
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	drv := dev.Driver()
	device := dev.Handle()
	handle, res := drv.CreatePipelineLayout(device, &createInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreatePipelineLayout", res)
	}
	return newOwned(drv, "pipeline layout", handle, func(l vk.PipelineLayout) {
		drv.DestroyPipelineLayout(device, l)
	}, dev), nil
}

// ShaderStage binds a shader module to a pipeline stage.
type ShaderStage struct {
	Module *ShaderModule
	Stage  vk.ShaderStageFlagBits
	// Entry defaults to "main".
	Entry string
}

type PipelineConfig struct {
	// RenderPass is only read at creation; the pipeline does not keep it alive.
	RenderPass vk.RenderPass
	Layout     *PipelineLayout
	Stages     []ShaderStage

	// Stride of one vertex, ex: the size of a vertex struct.
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription

	Viewport vk.Viewport
	Scissor  vk.Rect2D

	CullMode   vk.CullModeFlagBits
	Wireframe  bool
	DepthTest  bool
	DepthWrite bool
}

// CreateGraphicsPipeline builds a graphics pipeline with alpha blending and
// dynamic viewport, scissor and line width.
func CreateGraphicsPipeline(dev *Device, cfg *PipelineConfig) (*Pipeline, error) {
	if err := requireDevice(dev, "graphics pipeline"); err != nil {
		return nil, err
	}
	if !cfg.Layout.Valid() {
		return nil, fmt.Errorf("%w: graphics pipeline requires a live pipeline layout", core.ErrResourceCreation)
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		if !s.Module.Valid() {
			return nil, fmt.Errorf("%w: graphics pipeline references a destroyed shader module", core.ErrResourceCreation)
		}
		entry := s.Entry
		if entry == "" {
			entry = "main"
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  s.Stage,
			Module: s.Module.Handle(),
			PName:  VulkanSafeString(entry),
		})
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{cfg.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{cfg.Scissor},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(cfg.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if cfg.Wireframe {
		rasterizer.PolygonMode = vk.PolygonModeLine
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if cfg.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	if cfg.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateLineWidth,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if cfg.Stride > 0 {
		vertexInput.VertexBindingDescriptionCount = 1
		vertexInput.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    cfg.Stride,
			InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
		}}
		vertexInput.VertexAttributeDescriptionCount = uint32(len(cfg.Attributes))
		vertexInput.PVertexAttributeDescriptions = cfg.Attributes
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              cfg.Layout.Handle(),
		RenderPass:          cfg.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	drv := dev.Driver()
	device := dev.Handle()
	handle, res := drv.CreateGraphicsPipeline(device, &createInfo)
	if res != vk.Success {
		return nil, newResultError(core.ErrResourceCreation, "vkCreateGraphicsPipelines", res)
	}
	core.LogDebug("Graphics pipeline created!")
	return newOwned(drv, "pipeline", handle, func(p vk.Pipeline) {
		drv.DestroyPipeline(device, p)
	}, dev), nil
}
