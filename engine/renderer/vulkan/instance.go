package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/photon/engine/core"
)

// ValidationLayerConfig is the set of instance layers requested at
// startup. It is built once from the debug flag and is immutable
// afterwards.
type ValidationLayerConfig struct {
	Layers  []string
	Enabled bool
}

func NewValidationLayerConfig(debug bool) *ValidationLayerConfig {
	if !debug {
		return &ValidationLayerConfig{}
	}
	return &ValidationLayerConfig{
		Layers:  []string{"VK_LAYER_KHRONOS_validation"},
		Enabled: true,
	}
}

// CheckSupport verifies every requested layer against the layers the
// loader actually exposes.
func (v *ValidationLayerConfig) CheckSupport() error {
	if !v.Enabled {
		return nil
	}

	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}

	for _, required := range v.Layers {
		core.LogDebug("searching for layer: %s...", required)
		found := false
		for j := range availableLayers {
			availableLayers[j].Deref()
			end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
			if required == string(availableLayers[j].LayerName[:end]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", required)
		}
	}
	core.LogInfo("all required validation layers are present")
	return nil
}

// The debug report callback is a raw C function pointer with no room
// for a Go closure, so the active sink lives here. It is set once
// during InstanceCreate, before the messenger exists.
var diagnosticSink core.DiagnosticSink = core.NoopDiagnosticSink{}

// InstanceCreate builds the Vulkan instance with the given extension
// list, registers the diagnostic sink and, when validation is enabled,
// creates the debug messenger that feeds it.
func InstanceCreate(context *VulkanContext, appName string, extensions []string, validation *ValidationLayerConfig, sink core.DiagnosticSink) error {
	if sink != nil {
		diagnosticSink = sink
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Photon Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if validation.Enabled {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("instance extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)

	if err := validation.CheckSupport(); err != nil {
		return err
	}
	createInfo.EnabledLayerCount = uint32(len(validation.Layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validation.Layers)

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		return fmt.Errorf("failed to create Vulkan instance: %s", VulkanResultString(res))
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan instance created")

	if validation.Enabled {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
			PfnCallback: dbgCallbackFunc,
		}

		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			return fmt.Errorf("failed to create debug messenger: %s", VulkanResultString(res))
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debug messenger created")
	}

	return nil
}

// InstanceDestroy tears down the debug messenger and the instance.
// Must run after every object created against the instance is gone.
func InstanceDestroy(context *VulkanContext) {
	if context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	if context.Instance != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	event := core.DiagnosticEvent{
		Severity: core.DiagnosticSeverityVerbose,
		Category: core.DiagnosticCategoryGeneral,
		Message:  fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage),
	}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		event.Severity = core.DiagnosticSeverityError
		event.Category = core.DiagnosticCategoryValidation
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		event.Severity = core.DiagnosticSeverityWarning
		event.Category = core.DiagnosticCategoryPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		event.Severity = core.DiagnosticSeverityWarning
		event.Category = core.DiagnosticCategoryValidation
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		event.Severity = core.DiagnosticSeverityInfo
	}
	diagnosticSink.Handle(event)

	// The messenger must never abort the call that triggered it.
	return vk.False
}
