package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/photon/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the native window. The renderer only consumes the
// window handle to query surface support and create a swapchain; the
// window itself is created and closed here.
type Platform struct {
	Window *glfw.Window
}

func New() *Platform {
	return &Platform{
		Window: nil,
	}
}

func (p *Platform) Startup(applicationName string, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.Show()

	return nil
}

// StartupHeadless initializes GLFW without creating a window. The
// Vulkan loader address still comes from GLFW in headless mode.
func (p *Platform) StartupHeadless() error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// GetRequiredExtensionNames reports the instance extensions the
// windowing system needs for surface creation on the current platform.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// PumpMessages processes pending window events once.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// CloseRequested reports whether the user asked to close the window.
func (p *Platform) CloseRequested() bool {
	return p.Window != nil && p.Window.ShouldClose()
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
}
