// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// Real window system surfaces (XCB, Wayland, Win32, Android) are not
// implemented by this backend; wsi only exposes a dummy, surfaceless
// Window implementation. VK_KHR_surface/VK_KHR_swapchain are still
// requested as optional so that NewSwapchain can report a precise
// driver.ErrCannotPresent instead of failing instance/device creation
// outright on implementations that happen to support them.

// platformInstanceExts returns the platform-specific instance
// extensions to request.
func platformInstanceExts() extInfo {
	return extInfo{optional: []extension{extSurface}}
}

// platformDeviceExts returns the platform-specific device extensions
// to request.
func platformDeviceExts(d *Driver) extInfo {
	return extInfo{optional: []extension{extSwapchain}}
}
