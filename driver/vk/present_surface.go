// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"github.com/kestrelgpu/rhi/driver"
	"github.com/kestrelgpu/rhi/wsi"
)

// initSurface creates a new surface from s.win.
// s.d and s.win must have been set to valid values.
// It sets the qfam and sf fields of s.
//
// This backend only targets wsi's dummy implementation, so the sole
// supported platform is wsi.None, for which there is no real surface
// to create: NewSwapchain always fails with driver.ErrCannotPresent.
// Any future platform backend should add its own initSurface variant
// gated on wsi.PlatformInUse rather than extending this switch.
func (s *swapchain) initSurface() error {
	switch wsi.PlatformInUse() {
	case wsi.None:
		return driver.ErrCannotPresent
	}
	return driver.ErrCannotPresent
}
