// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// TODO: Consider adding a TestMain function here to
// ensure that examples using package wsi run on the
// main thread (doesn't seem necessary currently).

package driver_test

import (
	"log"

	"github.com/kestrelgpu/rhi/driver"
	_ "github.com/kestrelgpu/rhi/driver/vk"
)

var (
	drv driver.Driver
	gpu driver.GPU
)

// TODO: Update when other backends are implemented.
func init() {
	// Select a driver to use.
	drivers := driver.Drivers()
drvLoop:
	for i := range drivers {
		switch drivers[i].Name() {
		case "vulkan":
			drv = drivers[i]
			break drvLoop
		}
	}
	if drv == nil {
		log.Fatal("driver.Drivers(): driver not found")
	}
	var err error
	gpu, err = drv.Open()
	if err != nil {
		log.Fatal(err)
	}
	// Ideally, we should call drv.Close somewhere.
}
