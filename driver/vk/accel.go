// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <proc.h>
import "C"

import (
	"errors"

	"github.com/kestrelgpu/rhi/driver"
)

// accelStruct implements driver.AccelStruct.
// It owns the buffer that backs the acceleration structure's
// storage.
type accelStruct struct {
	d   *Driver
	m   *memory
	buf C.VkBuffer
	as  C.VkAccelerationStructureKHR
}

// NewAccelStruct creates a top-level acceleration structure with
// size bytes of backing storage.
func (d *Driver) NewAccelStruct(size int64) (driver.AccelStruct, error) {
	if !d.exts[extAccelStruct] {
		return nil, errors.New("vk: acceleration structures not supported")
	}

	binfo := C.VkBufferCreateInfo{
		sType:       C.VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO,
		size:        C.VkDeviceSize(size),
		usage:       C.VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_STORAGE_BIT_KHR,
		sharingMode: C.VK_SHARING_MODE_EXCLUSIVE,
	}
	var buf C.VkBuffer
	if err := checkResult(C.vkCreateBuffer(d.dev, &binfo, nil, &buf)); err != nil {
		return nil, err
	}
	var req C.VkMemoryRequirements
	C.vkGetBufferMemoryRequirements(d.dev, buf, &req)
	m, err := d.newMemory(req, false)
	if err != nil {
		C.vkDestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	if err := checkResult(C.vkBindBufferMemory(d.dev, buf, m.mem, 0)); err != nil {
		m.free()
		C.vkDestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	m.bound = true

	info := C.VkAccelerationStructureCreateInfoKHR{
		sType:  C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR,
		buffer: buf,
		size:   C.VkDeviceSize(size),
		_type:  C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR,
	}
	var as C.VkAccelerationStructureKHR
	if err := checkResult(C.vkCreateAccelerationStructureKHR(d.dev, &info, nil, &as)); err != nil {
		m.free()
		C.vkDestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	return &accelStruct{
		d:   d,
		m:   m,
		buf: buf,
		as:  as,
	}, nil
}

// Destroy destroys the acceleration structure and its backing
// storage.
func (a *accelStruct) Destroy() {
	if a == nil {
		return
	}
	if a.d != nil {
		C.vkDestroyAccelerationStructureKHR(a.d.dev, a.as, nil)
		C.vkDestroyBuffer(a.d.dev, a.buf, nil)
		a.m.free()
	}
	*a = accelStruct{}
}
