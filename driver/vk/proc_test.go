// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"testing"
)

var tProcErr error

func init() {
	// C.getInstanceProcAddr should be valid only after proc.open is called.
	d := Driver{}
	if tProcErr = checkProcOpen(); tProcErr == nil {
		tProcErr = errors.New("checkProcOpen(): unexpected nil error")
		return
	}
	if tProcErr = d.open(); tProcErr != nil {
		return
	}
	defer d.Close()
	if tProcErr = checkProcOpen(); tProcErr != nil {
		return
	}

	// Global and instance-level procs other than C.getInstanceProcAddr should
	// be valid only after d.initInstance is called.
	if tProcErr = checkProcInstance(); tProcErr == nil {
		tProcErr = errors.New("checkProcInstance(): unexpected nil error")
		return
	}
	if d.initInstance() != nil {
		// Not a proc error.
		return
	}
	if tProcErr = checkProcInstance(); tProcErr != nil {
		return
	}

	// Device-level procs other than C.getDeviceProcAddr should be valid only
	// after d.initDevice is called.
	if tProcErr = checkProcDevice(); tProcErr == nil {
		tProcErr = errors.New("checkProcDevice(): unexpected nil error")
		return
	}
	if d.initDevice() != nil {
		// Not a proc error.
		return
	}
	tProcErr = checkProcDevice()
}

// NOTE: The bulk of this test runs on init, before TestMain opens
// tDrv, because proc's function pointers are C global variables and
// the checks would race an open driver otherwise.
func TestProc(t *testing.T) {
	if tProcErr != nil {
		t.Fatal(tProcErr)
	}
}
