// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"log"
	"os"
	"strings"
	"testing"
	"unsafe"
)

// tDrv is the driver managed by TestMain.
var tDrv = Driver{}

// TestMain runs the tests between calls to tDrv.Open and tDrv.Close.
func TestMain(m *testing.M) {
	// Tests that need to Open/Close their own Driver instance cannot
	// run between tDrv.Open and tDrv.Close because the C code uses
	// global variables.
	testOpen()
	testName()
	testClose()
	if _, err := tDrv.Open(); err != nil {
		log.Fatalf("Driver.Open failed: %v", err)
	}
	name := tDrv.DeviceName()
	imaj, imin, ipat := tDrv.InstanceVersion()
	dmaj, dmin, dpat := tDrv.DeviceVersion()
	log.Printf("\n\tUsing %s\n\tVersion %d.%d.%d (inst), %d.%d.%d (dev)", name, imaj, imin, ipat, dmaj, dmin, dpat)
	c := m.Run()
	tDrv.Close()
	os.Exit(c)
}

func testOpen() {
	d := Driver{}
	gpu, err := d.Open()
	defer d.Close()
	switch err {
	default:
		if d.inst != nil || d.dev != nil {
			log.Fatal("d.Open(): Driver\nhave non-zero\nwant Driver{}")
		}
		if gpu != nil {
			log.Fatal("d.Open(): GPU\nhave non-nil\nwant nil")
		}
	case nil:
		if d.inst == nil {
			log.Fatal("d.Open(): d.inst\nhave nil\nwant non-nil")
		}
		if d.ivers == 0 {
			log.Fatal("d.Open(): d.ivers\nhave 0\nwant > 0")
		}
		if d.pdev == nil {
			log.Fatal("d.Open(): d.pdev\nhave nil\nwant non-nil")
		}
		if d.dvers == 0 {
			log.Fatal("d.Open(): d.dvers\nhave 0\nwant > 0")
		}
		if d.dev == nil {
			log.Fatal("d.Open(): d.dev\nhave nil\nwant non-nil")
		}
		if d.ques == nil {
			log.Fatal("d.Open(): d.ques\nhave nil\nwant non-nil")
		}
		if len(d.mused) != int(d.mprop.memoryHeapCount) {
			log.Fatalf("d.Open(): len(d.mused)\nhave %d\nwant %d", len(d.mused), d.mprop.memoryHeapCount)
		}
		for i, n := range d.mused {
			if n != 0 {
				log.Fatalf("d.Open(): d.mused[%d]\nhave %d\nwant 0", i, n)
			}
		}
		if gpu == nil {
			log.Fatal("d.Open(): GPU\nhave nil\nwant non-nil")
		}
		if x, ok := gpu.(*Driver); ok {
			if x == nil {
				log.Fatalf("d.Open(): GPU\nhave %#v\nwant d", (*Driver)(nil))
			}
			if x != &d {
				log.Fatalf("d.Open(): GPU\nhave %p\nwant %p", x, &d)
			}
		} else {
			log.Fatalf("d.Open(): GPU\nhave %T\nwant %T", gpu, &d)
		}
	}
	// Subsequent calls to Open should return the same GPU and not fail.
	if err == nil {
		if g, e := d.Open(); g != gpu || e != nil {
			log.Fatalf("d.Open()\nhave %p, %v\nwant %p, %v", g, e, gpu, err)
		}
	} else {
		log.Print("WARNING: d.Open failed, cannot test multiple calls on open driver")
	}
}

func testName() {
	// Name should not require an open driver.
	d := &Driver{}
	s := d.Name()
	if s == "" {
		log.Fatal("d.Name()\nhave \"\"\nwant non-empty")
	} else if !strings.HasPrefix(s, "vulkan") {
		log.Fatalf("d.Name()\nhave %s\nwant vulkan*", s)
	}
	if d.inst != nil || d.dev != nil {
		log.Fatalf("d.Name(): Driver\nhave %v\nwant Driver{}", d)
	}
	// Name should not require a valid driver.
	d = nil
	defer func() {
		if x := recover(); x != nil {
			log.Fatalf("unexpected panic: %v", x)
		}
	}()
	if x := d.Name(); x != s {
		log.Fatalf("d.Name()\nhave %s\nwant %s (differs from previous call)", x, s)
	}
	// Name should not change for open driver.
	d = &Driver{}
	if _, err := d.Open(); err != nil {
		log.Print("WARNING: testName: d.Open failed")
		return
	}
	if x := d.Name(); x != s {
		log.Fatalf("d.Name()\nhave %s\nwant %s (differs from previous call)", x, s)
	}
	d.Close()
}

func testClose() {
	// Close should not require an open driver.
	d := Driver{}
	d.Close()
	// Close should set d to the zero value.
	if _, err := d.Open(); err != nil {
		log.Print("WARNING: testClose: d.Open failed")
		return
	}
	d.Close()
	if d.inst != nil || d.dev != nil {
		log.Fatalf("d.Close(): Driver\nhave %v\nwant Driver{}", d)
	}
}

func TestDriver(t *testing.T) {
	var d *Driver
	if x, ok := d.Driver().(*Driver); !ok || x != nil {
		t.Errorf("d.Driver()\nhave %#v\nwant %#v", x, (*Driver)(nil))
	}
	d = new(Driver)
	if x := d.Driver(); x != d {
		t.Errorf("d.Driver()\nhave %p\nwant %p", x, d)
	}
}

func TestSelectExts(t *testing.T) {
	var (
		extSurfaceS   = extSurface.name()
		extSwapchainS = extSwapchain.name()
	)
	cases := [...]struct {
		exts, from []string
		missing    []int
	}{
		{nil, nil, nil},
		{[]string{}, []string{}, nil},
		{nil, []string{}, nil},
		{[]string{}, nil, nil},
		{[]string{extSurfaceS}, []string{extSurfaceS}, nil},
		{[]string{extSurfaceS}, []string{extSurfaceS, extSwapchainS}, nil},
		{[]string{extSwapchainS, extSurfaceS}, []string{extSurfaceS, extSwapchainS}, nil},
		{[]string{extSwapchainS}, []string{extSurfaceS, extSwapchainS}, nil},
		{[]string{extSurfaceS}, nil, []int{0}},
		{[]string{extSwapchainS}, []string{extSurfaceS}, []int{0}},
		{[]string{extSurfaceS, extSwapchainS}, []string{extSurfaceS}, []int{1}},
		{[]string{extSurfaceS, extSwapchainS}, []string{}, []int{0, 1}},
	}
	for _, c := range cases {
		a, f, missing := selectExts(c.exts, c.from)
		if len(missing) != len(c.missing) {
			t.Errorf("selectExts(%v, %v)\nhave missing %v\nwant %v", c.exts, c.from, missing, c.missing)
		} else {
			for i := range missing {
				if missing[i] != c.missing[i] {
					t.Errorf("selectExts(%v, %v)\nhave missing %v\nwant %v", c.exts, c.from, missing, c.missing)
					break
				}
			}
		}
		if len(missing) == 0 {
			// The array contents should match exts exactly.
			if a == nil && len(c.exts) > 0 {
				t.Error("selectExts()\nhave nil, _, _\nwant non-nil")
			} else if err := checkCStrings(c.exts, unsafe.Pointer(a)); err != nil {
				t.Error(err)
			}
		}
		// It should be safe to call the closure regardless.
		f()
	}
}

func TestExtSanity(t *testing.T) {
	// The required device extensions must always be enabled.
	for _, e := range globalDeviceExts.required {
		if !tDrv.exts[e] {
			t.Errorf("tDrv.exts[<%s>]\nhave false\nwant true", e.name())
		}
	}
	// A swapchain requires a surface to present to.
	if !tDrv.exts[extSurface] && tDrv.exts[extSwapchain] {
		t.Error("tDrv.exts[<" + extSwapchain.name() + ">]\nhave true\nwant false")
	}
	// This backend never requests the platform surface extensions.
	for _, e := range []extension{extAndroidSurface, extWaylandSurface, extWin32Surface, extXCBSurface} {
		if tDrv.exts[e] {
			t.Errorf("tDrv.exts[<%s>]\nhave true\nwant false", e.name())
		}
	}
}
