// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"testing"

	"github.com/kestrelgpu/rhi/driver"
)

func TestLayoutCacheDedup(t *testing.T) {
	dev := openTestDevice(t)
	c := dev.Layouts()

	descA := []driver.Descriptor{{Type: driver.DConstant, Stages: driver.SVertex, Nr: 0, Len: 1}}
	descB := []driver.Descriptor{{Type: driver.DConstant, Stages: driver.SVertex, Nr: 0, Len: 1}}

	l1, err := c.Acquire(driver.SVertex, descA)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	l2, err := c.Acquire(driver.SVertex, descB)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if l1 != l2 {
		t.Fatal("identical descriptor lists produced distinct Layouts")
	}
	if l1.refs != 2 {
		t.Fatalf("refs = %d, want 2", l1.refs)
	}

	descC := []driver.Descriptor{{Type: driver.DBuffer, Stages: driver.SFragment, Nr: 1, Len: 1}}
	l3, err := c.Acquire(driver.SFragment, descC)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if l3 == l1 {
		t.Fatal("distinct descriptor lists produced the same Layout")
	}

	c.Release(l1)
	c.Release(l2)
	if l1.refs != 0 {
		t.Fatalf("refs after release = %d, want 0", l1.refs)
	}
	c.Release(l3)
}

func TestLayoutDescCount(t *testing.T) {
	dev := openTestDevice(t)
	l, err := dev.Layouts().Acquire(driver.SFragment, []driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SFragment, Nr: 0, Len: 2},
		{Type: driver.DTexture, Stages: driver.SFragment, Nr: 1, Len: 1},
		{Type: driver.DCombinedImage, Stages: driver.SFragment, Nr: 2, Len: 3},
		{Type: driver.DUniformTexel, Stages: driver.SFragment, Nr: 3, Len: 1},
		{Type: driver.DAccelStruct, Stages: driver.SFragment, Nr: 4, Len: 1},
	})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer dev.Layouts().Release(l)

	cases := []struct {
		typ  driver.DescType
		want int
	}{
		{driver.DConstant, 2},
		{driver.DTexture, 1},
		{driver.DCombinedImage, 3},
		{driver.DUniformTexel, 1},
		{driver.DAccelStruct, 1},
		{driver.DStorageTexel, 0},
		{driver.DBuffer, 0},
	}
	for _, c := range cases {
		if n := l.DescCount(c.typ); n != c.want {
			t.Errorf("DescCount(%v) = %d, want %d", c.typ, n, c.want)
		}
	}
}

func TestLayoutNormalizeOrdersByNrThenType(t *testing.T) {
	ds := []driver.Descriptor{
		{Type: driver.DSampler, Nr: 2},
		{Type: driver.DBuffer, Nr: 0},
		{Type: driver.DSampler, Nr: 1},
		{Type: driver.DTexture, Nr: 1},
	}
	norm := normalize(ds)
	for i := 1; i < len(norm); i++ {
		if norm[i-1].Nr > norm[i].Nr {
			t.Fatalf("normalize did not sort by Nr: %v", norm)
		}
		if norm[i-1].Nr == norm[i].Nr && norm[i-1].Type > norm[i].Type {
			t.Fatalf("normalize did not sort by Type within equal Nr: %v", norm)
		}
	}
}
