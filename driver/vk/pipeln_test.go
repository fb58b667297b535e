// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"testing"
)

func TestPipelineCache(t *testing.T) {
	zc := pipelineCache{}
	pc, err := tDrv.NewPipelineCache(nil)
	if err != nil {
		t.Fatalf("(error) tDrv.NewPipelineCache(nil): %v", err)
	}
	c := pc.(*pipelineCache)
	if c.d != &tDrv {
		t.Errorf("c.d\nhave %p\nwant %p", c.d, &tDrv)
	}
	if c.pc == zc.pc {
		t.Errorf("c.pc\nhave %v\nwant valid handle", c.pc)
	}
	if tDrv.pcache != c.pc {
		t.Error("tDrv.pcache\nhave mismatch\nwant c.pc")
	}

	// An empty cache still produces a blob (it carries the
	// implementation's header).
	data, err := c.Data()
	if err != nil {
		t.Fatalf("(error) c.Data(): %v", err)
	}
	if len(data) == 0 {
		t.Error("c.Data()\nhave empty blob\nwant non-empty")
	}

	// The blob must be accepted as initial data.
	pc2, err := tDrv.NewPipelineCache(data)
	if err != nil {
		t.Fatalf("(error) tDrv.NewPipelineCache(data): %v", err)
	}
	c2 := pc2.(*pipelineCache)
	if tDrv.pcache != c2.pc {
		t.Error("tDrv.pcache\nhave mismatch\nwant c2.pc")
	}

	c2.Destroy()
	if tDrv.pcache != zc.pc {
		t.Error("c2.Destroy(): tDrv.pcache\nhave non-null\nwant null handle")
	}
	c.Destroy()
	if *c != zc {
		t.Errorf("c.Destroy(): c\nhave %v\nwant %v", c, zc)
	}
}
