// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package effect

import "testing"

func TestConfigValidateRequiresExactlyOneAA(t *testing.T) {
	cases := []struct {
		cfg Config
		ok  bool
	}{
		{Config{}, false},
		{Config{SMAA: true}, true},
		{Config{FXAA: true}, true},
		{Config{LXAA: true}, true},
		{Config{SMAA: true, FXAA: true}, false},
		{Config{SMAA: true, FXAA: true, LXAA: true}, false},
	}
	for _, c := range cases {
		err := c.cfg.validate()
		if (err == nil) != c.ok {
			t.Fatalf("validate(%+v): have err=%v, want ok=%v", c.cfg, err, c.ok)
		}
	}
}

func TestStageOrderCoversEveryStageOnce(t *testing.T) {
	if len(Order) != int(stageCount) {
		t.Fatalf("Order has %d entries, want %d", len(Order), stageCount)
	}
	seen := map[Stage]bool{}
	for _, s := range Order {
		if seen[s] {
			t.Fatalf("stage %v appears twice in Order", s)
		}
		seen[s] = true
	}
	if Order[0] != StageHZBBuild || Order[len(Order)-1] != StageBlitToSurface {
		t.Fatal("chain must start with HZB build and end with the surface blit")
	}
}

func TestMipCountReachesOne(t *testing.T) {
	if n := mipCount(1920, 1080); n < 11 {
		t.Fatalf("mipCount(1920,1080) = %d, too few levels for a full pyramid", n)
	}
	w, h := mipSize(1920, 1080, mipCount(1920, 1080)-1)
	if w != 1 || h != 1 {
		t.Fatalf("last mip level should reach 1x1, have %dx%d", w, h)
	}
}

func TestMipSizeHalvesWithFloor(t *testing.T) {
	w, h := mipSize(16, 9, 2)
	if w != 4 || h != 2 {
		t.Fatalf("mipSize(16,9,2) = %d,%d, want 4,2", w, h)
	}
	w, h = mipSize(1, 1, 5)
	if w != 1 || h != 1 {
		t.Fatalf("mipSize floors at 1: have %d,%d", w, h)
	}
}

func TestGroupCountsCoversNonMultipleSizes(t *testing.T) {
	x, y := groupCounts(17, 8)
	if x*workgroupSize < 17 || y*workgroupSize < 8 {
		t.Fatalf("groupCounts(17,8) = %d,%d does not cover the dispatch target", x, y)
	}
}

func TestBloomLevelsCapsBelowHZBDepth(t *testing.T) {
	if n := bloomLevels(20); n != 6 {
		t.Fatalf("bloomLevels(20) = %d, want capped at 6", n)
	}
	if n := bloomLevels(3); n != 3 {
		t.Fatalf("bloomLevels(3) = %d, want 3 (below the cap)", n)
	}
}
