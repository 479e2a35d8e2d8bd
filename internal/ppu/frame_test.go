package ppu

import "testing"

func TestPPU_FrameCallback_FiresAtVBlank(t *testing.T) {
	p := New(nil)
	fired := 0
	var last [144][160]byte
	p.SetFrameCallback(func(f [144][160]byte) {
		fired++
		last = f
	})
	p.CPUWrite(0xFF40, 0x80) // LCD on
	p.Tick(144 * 456)
	if fired != 1 {
		t.Fatalf("expected frame callback once at VBlank, got %d", fired)
	}
	_ = last
}

func TestPPU_RenderScanline_BGPaletteApplied(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0b11_10_01_00) // BGP: ci0->0 ci1->1 ci2->2 ci3->3 (identity)
	p.CPUWrite(0x9800, 0x01)          // tile 1 at map origin
	// tile 1 row 0: all pixels color index 3 (lo=hi=0xFF)
	p.CPUWrite(0x8010, 0xFF)
	p.CPUWrite(0x8011, 0xFF)
	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, 0x8000 addressing
	p.Tick(80)               // enter mode 3 for LY=0, renders the scanline
	f := p.Frame()
	if f[0][0] != 3 {
		t.Fatalf("expected shade 3 at (0,0), got %d", f[0][0])
	}
}

func TestPPU_RenderScanline_SpriteOverBG(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF47, 0xE4) // BGP identity (11100100)
	p.CPUWrite(0xFF48, 0xE4) // OBP0 identity
	// BG tile 0 all zero (transparent/color 0) is the default VRAM state.
	// Sprite 0: tile 0, opaque pixel at column 0 -> color index 1
	p.CPUWrite(0x8000, 0x80) // lo bit7 set
	p.CPUWrite(0x8001, 0x00)
	// OAM entry 0: Y=16 (-> screen row 0), X=8 (-> screen col 0)
	p.CPUWrite(0xFE00, 16)
	p.CPUWrite(0xFE01, 8)
	p.CPUWrite(0xFE02, 0)
	p.CPUWrite(0xFE03, 0)
	p.CPUWrite(0xFF40, 0x83) // LCD on, BG on, sprites on
	p.Tick(80)
	f := p.Frame()
	if f[0][0] != 1 {
		t.Fatalf("expected sprite shade 1 at (0,0), got %d", f[0][0])
	}
}

func TestPPU_SaveLoadState_RoundTrips(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x91)
	p.CPUWrite(0xFF47, 0xE4)
	p.CPUWrite(0x8000, 0xAB)
	p.Tick(300)

	data := p.SaveState()

	q := New(nil)
	q.LoadState(data)

	if q.CPURead(0xFF40) != p.CPURead(0xFF40) {
		t.Fatalf("LCDC mismatch after LoadState")
	}
	if q.Frame() != p.Frame() {
		t.Fatalf("frame buffer mismatch after LoadState")
	}
}
