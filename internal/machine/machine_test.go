package machine

import (
	"errors"
	"testing"
)

// minimalROM builds a ROM-only cartridge image large enough to carry a valid
// header (0x134-0x14D) plus a tiny program at 0x0100.
func minimalROM(program []byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], program)
	// Nintendo logo bytes aren't checked by ParseHeader; title left blank.
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32KB
	rom[0x0149] = 0x00 // no RAM
	return rom
}

func TestMachine_LoadCartridge_StartsAt0100WithoutBoot(t *testing.T) {
	m := New(Config{})
	rom := minimalROM([]byte{0x00}) // NOP
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if m.cpu.PC != 0x0100 {
		t.Fatalf("PC got %#04x want 0x0100", m.cpu.PC)
	}
}

func TestMachine_StepFrame_ProducesFramebuffer(t *testing.T) {
	m := New(Config{})
	rom := minimalROM([]byte{0x18, 0xFE}) // JR -2: spin forever
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.StepFrame()
	fb := m.Framebuffer()
	if len(fb) != 160*144*4 {
		t.Fatalf("framebuffer size got %d want %d", len(fb), 160*144*4)
	}
}

func TestMachine_SaveLoadState_RoundTrips(t *testing.T) {
	m := New(Config{})
	rom := minimalROM([]byte{0x3E, 0x99, 0x18, 0xFE}) // LD A,0x99; JR -2
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.StepFrame()
	data, err := m.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	n := New(Config{})
	if err := n.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge (n): %v", err)
	}
	if err := n.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if n.cpu.A != m.cpu.A || n.cpu.PC != m.cpu.PC {
		t.Fatalf("state mismatch after LoadState: A=%02x PC=%04x want A=%02x PC=%04x",
			n.cpu.A, n.cpu.PC, m.cpu.A, m.cpu.PC)
	}
}

func TestMachine_LoadCartridge_RejectsTooSmallROM(t *testing.T) {
	m := New(Config{})
	if err := m.LoadCartridge([]byte{0x00}, nil); !errors.Is(err, ErrInvalidROM) {
		t.Fatalf("LoadCartridge on truncated ROM: got %v, want ErrInvalidROM", err)
	}
}

func TestMachine_LoadCartridge_RejectsUnknownMapper(t *testing.T) {
	m := New(Config{})
	rom := minimalROM([]byte{0x00})
	rom[0x0147] = 0xFF // not a known cartridge type
	if err := m.LoadCartridge(rom, nil); !errors.Is(err, ErrUnsupportedFeature) {
		t.Fatalf("LoadCartridge on unknown mapper: got %v, want ErrUnsupportedFeature", err)
	}
}

func TestMachine_LoadState_RejectsCorruptData(t *testing.T) {
	m := New(Config{})
	rom := minimalROM([]byte{0x00})
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if err := m.LoadState([]byte("not a save state")); !errors.Is(err, ErrStateCorruption) {
		t.Fatalf("LoadState on garbage data: got %v, want ErrStateCorruption", err)
	}
}

func TestMachine_SetButtons_ReachesBus(t *testing.T) {
	m := New(Config{})
	rom := minimalROM([]byte{0x00})
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.SetButtons(Buttons{A: true, Right: true})
	// JOYP defaults to both groups selected (bits 4/5 low); select only the
	// button group to read back the masked state.
	m.bus.Write(0xFF00, 0x10)
	v := m.bus.Read(0xFF00)
	if v&0x01 != 0 { // bit0 (Right/A low nibble) active-low: pressed -> 0
		t.Fatalf("expected Right/A bit low (pressed), got JOYP=%02x", v)
	}
}
