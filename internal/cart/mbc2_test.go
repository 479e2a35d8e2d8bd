package cart

import "testing"

func TestMBC2_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank1 default read got %02X want 01", got)
	}

	// Bit 8 of the address must be set to select a ROM bank.
	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}

	m.Write(0x2100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_BuiltinRAM_NibbleMasking(t *testing.T) {
	rom := make([]byte, 64*1024)
	m := NewMBC2(rom)

	// Bit 8 clear selects the RAM-enable latch.
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0xFF)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("RAM nibble readback got %02X want FF (high nibble forced to F)", got)
	}
	m.Write(0xA000, 0x03)
	if got := m.Read(0xA000); got != 0xF3 {
		t.Fatalf("RAM nibble readback got %02X want F3", got)
	}

	// Address mirrors every 512 bytes within the A000-BFFF window.
	if got := m.Read(0xA200); got != 0xF3 {
		t.Fatalf("RAM mirror readback got %02X want F3", got)
	}
}

func TestMBC2_SaveLoadState(t *testing.T) {
	rom := make([]byte, 128*1024) // 8 banks, so bank 4 exists
	rom[4*0x4000] = 0x44
	m := NewMBC2(rom)
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x07)
	m.Write(0x2100, 0x04)

	data := m.SaveState()

	n := NewMBC2(rom)
	n.LoadState(data)
	if got := n.Read(0xA000); got != 0xF7 {
		t.Fatalf("restored RAM got %02X want F7", got)
	}
	if got := n.Read(0x4000); got != rom[4*0x4000] {
		t.Fatalf("restored ROM bank selection mismatch")
	}
}
