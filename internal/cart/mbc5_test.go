package cart

import "testing"

func TestMBC5_ROMBanking_BankZeroAddressable(t *testing.T) {
	rom := make([]byte, 0x4000*512)
	for bank := 0; bank < 4; bank++ {
		rom[bank*0x4000] = byte(0x10 + bank)
	}
	m := NewMBC5(rom, 0)

	// Unlike MBC1, selecting bank 0 in the switchable window is valid and
	// must not remap to bank 1.
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x10 {
		t.Fatalf("bank0 read got %02X want 10 (bank 0 must be directly addressable)", got)
	}

	m.Write(0x2000, 0x02)
	if got := m.Read(0x4000); got != 0x12 {
		t.Fatalf("bank2 read got %02X want 12", got)
	}
}

func TestMBC5_ROMBanking_HighBit(t *testing.T) {
	rom := make([]byte, 0x4000*260)
	rom[257*0x4000] = 0x99
	m := NewMBC5(rom, 0)

	m.Write(0x2000, 0x01) // low 8 bits
	m.Write(0x3000, 0x01) // bit 8
	if got := m.Read(0x4000); got != 0x99 {
		t.Fatalf("bank257 read got %02X want 99", got)
	}
}

func TestMBC5_RAMBanking(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC5(rom, 128*1024)
	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x05)
	m.Write(0xA000, 0x42)
	if got := m.Read(0xA000); got != 0x42 {
		t.Fatalf("RAM bank5 RW failed: got %02X", got)
	}
}

func TestMBC5_SaveLoadState(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC5(rom, 32*1024)
	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x03)
	m.Write(0xA000, 0x55)

	data := m.SaveState()
	n := NewMBC5(rom, 32*1024)
	n.LoadState(data)
	if got := n.Read(0xA000); got != 0x55 {
		t.Fatalf("restored RAM got %02X want 55", got)
	}
}
