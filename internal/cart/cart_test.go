package cart

import "testing"

func TestNewCartridge_DispatchesMBCKind(t *testing.T) {
	cases := []struct {
		name     string
		cartType byte
		romSize  int
		romCode  byte
		ramCode  byte
		check    func(Cartridge) bool
	}{
		{"ROMOnly", 0x00, 32 * 1024, 0x00, 0x00, func(c Cartridge) bool { _, ok := c.(*ROMOnly); return ok }},
		{"MBC1", 0x01, 64 * 1024, 0x01, 0x02, func(c Cartridge) bool { _, ok := c.(*MBC1); return ok }},
		{"MBC2", 0x05, 64 * 1024, 0x01, 0x00, func(c Cartridge) bool { _, ok := c.(*MBC2); return ok }},
		{"MBC3+RTC", 0x0F, 64 * 1024, 0x01, 0x02, func(c Cartridge) bool { _, ok := c.(*MBC3); return ok }},
		{"MBC3", 0x13, 64 * 1024, 0x01, 0x02, func(c Cartridge) bool { _, ok := c.(*MBC3); return ok }},
		{"MBC5", 0x19, 64 * 1024, 0x01, 0x02, func(c Cartridge) bool { _, ok := c.(*MBC5); return ok }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rom := buildROM("TEST", c.cartType, c.romCode, c.ramCode, c.romSize)
			got := NewCartridge(rom)
			if !c.check(got) {
				t.Fatalf("%s: NewCartridge returned wrong concrete type %T", c.name, got)
			}
		})
	}
}

func TestNewCartridge_MBC3CarriesRTCOnlyForRTCTypes(t *testing.T) {
	romWithRTC := buildROM("RTC", 0x10, 0x01, 0x02, 64*1024)
	m := NewCartridge(romWithRTC).(*MBC3)
	if !m.hasRTC {
		t.Fatalf("cart type 0x10 should carry an RTC")
	}

	romNoRTC := buildROM("NORTC", 0x11, 0x01, 0x02, 64*1024)
	n := NewCartridge(romNoRTC).(*MBC3)
	if n.hasRTC {
		t.Fatalf("cart type 0x11 should not carry an RTC")
	}
}

func TestKnownMBC(t *testing.T) {
	known := []byte{0x00, 0x01, 0x05, 0x0F, 0x13, 0x19, 0x1E}
	for _, b := range known {
		if !KnownMBC(b) {
			t.Fatalf("KnownMBC(%#02x) = false, want true", b)
		}
	}
	unknown := []byte{0xFC, 0xFD, 0xFE, 0xFF}
	for _, b := range unknown {
		if KnownMBC(b) {
			t.Fatalf("KnownMBC(%#02x) = true, want false", b)
		}
	}
}
