package cart

import "testing"

func TestMBC3_RTC_LatchAndRead(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000, true)

	m.Write(0x0000, 0x0A) // RAM enable
	m.rtcLive = rtcRegisters{Seconds: 5, Minutes: 6, Hours: 7, DayLow: 0x01, DayHighHalt: 0x00}
	m.Write(0x6000, 0x00)
	m.Write(0x6000, 0x01) // latch 0->1

	m.Write(0x4000, 0x08) // select seconds
	if got := m.Read(0xA000); got != 5 {
		t.Fatalf("latched sec got %d want 5", got)
	}

	// Changing the live register must not affect the already-latched read.
	m.rtcLive.Seconds = 30
	if got := m.Read(0xA000); got != 5 {
		t.Fatalf("latched sec changed unexpectedly: got %d", got)
	}

	m.Write(0x4000, 0x0B) // day low
	if got := m.Read(0xA000); got != 0x01 {
		t.Fatalf("latched day low got %02X want %02X", got, 0x01)
	}
}

func TestMBC3_RTC_TickAdvance(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000, true)
	m.Write(0x0000, 0x0A)

	const tcyclesPerSecond = 4194304
	m.rtcLive = rtcRegisters{Seconds: 59, Minutes: 59, Hours: 23, DayLow: 0xFF, DayHighHalt: 0x01}

	m.Tick(tcyclesPerSecond) // advance exactly one second: full rollover through to day wrap + carry

	if m.rtcLive.Seconds != 0 || m.rtcLive.Minutes != 0 || m.rtcLive.Hours != 0 {
		t.Fatalf("rtc rollover got %02d:%02d:%02d", m.rtcLive.Hours, m.rtcLive.Minutes, m.rtcLive.Seconds)
	}
	if m.rtcLive.DayHighHalt&0x80 == 0 {
		t.Fatalf("expected day carry bit set after wraparound")
	}
}

func TestMBC3_RTC_HaltStopsAdvance(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000, true)
	m.rtcLive = rtcRegisters{Seconds: 10, DayHighHalt: 0x40}

	m.Tick(4194304 * 5)
	if m.rtcLive.Seconds != 10 {
		t.Fatalf("expected halted clock to not advance, got seconds=%d", m.rtcLive.Seconds)
	}
}

func TestMBC3_SaveLoadState_RoundTrips_RTC(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000, true)
	m.Write(0x0000, 0x0A)
	m.rtcLive = rtcRegisters{Seconds: 12, Minutes: 34, Hours: 5, DayLow: 9}
	m.ram[0] = 0xAB

	data := m.SaveState()

	n := NewMBC3(rom, 0x2000, true)
	n.LoadState(data)

	if n.rtcLive != m.rtcLive {
		t.Fatalf("rtc state mismatch after load: got %+v want %+v", n.rtcLive, m.rtcLive)
	}
	if n.ram[0] != 0xAB {
		t.Fatalf("ram not restored after LoadState")
	}
}

func TestMBC3_ROMBankZeroMapsToOne(t *testing.T) {
	rom := make([]byte, 0x4000*4)
	rom[0x4000] = 0xAA // bank 1
	m := NewMBC3(rom, 0, false)
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0xAA {
		t.Fatalf("bank 0 write should remap to bank 1, got %02X", got)
	}
}
