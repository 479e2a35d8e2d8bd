package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC3 implements ROM/RAM banking plus an optional latched real-time clock.
// Banking behavior:
// - 0000-1FFF: RAM enable (0x0A in low nibble)
// - 2000-3FFF: ROM bank low 7 bits (0 maps to 1)
// - 4000-5FFF: RAM bank (0-3) or RTC reg select (08-0C)
// - 6000-7FFF: Latch clock (0 then 1 copies the live counters into the latched set)
// - A000-BFFF: External RAM, or the latched RTC register selected above, when enabled
// ROM: bank 0 fixed at 0000-3FFF; switchable 4000-7FFF uses bank (1..127)
//
// The clock has no host wall-clock collaborator in this core: it advances
// from accumulated T-cycles via Tick, not real time. See SPEC_FULL.md.

type MBC3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    byte // 7 bits (1..127)
	ramBank    byte // 0..3 (others select an RTC register)

	hasRTC     bool
	rtcSelect  byte // 0x08..0x0C when an RTC register is selected
	rtcLive    rtcRegisters
	rtcLatched rtcRegisters
	latchPrev  byte
	cycleAccum int64 // T-cycles since last whole-second rollover
}

type rtcRegisters struct {
	Seconds, Minutes, Hours byte
	DayLow                  byte
	DayHighHalt             byte // bit0: day counter bit 8, bit6: halt, bit7: day carry
}

func NewMBC3(rom []byte, ramSize int, hasRTC bool) *MBC3 {
	m := &MBC3{rom: rom, hasRTC: hasRTC}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	m.romBank = 1
	return m
}

// Tick advances the live RTC counters by the given number of T-cycles.
// Only meaningful for cartridges that carry an RTC (types 0x0F/0x10).
func (m *MBC3) Tick(tcycles int) {
	if !m.hasRTC || (m.rtcLive.DayHighHalt&0x40) != 0 {
		return
	}
	m.cycleAccum += int64(tcycles)
	const tcyclesPerSecond = 4194304
	for m.cycleAccum >= tcyclesPerSecond {
		m.cycleAccum -= tcyclesPerSecond
		m.rtcLive.Seconds++
		if m.rtcLive.Seconds < 60 {
			continue
		}
		m.rtcLive.Seconds = 0
		m.rtcLive.Minutes++
		if m.rtcLive.Minutes < 60 {
			continue
		}
		m.rtcLive.Minutes = 0
		m.rtcLive.Hours++
		if m.rtcLive.Hours < 24 {
			continue
		}
		m.rtcLive.Hours = 0
		day := uint16(m.rtcLive.DayLow) | uint16(m.rtcLive.DayHighHalt&1)<<8
		day++
		if day > 0x1FF {
			day = 0
			m.rtcLive.DayHighHalt |= 0x80 // carry
		}
		m.rtcLive.DayLow = byte(day)
		m.rtcLive.DayHighHalt = (m.rtcLive.DayHighHalt &^ 0x01) | byte((day>>8)&1)
	}
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x7F)
		if bank == 0 {
			bank = 1
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off >= 0 && off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.hasRTC && m.rtcSelect != 0 {
			return m.readRTC()
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		rb := int(m.ramBank & 0x03)
		off := rb*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) readRTC() byte {
	switch m.rtcSelect {
	case 0x08:
		return m.rtcLatched.Seconds
	case 0x09:
		return m.rtcLatched.Minutes
	case 0x0A:
		return m.rtcLatched.Hours
	case 0x0B:
		return m.rtcLatched.DayLow
	case 0x0C:
		return m.rtcLatched.DayHighHalt
	default:
		return 0xFF
	}
}

func (m *MBC3) writeRTC(value byte) {
	switch m.rtcSelect {
	case 0x08:
		m.rtcLive.Seconds = value
	case 0x09:
		m.rtcLive.Minutes = value
	case 0x0A:
		m.rtcLive.Hours = value
	case 0x0B:
		m.rtcLive.DayLow = value
	case 0x0C:
		m.rtcLive.DayHighHalt = value
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		if value <= 0x03 {
			m.ramBank = value & 0x03
			m.rtcSelect = 0
		} else if m.hasRTC && value >= 0x08 && value <= 0x0C {
			m.rtcSelect = value
		} else {
			m.ramBank = 0
			m.rtcSelect = 0
		}
	case addr < 0x8000:
		if m.hasRTC && m.latchPrev == 0x00 && value == 0x01 {
			m.rtcLatched = m.rtcLive
		}
		m.latchPrev = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.hasRTC && m.rtcSelect != 0 {
			m.writeRTC(value)
			return
		}
		if len(m.ram) == 0 {
			return
		}
		rb := int(m.ramBank & 0x03)
		off := rb*0x2000 + int(addr-0xA000)
		if off >= 0 && off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

// BatteryBacked implementation (RTC not persisted here)
func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

type mbc3State struct {
	RAM        []byte
	RamEnabled bool
	RomBank    byte
	RamBank    byte
	RtcSelect  byte
	RtcLive    rtcRegisters
	RtcLatched rtcRegisters
	LatchPrev  byte
	CycleAccum int64
}

func (m *MBC3) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc3State{
		RAM:        m.ram,
		RamEnabled: m.ramEnabled,
		RomBank:    m.romBank,
		RamBank:    m.ramBank,
		RtcSelect:  m.rtcSelect,
		RtcLive:    m.rtcLive,
		RtcLatched: m.rtcLatched,
		LatchPrev:  m.latchPrev,
		CycleAccum: m.cycleAccum,
	})
	return buf.Bytes()
}

func (m *MBC3) LoadState(data []byte) {
	if len(data) == 0 {
		return
	}
	var s mbc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(s.RAM) == len(m.ram) {
		copy(m.ram, s.RAM)
	}
	m.ramEnabled = s.RamEnabled
	m.romBank = s.RomBank
	m.ramBank = s.RamBank
	m.rtcSelect = s.RtcSelect
	m.rtcLive = s.RtcLive
	m.rtcLatched = s.RtcLatched
	m.latchPrev = s.LatchPrev
	m.cycleAccum = s.CycleAccum
}
