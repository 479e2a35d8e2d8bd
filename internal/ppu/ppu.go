package ppu

import (
	"bytes"
	"encoding/gob"
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// FrameReady is called once per frame, at the LY=144 transition, with the
// completed 160x144 frame of 2-bit shade values (post-palette).
type FrameReady func(frame [144][160]byte)

// LineRegisters is a snapshot of per-scanline rendering state captured when
// the PPU enters mode 3 (drawing) for that line.
type LineRegisters struct {
	WinLine byte
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, and dot-based timing, plus
// BG/window/sprite scanline rendering into a DMG-shade frame buffer.
// It exposes CPU-facing Read/Write for VRAM/OAM and PPU IO regs.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	winLineCounter int // -1 until the window first becomes visible this frame
	lineSnaps      [144]LineRegisters

	frame       [144][160]byte
	frameCB     FrameReady

	req InterruptRequester
}

func New(req InterruptRequester) *PPU {
	return &PPU{req: req, winLineCounter: -1}
}

// SetFrameCallback registers a callback fired once per completed frame.
func (p *PPU) SetFrameCallback(cb FrameReady) { p.frameCB = cb }

// Frame returns a copy of the most recently completed frame buffer.
func (p *PPU) Frame() [144][160]byte { return p.frame }

// LineRegs returns the per-scanline window-line snapshot captured for ly.
func (p *PPU) LineRegs(ly int) LineRegisters {
	if ly < 0 || ly >= len(p.lineSnaps) {
		return LineRegisters{}
	}
	return p.lineSnaps[ly]
}

// ppuVRAMView adapts the PPU's own VRAM array to the VRAMReader interface
// used by the fetcher and sprite compositor, bypassing CPU mode gating.
type ppuVRAMView struct{ p *PPU }

func (v ppuVRAMView) Read(addr uint16) byte {
	if addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return v.p.vram[addr-0x8000]
}

func applyPalette(pal, ci byte) byte {
	return (pal >> (ci * 2)) & 0x03
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
	// VRAM is inaccessible to CPU during mode 3 (return 0xFF)
	if (p.stat & 0x03) == 3 { return 0xFF }
	return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
	// OAM is inaccessible during modes 2 and 3
	m := p.stat & 0x03
	if m == 2 || m == 3 { return 0xFF }
	return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
	// On DMG, bit7 reads as 1; bit6..3 are enables; bit2 coincidence; bit1..0 mode
	return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
	if (p.stat & 0x03) == 3 { return }
	p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
	m := p.stat & 0x03
	if m == 2 || m == 3 { return }
	p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY/mode
			p.ly = 0
			p.dot = 0
			p.winLineCounter = -1
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM)
			p.ly = 0
			p.dot = 0
			p.winLineCounter = -1
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++
		// Mode scheduling
		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				// Enter VBlank
				if p.req != nil {
					p.req(0)
				} // VBlank IF
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				} // STAT VBlank
				if p.frameCB != nil {
					p.frameCB(p.frame)
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winLineCounter = -1
			}
			p.updateLYC()
			// Set mode for new line start (dot=0)
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 3: // Drawing: register state for this line is latched here.
		if p.ly < 144 {
			p.captureLineRegs(p.ly)
			p.renderScanline(p.ly)
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

// windowVisible reports whether the window layer contributes to line ly,
// per LCDC bit5, WX<=166 (WX>166 disables the window entirely), and WY<=ly.
func (p *PPU) windowVisible(ly byte) bool {
	return (p.lcdc&0x20) != 0 && p.wx <= 166 && ly >= p.wy
}

// captureLineRegs snapshots the internal window-line counter for ly. The
// counter only advances on lines where the window is actually visible, and
// resets to -1 at the start of each frame (frame wrap and LCD on/off).
func (p *PPU) captureLineRegs(ly byte) {
	if p.windowVisible(ly) {
		p.winLineCounter++
	}
	wl := p.winLineCounter
	if wl < 0 {
		wl = 0
	}
	if int(ly) < len(p.lineSnaps) {
		p.lineSnaps[ly] = LineRegisters{WinLine: byte(wl)}
	}
}

// renderScanline composes BG, window, and sprite layers for ly into the
// frame buffer, applying BGP/OBP0/OBP1 to produce final 2-bit shades.
func (p *PPU) renderScanline(ly byte) {
	if p.lcdc&0x80 == 0 {
		return
	}
	view := ppuVRAMView{p}

	var bgci [160]byte
	if p.lcdc&0x01 != 0 {
		mapBase := uint16(0x9800)
		if p.lcdc&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(view, mapBase, tileData8000, p.scx, p.scy, ly)
	}

	if p.windowVisible(ly) {
		winMapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			winMapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		winXStart := int(p.wx) - 7
		wl := p.lineSnaps[ly].WinLine
		winci := RenderWindowScanlineUsingFetcher(view, winMapBase, tileData8000, winXStart, wl)
		for x := 0; x < 160; x++ {
			if x >= winXStart {
				bgci[x] = winci[x]
			}
		}
	}

	var out [160]byte
	for x := 0; x < 160; x++ {
		out[x] = applyPalette(p.bgp, bgci[x])
	}

	if p.lcdc&0x02 != 0 {
		tall := p.lcdc&0x04 != 0
		sprites := ScanOAM(p.oam, ly, tall)
		sci, sattr, shown := composeSpriteLineWinners(view, sprites, ly, bgci, tall)
		for x := 0; x < 160; x++ {
			if !shown[x] {
				continue
			}
			pal := p.obp0
			if sattr[x]&0x10 != 0 {
				pal = p.obp1
			}
			out[x] = applyPalette(pal, sci[x])
		}
	}

	p.frame[ly] = out
}

type ppuState struct {
	VRAM           [0x2000]byte
	OAM            [0xA0]byte
	LCDC, STAT     byte
	SCY, SCX       byte
	LY, LYC        byte
	BGP, OBP0, OBP1 byte
	WY, WX         byte
	Dot            int
	WinLineCounter int
	LineSnaps      [144]LineRegisters
	Frame          [144][160]byte
}

// SaveState serializes all PPU-visible register and memory state, including
// the in-progress frame buffer, for exact resume after load.
func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		Dot: p.dot, WinLineCounter: p.winLineCounter,
		LineSnaps: p.lineSnaps, Frame: p.frame,
	})
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	if len(data) == 0 {
		return
	}
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.dot, p.winLineCounter = s.Dot, s.WinLineCounter
	p.lineSnaps, p.frame = s.LineSnaps, s.Frame
}
