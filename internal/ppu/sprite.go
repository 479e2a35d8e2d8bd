package ppu

import "sort"

// Sprite is a decoded OAM entry in screen space: Y is already adjusted by -16
// and X by -8, matching the Game Boy's sprite coordinate convention.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// ScanOAM walks the 40 OAM entries and returns up to 10 sprites visible on
// scanline ly, in OAM order, the same cap hardware enforces per line.
func ScanOAM(oam [0xA0]byte, ly byte, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		y := int(oam[base]) - 16
		x := int(oam[base+1]) - 8
		row := int(ly) - y
		if row < 0 || row >= height {
			continue
		}
		out = append(out, Sprite{
			X: x, Y: y,
			Tile:     oam[base+2],
			Attr:     oam[base+3],
			OAMIndex: i,
		})
	}
	return out
}

// ComposeSpriteLine renders the sprite layer for scanline ly onto a 160-wide
// strip of color indices (0 means no sprite pixel shows through at that
// column). bgci is the already-rendered background/window line, used to
// resolve the OBJ-to-BG priority bit (Attr bit 7).
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tall bool) [160]byte {
	ci, _, _ := composeSpriteLineWinners(mem, sprites, ly, bgci, tall)
	return ci
}

// composeSpriteLineWinners is the shared implementation behind ComposeSpriteLine;
// it also exposes the winning sprite's attribute byte per column so callers
// that need palette selection (OBP0 vs OBP1) don't have to resolve priority twice.
func composeSpriteLineWinners(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tall bool) (ci [160]byte, attr [160]byte, shown [160]bool) {
	height := 8
	if tall {
		height = 16
	}

	sorted := make([]Sprite, len(sprites))
	copy(sorted, sprites)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].OAMIndex < sorted[j].OAMIndex
	})

	type colWinner struct {
		ci   byte
		attr byte
		set  bool
	}
	var winners [160]colWinner

	for _, s := range sorted {
		row := int(ly) - s.Y
		if row < 0 || row >= height {
			continue
		}
		if s.Attr&0x40 != 0 { // Y flip over the full sprite height
			row = height - 1 - row
		}
		tileIndex := s.Tile
		subrow := row
		if tall {
			tileIndex = s.Tile &^ 1
			if row >= 8 {
				tileIndex |= 1
				subrow = row - 8
			}
		}
		base := uint16(0x8000) + uint16(tileIndex)*16 + uint16(subrow)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)
		hflip := s.Attr&0x20 != 0

		for px := 0; px < 8; px++ {
			screenX := s.X + px
			if screenX < 0 || screenX >= 160 {
				continue
			}
			if winners[screenX].set {
				continue // a higher-priority sprite already claimed this column
			}
			bit := byte(7 - px)
			if hflip {
				bit = byte(px)
			}
			ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if ci == 0 {
				continue // transparent: does not claim the column
			}
			winners[screenX] = colWinner{ci: ci, attr: s.Attr, set: true}
		}
	}

	for x := 0; x < 160; x++ {
		w := winners[x]
		if !w.set {
			continue
		}
		if w.attr&0x80 != 0 && bgci[x] != 0 {
			continue // OBJ-behind-BG priority: nonzero BG color wins
		}
		ci[x] = w.ci
		attr[x] = w.attr
		shown[x] = true
	}
	return ci, attr, shown
}
