package machine

import "errors"

// Sentinel errors returned by Machine methods, wrapped with fmt.Errorf("%w: ...")
// so callers can branch on kind with errors.Is regardless of the detail text.
var (
	// ErrInvalidROM means the supplied ROM image failed header validation.
	ErrInvalidROM = errors.New("invalid rom")
	// ErrUnsupportedFeature means the ROM requests a cartridge feature this core doesn't implement.
	ErrUnsupportedFeature = errors.New("unsupported feature")
	// ErrStateCorruption means a save state failed to decode or carries an unsupported version.
	ErrStateCorruption = errors.New("state corruption")
)
