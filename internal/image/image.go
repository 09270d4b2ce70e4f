// Package image summarises converted firmware images before they are
// handed to the device programmer.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/marcinbor85/gohex"
)

// Format is the converter's output format selector.
type Format string

const (
	FormatIHex   Format = "ihex"
	FormatBinary Format = "binary"
	FormatSrec   Format = "srec"
)

// Ext returns the file extension used for images of format f.
func (f Format) Ext() string {
	switch f {
	case FormatIHex:
		return ".hex"
	case FormatBinary:
		return ".bin"
	case FormatSrec:
		return ".srec"
	default:
		return ".img"
	}
}

// ErrEmptyImage indicates an image that carries no data.
var ErrEmptyImage = errors.New("image contains no data")

// Summary describes an image's payload.
type Summary struct {
	Format   Format
	Size     int64  // bytes on disk
	Segments int    // contiguous data segments (ihex only)
	Lowest   uint32 // lowest load address (ihex only)
	Payload  int    // data bytes; equals Size for binary images
	Start    uint32 // start address record, if present (ihex only)
	HasStart bool
}

// Inspect reads the image at path. Intel HEX images are parsed into their
// data segments; other formats are described by size.
func Inspect(path string, format Format) (Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Format: format, Size: info.Size()}

	switch format {
	case FormatIHex:
		if err := inspectIHex(path, &sum); err != nil {
			return sum, err
		}
	case FormatBinary:
		sum.Payload = int(sum.Size)
	default:
		// srec and anything else: size is all we report
		sum.Payload = int(sum.Size)
	}

	if sum.Payload == 0 {
		return sum, fmt.Errorf("%s: %w", path, ErrEmptyImage)
	}
	return sum, nil
}

func inspectIHex(path string, sum *Summary) error {
	// #nosec G304 -- path points into the flash pipeline's temp dir
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return fmt.Errorf("%s: parse intel hex: %w", path, err)
	}
	segments := mem.GetDataSegments()
	sum.Segments = len(segments)
	for i, seg := range segments {
		if i == 0 || seg.Address < sum.Lowest {
			sum.Lowest = seg.Address
		}
		sum.Payload += len(seg.Data)
	}
	sum.Start, sum.HasStart = mem.GetStartAddress()
	return nil
}

// String renders a one-line description for status output.
func (s Summary) String() string {
	if s.Format == FormatIHex {
		return fmt.Sprintf("%d bytes in %d segment(s) from 0x%08X", s.Payload, s.Segments, s.Lowest)
	}
	return fmt.Sprintf("%d bytes (%s)", s.Payload, s.Format)
}
