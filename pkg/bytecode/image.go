package bytecode

import (
	"errors"
	"fmt"
)

// ImageMagic prefixes every serialized program: "VPLC".
var ImageMagic = []byte{'V', 'P', 'L', 'C'}

// ImageVersion is the current image format version.
const ImageVersion uint16 = 1

const imageHeaderLen = 4 + 2 + 2 + 2

// ErrBadImage is wrapped by every image decoding error.
var ErrBadImage = errors.New("bad program image")

// MarshalBinary encodes the program for storage or transport.
// Format:
//
//	[magic:4] [version:2] [capacity:2] [length:2] [code:length]
//
// The program counter is not part of the image.
func (p *Program) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, imageHeaderLen+p.length)
	buf = append(buf, ImageMagic...)
	buf = byteOrder.AppendUint16(buf, ImageVersion)
	buf = byteOrder.AppendUint16(buf, uint16(len(p.code)))
	buf = byteOrder.AppendUint16(buf, uint16(p.length))
	buf = append(buf, p.code[:p.length]...)
	return buf, nil
}

// UnmarshalBinary replaces p with the decoded image, reallocating the code
// buffer to the capacity recorded in the image.
func (p *Program) UnmarshalBinary(data []byte) error {
	if len(data) < imageHeaderLen {
		return fmt.Errorf("%w: need at least %d bytes, got %d", ErrBadImage, imageHeaderLen, len(data))
	}
	if string(data[0:4]) != string(ImageMagic) {
		return fmt.Errorf("%w: expected magic %q, got %q", ErrBadImage, ImageMagic, data[0:4])
	}

	version := byteOrder.Uint16(data[4:6])
	if version != ImageVersion {
		return fmt.Errorf("%w: version %d, supported version %d", ErrBadImage, version, ImageVersion)
	}

	capacity := int(byteOrder.Uint16(data[6:8]))
	length := int(byteOrder.Uint16(data[8:10]))
	if capacity == 0 {
		return fmt.Errorf("%w: zero capacity", ErrBadImage)
	}
	if length > capacity {
		return fmt.Errorf("%w: length %d exceeds capacity %d", ErrBadImage, length, capacity)
	}

	code := data[imageHeaderLen:]
	if len(code) != length {
		return fmt.Errorf("%w: header says %d code bytes, found %d", ErrBadImage, length, len(code))
	}

	p.code = make([]byte, capacity)
	p.length = copy(p.code, code)
	p.rewind()
	return nil
}

// DecodeProgram decodes a program image produced by MarshalBinary.
func DecodeProgram(data []byte) (*Program, error) {
	p := &Program{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}
