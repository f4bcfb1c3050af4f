// Package frame implements the application-level RGBA frame encoding
// used by the mock kernel's frame sink: a fixed 8-byte header followed
// by width*height*4 bytes of RGBA8888 pixels, with no dependency on the
// transport layer — it operates purely on byte slices handed to it by a
// slot pool.
package frame

import "encoding/binary"

// HeaderSize is the size of the frame header: 4 bytes frame_id + 2 bytes
// width + 2 bytes height.
const HeaderSize = 8

// WriteCheckerboardRGBA writes a checkerboard RGBA frame into slot with
// the given frame ID and dimensions. Returns false if slot is too small
// to hold the header plus w*h*4 pixel bytes, in which case slot is left
// untouched.
func WriteCheckerboardRGBA(slot []byte, frameID uint32, w, h uint16) bool {
	need := HeaderSize + int(w)*int(h)*4
	if len(slot) < need {
		return false
	}

	binary.LittleEndian.PutUint32(slot[0:4], frameID)
	binary.LittleEndian.PutUint16(slot[4:6], w)
	binary.LittleEndian.PutUint16(slot[6:8], h)

	o := HeaderSize
	for y := 0; y < int(h); y++ {
		for x := 0; x < int(w); x++ {
			tile := ((x >> 3) ^ (y >> 3)) & 1
			v := byte(0x20)
			if tile != 0 {
				v = 0xE0
			}
			slot[o] = v
			slot[o+1] = v
			slot[o+2] = v
			slot[o+3] = 0xFF
			o += 4
		}
	}
	return true
}

// Header is the decoded result of DecodeHeader.
type Header struct {
	FrameID uint32
	Width   uint16
	Height  uint16
}

// DecodeHeader decodes the frame header from slot. Returns false if slot
// is too small to contain a valid header.
func DecodeHeader(slot []byte) (Header, bool) {
	if len(slot) < HeaderSize {
		return Header{}, false
	}
	return Header{
		FrameID: binary.LittleEndian.Uint32(slot[0:4]),
		Width:   binary.LittleEndian.Uint16(slot[4:6]),
		Height:  binary.LittleEndian.Uint16(slot[6:8]),
	}, true
}
