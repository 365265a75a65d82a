// Package formats provides parsers for the binary payloads embedded in
// packaged 3D assets: OpenEXR radiance images and KTX2 texture containers.
package formats

import (
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// MIME types of the payloads this package understands.
const (
	MimeEXR  = "image/x-exr"
	MimeKTX2 = "image/ktx2"
	MimeGLB  = "model/gltf-binary"
)

// MaxImagePixels bounds the pixel count of any decoded image. Sizes read
// from untrusted headers are checked against it before allocation.
const MaxImagePixels = 1 << 26

var (
	exrMagic  = []byte{0x76, 0x2f, 0x31, 0x01}
	ktx2Magic = []byte{0xAB, 'K', 'T', 'X', ' ', '2', '0', 0xBB, '\r', '\n', 0x1A, '\n'}
	glbMagic  = []byte{'g', 'l', 'T', 'F'}
)

// Sniffable types registered with filetype.
var (
	TypeEXR  = filetype.NewType("exr", MimeEXR)
	TypeKTX2 = filetype.NewType("ktx2", MimeKTX2)
	TypeGLB  = filetype.NewType("glb", MimeGLB)
)

func init() {
	filetype.AddMatcher(TypeEXR, prefixMatcher(exrMagic))
	filetype.AddMatcher(TypeKTX2, prefixMatcher(ktx2Magic))
	filetype.AddMatcher(TypeGLB, prefixMatcher(glbMagic))
}

func prefixMatcher(magic []byte) func([]byte) bool {
	return func(buf []byte) bool {
		if len(buf) < len(magic) {
			return false
		}
		for i, b := range magic {
			if buf[i] != b {
				return false
			}
		}
		return true
	}
}

// Sniff returns the detected payload type, or filetype.Unknown.
func Sniff(data []byte) types.Type {
	head := data
	if len(head) > 262 {
		head = head[:262]
	}
	t, err := filetype.Match(head)
	if err != nil {
		return filetype.Unknown
	}
	return t
}

// IsEXR reports whether data starts with the OpenEXR magic number.
func IsEXR(data []byte) bool {
	return Sniff(data) == TypeEXR
}

// IsKTX2 reports whether data starts with the KTX2 identifier.
func IsKTX2(data []byte) bool {
	return Sniff(data) == TypeKTX2
}

// IsGLB reports whether data starts with the binary glTF magic.
func IsGLB(data []byte) bool {
	return Sniff(data) == TypeGLB
}
