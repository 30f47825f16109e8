// Package glyph maps characters onto the segment patterns of a four-digit,
// 14-segment LED display.
package glyph

import "fmt"

// Mask is the segment pattern of one digit.  Bit assignments follow the
// HT16K33 row order on the quad alphanumeric backpack: bits 0-5 are the
// outer segments A-F clockwise from the top, 6-7 the split middle bar,
// 8-13 the inner diagonals and verticals, and bit 14 the decimal point
// row, which this board wires to the colon on digit 1.  Bit 15 is not
// connected.
type Mask uint16

// Segments is the set of rows the device can actually drive.
const Segments Mask = 0x7fff

// Width is the number of digits on the display.
const Width = 4

var masks = map[rune]Mask{
	' ': 0x0000, '-': 0x00c0, '[': 0x0039, ']': 0x000f, '_': 0x0008,

	'0': 0x003f, '1': 0x0006, '2': 0x00db, '3': 0x00cf, '4': 0x00e6,
	'5': 0x00ed, '6': 0x00fd, '7': 0x0007, '8': 0x00ff, '9': 0x00ef,

	'!': 0x4002, '@': 0x02bb, '#': 0x12f8, '$': 0x12ed,
	'%': 0x0c24, '^': 0x0120, '&': 0x235d, '*': 0x3fc0,
	'(': 0x2400, ')': 0x0900, ',': 0x0800, '.': 0x4000,
	'?': 0x60a3, '/': 0x0c00, '\\': 0x2100, '~': 0x0100,
	'=': 0x00c8, '+': 0x12c0, '{': 0x0949, '}': 0x2489,
	'|': 0x1200, '<': 0x0480, '>': 0x0140, ':': 0x0030,
	';': 0x0a00, '\'': 0x0020, '"': 0x0220, '↑': 0x3800, '↓': 0x0700,

	'A': 0x00f7, 'a': 0x00df,
	'B': 0x2479, 'b': 0x00fc,
	'C': 0x0039, 'c': 0x00d8,
	'D': 0x0930, 'd': 0x00de,
	'E': 0x0079, 'e': 0x00fb,
	'F': 0x00f1, 'f': 0x0071,
	'G': 0x00bd, 'g': 0x00ef,
	'H': 0x00f6, 'h': 0x00f4,
	'I': 0x1209, 'i': 0x1200,
	'J': 0x001e, 'j': 0x001e,
	'K': 0x2470, 'k': 0x2470,
	'L': 0x0038, 'l': 0x0018,
	'M': 0x0536, 'm': 0x0536,
	'N': 0x2136, 'n': 0x00d4,
	'O': 0x003f, 'o': 0x00dc,
	'P': 0x00f3, 'p': 0x00f3,
	'Q': 0x203f, 'q': 0x20e3,
	'R': 0x20f3, 'r': 0x0050,
	'S': 0x00ed, 's': 0x00ed,
	'T': 0x1201, 't': 0x12c0,
	'U': 0x003e, 'u': 0x001c,
	'V': 0x0c30, 'v': 0x0810,
	'W': 0x2836, 'w': 0x2814,
	'X': 0x2d00, 'x': 0x2d00,
	'Y': 0x1500, 'y': 0x1500,
	'Z': 0x0c09, 'z': 0x0848,
}

// Encode returns the segment pattern for r.  Characters the display has no
// pattern for render blank; rendering is total and callers never need to
// check.
func Encode(r rune) Mask {
	return masks[r] & Segments
}

// Text renders up to four characters, left-aligned.  Shorter strings are
// padded with blanks and longer strings are truncated; scrolling longer
// text is the caller's job.
func Text(s string) [Width]Mask {
	var out [Width]Mask
	i := 0
	for _, r := range s {
		if i == Width {
			break
		}
		out[i] = Encode(r)
		i++
	}
	return out
}

// PasswordChars is the cycle order for password entry: one full turn of the
// knob from 'a' visits the lowercase letters, digits, uppercase letters and
// symbols in this exact order.
var PasswordChars = []rune("abcdefghijklmnopqrstuvwxyz" +
	"1234567890" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	`-_[]!@#$%^&*(),.?/\~=+{}|<>:;'" `)

// hints spells out the characters whose 14-segment pattern is identical or
// nearly identical to another character's.  Each value is the three-digit
// mnemonic shown to the left of the character itself during password entry.
var hints = map[rune]string{
	'1': "N  ",
	'l': "↓L ",
	'i': "↓I ",
	'!': "↑1 ",
	'|': "PIP",
	':': "COL",
	';': "SCL",
}

// Hinted renders a password character across the whole display: the
// character itself on the rightmost digit and, for characters in the
// ambiguous set, its mnemonic on the left three.  Everything else gets a
// blank left side.
func Hinted(r rune) [Width]Mask {
	var out [Width]Mask
	if h, ok := hints[r]; ok {
		i := 0
		for _, hr := range h {
			out[i] = Encode(hr)
			i++
		}
	}
	out[Width-1] = Encode(r)
	return out
}

// Ambiguous reports whether r renders with a mnemonic during password
// entry.
func Ambiguous(r rune) bool {
	_, ok := hints[r]
	return ok
}

func init() {
	// Two ambiguous characters sharing a mnemonic would defeat the whole
	// point of hinting, so refuse to start.
	seen := make(map[string]rune, len(hints))
	for r, h := range hints {
		if prev, ok := seen[h]; ok {
			panic(fmt.Sprintf("glyph: mnemonic %q assigned to both %q and %q", h, prev, r))
		}
		seen[h] = r
	}
}
