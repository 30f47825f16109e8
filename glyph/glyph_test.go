package glyph

import "testing"

func TestEncode(t *testing.T) {
	testData := []struct {
		input rune
		want  Mask
	}{
		{'0', 0x003f},
		{'1', 0x0006},
		{'8', 0x00ff},
		{'A', 0x00f7},
		{'l', 0x0018},
		{'i', 0x1200},
		{'|', 0x1200},
		{'↑', 0x3800},
		{'↓', 0x0700},
		{' ', 0x0000},
		{'€', 0x0000}, // no pattern, renders blank
		{'\n', 0x0000},
	}

	for i, test := range testData {
		if got, want := Encode(test.input), test.want; got != want {
			t.Errorf("test %d (%q):\n  got: %#04x\n want: %#04x", i, test.input, got, want)
		}
	}
}

func TestText(t *testing.T) {
	testData := []struct {
		input string
		want  [Width]Mask
	}{
		{"", [Width]Mask{0, 0, 0, 0}},
		{"HI", [Width]Mask{Encode('H'), Encode('I'), 0, 0}},
		{"1405", [Width]Mask{Encode('1'), Encode('4'), Encode('0'), Encode('5')}},
		{"FLASH", [Width]Mask{Encode('F'), Encode('L'), Encode('A'), Encode('S')}},
		{" 205", [Width]Mask{0, Encode('2'), Encode('0'), Encode('5')}},
	}

	for i, test := range testData {
		if got, want := Text(test.input), test.want; got != want {
			t.Errorf("test %d (%q):\n  got: %v\n want: %v", i, test.input, got, want)
		}
	}
}

func TestHinted(t *testing.T) {
	testData := []struct {
		input rune
		want  [Width]Mask
	}{
		{'1', [Width]Mask{Encode('N'), 0, 0, Encode('1')}},
		{'l', [Width]Mask{Encode('↓'), Encode('L'), 0, Encode('l')}},
		{'i', [Width]Mask{Encode('↓'), Encode('I'), 0, Encode('i')}},
		{'!', [Width]Mask{Encode('↑'), Encode('1'), 0, Encode('!')}},
		{'|', [Width]Mask{Encode('P'), Encode('I'), Encode('P'), Encode('|')}},
		{':', [Width]Mask{Encode('C'), Encode('O'), Encode('L'), Encode(':')}},
		{';', [Width]Mask{Encode('S'), Encode('C'), Encode('L'), Encode(';')}},
		// Unambiguous characters keep the left of the display blank.
		{'a', [Width]Mask{0, 0, 0, Encode('a')}},
		{'Z', [Width]Mask{0, 0, 0, Encode('Z')}},
		{' ', [Width]Mask{0, 0, 0, 0}},
	}

	for i, test := range testData {
		if got, want := Hinted(test.input), test.want; got != want {
			t.Errorf("test %d (%q):\n  got: %v\n want: %v", i, test.input, got, want)
		}
	}
}

// TestHintUniqueness checks that no two ambiguous characters share a
// mnemonic; if they did, the hint would be as confusing as the glyphs it
// explains.
func TestHintUniqueness(t *testing.T) {
	seen := make(map[[Width - 1]Mask]rune)
	var n int
	for _, r := range PasswordChars {
		if !Ambiguous(r) {
			continue
		}
		n++
		full := Hinted(r)
		var left [Width - 1]Mask
		copy(left[:], full[:Width-1])
		if prev, ok := seen[left]; ok {
			t.Errorf("characters %q and %q render the same hint %v", prev, r, left)
		}
		seen[left] = r
	}
	if got, want := n, 7; got != want {
		t.Errorf("ambiguous character count:\n  got: %v\n want: %v", got, want)
	}
}

func TestPasswordChars(t *testing.T) {
	if got, want := len(PasswordChars), 94; got != want {
		t.Errorf("character set size:\n  got: %v\n want: %v", got, want)
	}

	seen := make(map[rune]bool)
	for _, r := range PasswordChars {
		if seen[r] {
			t.Errorf("character %q appears twice in the cycle", r)
		}
		seen[r] = true
		if _, ok := masks[r]; !ok {
			t.Errorf("character %q has no segment pattern", r)
		}
	}

	// The cycle order is part of the UI: spot-check the section starts.
	order := []struct {
		index int
		want  rune
	}{
		{0, 'a'},
		{25, 'z'},
		{26, '1'},
		{34, '9'},
		{35, '0'},
		{36, 'A'},
		{61, 'Z'},
		{62, '-'},
		{93, ' '},
	}
	for _, test := range order {
		if got, want := PasswordChars[test.index], test.want; got != want {
			t.Errorf("PasswordChars[%d]:\n  got: %q\n want: %q", test.index, got, want)
		}
	}
}
