package keyboard

// usLayout maps scan code set 1 make codes to the characters of a US QWERTY
// layout. Modifier, function and navigation keys map to 0.
var usLayout = [128]byte{
	0, 27, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=', '\b',
	'\t',
	'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']', '\n',
	0, // left control
	'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`',
	0, // left shift
	'\\', 'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/',
	0, // right shift
	'*',
	0, // left alt
	' ',
	0,                            // caps lock
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // F1-F10
	0, // num lock
	0, // scroll lock
	0, // home
	0, // up
	0, // page up
	'-',
	0, // left
	0, // keypad 5
	0, // right
	'+',
	0, // end
	0, // down
	0, // page down
	0, // insert
	0, // delete
	0, 0, 0,
	0, // F11
	0, // F12
}

// Scancode returns the make code that produces ch. The second return value
// is false if no key on the layout produces ch.
func Scancode(ch byte) (uint8, bool) {
	if ch == 0 {
		return 0, false
	}

	for code, mapped := range usLayout {
		if mapped == ch {
			return uint8(code), true
		}
	}
	return 0, false
}
