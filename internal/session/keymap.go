package session

// KeyName maps a Windows virtual-key code to its stable symbolic name.
// Unknown codes (including the synthetic 0xFF) return ("", false) and the
// event is dropped by the collector.
func KeyName(vk uint16) (string, bool) {
	switch {
	case vk >= 0x41 && vk <= 0x5A:
		return string(rune('A' + (vk - 0x41))), true
	case vk >= 0x31 && vk <= 0x39:
		return digitNames[vk-0x31], true
	case vk >= 0x70 && vk <= 0x7B:
		return functionKeyNames[vk-0x70], true
	}

	switch vk {
	case 0x10:
		return "Shift", true
	case 0x11:
		return "Ctrl", true
	case 0x12:
		return "Alt", true
	case 0x20:
		return "Space", true
	case 0x1B:
		return "Esc", true
	case 0x09:
		return "Tab", true
	case 0x0D:
		return "Enter", true
	case 0x26:
		return "Up", true
	case 0x28:
		return "Down", true
	case 0x25:
		return "Left", true
	case 0x27:
		return "Right", true
	default:
		return "", false
	}
}

var digitNames = [9]string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

var functionKeyNames = [12]string{
	"One", "Two", "Three", "Four", "Five", "Six",
	"Seven", "Eight", "Nine", "Ten", "Eleven", "Twelve",
}
