package vault

// Config is the password-generation settings serialized into the system
// record's CONFIG field (4 bytes), per spec.md §3: use-numbers flag,
// use-letters flag, use-specials flag, generated-password length.
type Config struct {
	UseNumbers  bool
	UseLetters  bool
	UseSpecials bool
	Length      uint8
}

// DefaultConfig is written by Init before the first reconfigure.
func DefaultConfig() Config {
	return Config{
		UseNumbers:  true,
		UseLetters:  true,
		UseSpecials: true,
		Length:      16,
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Encode serializes c into the 4-byte on-disk representation.
func (c Config) Encode() [4]byte {
	return [4]byte{
		boolByte(c.UseNumbers),
		boolByte(c.UseLetters),
		boolByte(c.UseSpecials),
		c.Length,
	}
}

// DecodeConfig parses the 4-byte on-disk representation.
func DecodeConfig(b [4]byte) Config {
	return Config{
		UseNumbers:  b[0] != 0,
		UseLetters:  b[1] != 0,
		UseSpecials: b[2] != 0,
		Length:      b[3],
	}
}
