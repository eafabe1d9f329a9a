package disasm

const hexDigits = "0123456789ABCDEF"

// appendHex8 writes v in assembler notation: "42h", "0FFh".
func appendHex8(buf []byte, v uint8) []byte {
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	return append(buf, hexDigits[v>>4], hexDigits[v&0x0F], 'h')
}

func appendHex16(buf []byte, v uint16) []byte {
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	return append(buf, hexDigits[v>>12], hexDigits[(v>>8)&0x0F], hexDigits[(v>>4)&0x0F], hexDigits[v&0x0F], 'h')
}

// appendDisp writes a signed displacement as "+05h" or "-80h".
func appendDisp(buf []byte, d int8) []byte {
	if d < 0 {
		return appendHex8(append(buf, '-'), uint8(-int16(d)))
	}
	return appendHex8(append(buf, '+'), uint8(d))
}

// appendDB renders raw bytes as a data directive.
func appendDB(buf []byte, bs []byte) []byte {
	buf = append(buf, "DB "...)
	for i, b := range bs {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = appendHex8(buf, b)
	}
	return buf
}
