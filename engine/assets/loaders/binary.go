package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

type BinaryLoader struct{}

// Load reads a SPIR-V module from path as 32-bit words.
func (bl *BinaryLoader) Load(path string) ([]uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := BytesToBytecode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

// BytesToBytecode decodes b into SPIR-V words, honouring the endianness
// announced by the magic number.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid SPIR-V size %d, must be a non-zero multiple of 4", len(b))
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(b) == SPIRVMagic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(b) == SPIRVMagic:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid SPIR-V magic number 0x%08x", binary.LittleEndian.Uint32(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = order.Uint32(b[i*4:])
	}
	return byteCode, nil
}
