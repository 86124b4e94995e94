package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteGroupsBytesPerRow(t *testing.T) {
	out := Write([]byte{0x00, 0x01, 0x02, 0x03, 0x04}, 2)
	assert.Equal(t, "000000: 00 01\n000002: 02 03\n000004: 04\n", out)
}

func TestWriteDefaultsToEightBytesPerRowWhenZero(t *testing.T) {
	data := make([]byte, 9)
	out := Write(data, 0)
	assert.Contains(t, out, "000000: 00 00 00 00 00 00 00 00\n")
	assert.Contains(t, out, "000008: 00\n")
}

func TestWriteEmptyInputProducesEmptyString(t *testing.T) {
	assert.Equal(t, "", Write(nil, 8))
}
