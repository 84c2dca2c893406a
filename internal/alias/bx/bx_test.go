package bx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAppendRead checks that values are appended most significant byte
// first and read back unchanged, including the -1/-2 record header sentinels.
func TestAppendRead(t *testing.T) {
	// ---- I16 ----
	{
		b := AppendI16(nil, 0x1234)
		assert.Equal(t, []byte{0x12, 0x34}, b)
		assert.Equal(t, int16(0x1234), I16(b))

		b = AppendI16(nil, -1)
		assert.Equal(t, []byte{0xff, 0xff}, b)
		assert.Equal(t, int16(-1), I16(b))

		b = AppendI16(nil, -2)
		assert.Equal(t, []byte{0xff, 0xfe}, b)
		assert.Equal(t, int16(-2), I16(b))
	}

	// ---- I32 ----
	{
		b := AppendI32(nil, 0x01020304)
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, b)
		assert.Equal(t, int32(0x01020304), I32(b))

		b = AppendI32(nil, -123456)
		assert.Equal(t, int32(-123456), I32(b))
	}

	// ---- F64 ----
	{
		// 1.5 = 0x3FF8000000000000
		b := AppendF64(nil, 1.5)
		assert.Equal(t, []byte{0x3f, 0xf8, 0, 0, 0, 0, 0, 0}, b)
		assert.Equal(t, 1.5, F64(b))

		b = AppendF64(nil, math.Inf(-1))
		assert.True(t, math.IsInf(F64(b), -1))
	}
}

func TestAppendSequence(t *testing.T) {
	var out []byte
	out = AppendI16(out, 12)
	out = AppendI32(out, -1)
	out = AppendF64(out, 0)

	assert.Equal(t, []byte{
		0x00, 0x0c,
		0xff, 0xff, 0xff, 0xff,
		0, 0, 0, 0, 0, 0, 0, 0,
	}, out)

	// reads take the leading bytes at any offset
	assert.Equal(t, int32(-1), I32(out[2:]))
	assert.Equal(t, 0.0, F64(out[6:]))
}
