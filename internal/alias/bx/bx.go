// stand for bytes helper
//
// Catalog entries and stored records are big-endian (network order) on disk,
// so every helper here reads and writes BE.
package bx

import (
	"encoding/binary"
	"math"
)

var BE = binary.BigEndian

// --- BE: read ---
func I16(b []byte) int16   { return int16(BE.Uint16(b)) }
func I32(b []byte) int32   { return int32(BE.Uint32(b)) }
func F64(b []byte) float64 { return math.Float64frombits(BE.Uint64(b)) }

// --- BE: append ---
func AppendI16(dst []byte, v int16) []byte   { return BE.AppendUint16(dst, uint16(v)) }
func AppendI32(dst []byte, v int32) []byte   { return BE.AppendUint32(dst, uint32(v)) }
func AppendF64(dst []byte, v float64) []byte { return BE.AppendUint64(dst, math.Float64bits(v)) }
