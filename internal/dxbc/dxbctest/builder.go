// Package dxbctest assembles synthetic compiled-shader containers for tests.
package dxbctest

import (
	"encoding/binary"

	"gpa-frame-export/internal/dxbc"
)

const (
	headerSize   = 32
	chunkHdrSize = 8
	rdefHdrSize  = 28
	bindRecSize  = 32
	cbufRecSize  = 24
	cbufVarSize  = 24
)

// BindDecl declares one resource-binding record.
type BindDecl struct {
	Name      string
	InputType uint32
	BindPoint uint32
}

// CBufDecl declares one constant buffer with its member fields.
type CBufDecl struct {
	Name   string
	Fields []dxbc.Field
}

// Chunk is one fourCC-tagged payload of a container.
type Chunk struct {
	FourCC  string
	Payload []byte
}

// RDEF assembles a resource-definition chunk payload: header, binding
// records, cbuffer records, variable records, then the string pool.
func RDEF(binds []BindDecl, cbufs []CBufDecl) []byte {
	bindOffset := rdefHdrSize
	cbufOffset := bindOffset + len(binds)*bindRecSize
	varOffset := cbufOffset + len(cbufs)*cbufRecSize
	varTotal := 0
	for _, cb := range cbufs {
		varTotal += len(cb.Fields) * cbufVarSize
	}
	stringsOffset := varOffset + varTotal

	var pool []byte
	nameOff := map[string]int{}
	intern := func(s string) int {
		if off, ok := nameOff[s]; ok {
			return off
		}
		off := stringsOffset + len(pool)
		nameOff[s] = off
		pool = append(pool, s...)
		pool = append(pool, 0)
		return off
	}

	chunk := make([]byte, stringsOffset)
	binary.LittleEndian.PutUint32(chunk[0:], uint32(len(cbufs)))
	binary.LittleEndian.PutUint32(chunk[4:], uint32(cbufOffset))
	binary.LittleEndian.PutUint32(chunk[8:], uint32(len(binds)))
	binary.LittleEndian.PutUint32(chunk[12:], uint32(bindOffset))

	for i, b := range binds {
		rec := bindOffset + i*bindRecSize
		binary.LittleEndian.PutUint32(chunk[rec:], uint32(intern(b.Name)))
		binary.LittleEndian.PutUint32(chunk[rec+4:], b.InputType)
		binary.LittleEndian.PutUint32(chunk[rec+20:], b.BindPoint)
	}

	vo := varOffset
	for i, cb := range cbufs {
		rec := cbufOffset + i*cbufRecSize
		binary.LittleEndian.PutUint32(chunk[rec:], uint32(intern(cb.Name)))
		binary.LittleEndian.PutUint32(chunk[rec+4:], uint32(len(cb.Fields)))
		binary.LittleEndian.PutUint32(chunk[rec+8:], uint32(vo))
		for _, f := range cb.Fields {
			binary.LittleEndian.PutUint32(chunk[vo:], uint32(intern(f.Name)))
			binary.LittleEndian.PutUint32(chunk[vo+4:], f.Offset)
			binary.LittleEndian.PutUint32(chunk[vo+8:], f.Size)
			vo += cbufVarSize
		}
	}

	return append(chunk, pool...)
}

// Container wraps chunks in a DXBC container with a valid header and offset
// table, in the order given.
func Container(chunks ...Chunk) []byte {
	blob := make([]byte, headerSize+len(chunks)*4)
	copy(blob, dxbc.Magic)
	for i, c := range chunks {
		binary.LittleEndian.PutUint32(blob[headerSize+i*4:], uint32(len(blob)))
		hdr := make([]byte, chunkHdrSize)
		copy(hdr, c.FourCC)
		binary.LittleEndian.PutUint32(hdr[4:], uint32(len(c.Payload)))
		blob = append(blob, hdr...)
		blob = append(blob, c.Payload...)
	}
	binary.LittleEndian.PutUint32(blob[24:], uint32(len(blob)))
	binary.LittleEndian.PutUint32(blob[28:], uint32(len(chunks)))
	return blob
}

// Blob builds a complete container holding one RDEF chunk (preceded by a
// dummy signature chunk, as real blobs carry several chunk kinds).
func Blob(binds []BindDecl, cbufs []CBufDecl) []byte {
	return Container(
		Chunk{FourCC: "ISGN", Payload: make([]byte, 8)},
		Chunk{FourCC: "RDEF", Payload: RDEF(binds, cbufs)},
	)
}
