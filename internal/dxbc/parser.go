// Package dxbc parses compiled-shader containers far enough to recover the
// resource-binding tables: which texture and constant-buffer slots a program
// declares, and the semantic names behind them.
package dxbc

import (
	"encoding/binary"
	"fmt"
)

// Magic is the container signature at offset 0.
const Magic = "DXBC"

const (
	headerSize    = 32 // magic + digest + version + total size + chunk count
	chunkHdrSize  = 8  // fourCC + declared length
	rdefHdrSize   = 28
	bindRecSize   = 32
	cbufRecSize   = 24
	cbufVarSize   = 24
	maxNameLength = 4096
)

// Resource input type tags from the binding records. Samplers are decoded
// but carry no downstream meaning.
const (
	InputCBuffer = 0
	InputTexture = 2
	InputSampler = 3
)

// ParseError reports a malformed container or chunk. Callers degrade to
// numeric slot naming when they see one.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dxbc: %s at offset %d", e.Reason, e.Offset)
}

func parseErrf(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Field is one named member of a constant buffer. Informational only; nothing
// downstream dereferences individual fields.
type Field struct {
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
}

// BindingTable maps declared slot indices to semantic names for one program.
type BindingTable struct {
	ProgramID     uint64
	Textures      map[uint32]string
	CBuffers      map[uint32]string
	CBufferFields map[string][]Field
}

// NewBindingTable returns an empty table for programID.
func NewBindingTable(programID uint64) *BindingTable {
	return &BindingTable{
		ProgramID:     programID,
		Textures:      make(map[uint32]string),
		CBuffers:      make(map[uint32]string),
		CBufferFields: make(map[string][]Field),
	}
}

// Parse decodes the resource-binding tables of one compiled-shader blob.
// Parsing the same blob always yields an identical table.
func Parse(programID uint64, blob []byte) (*BindingTable, error) {
	if len(blob) < headerSize || string(blob[:4]) != Magic {
		return nil, parseErrf(0, "missing %q signature", Magic)
	}

	totalSize := binary.LittleEndian.Uint32(blob[24:])
	if int(totalSize) > len(blob) {
		return nil, parseErrf(24, "declared size %d exceeds blob length %d", totalSize, len(blob))
	}

	chunkCount := int(binary.LittleEndian.Uint32(blob[28:]))
	tableEnd := headerSize + chunkCount*4
	if chunkCount < 0 || tableEnd > len(blob) {
		return nil, parseErrf(28, "chunk table with %d entries exceeds blob", chunkCount)
	}

	table := NewBindingTable(programID)
	for i := 0; i < chunkCount; i++ {
		off := int(binary.LittleEndian.Uint32(blob[headerSize+i*4:]))
		if off+chunkHdrSize > len(blob) {
			return nil, parseErrf(off, "chunk %d header exceeds blob", i)
		}
		fourCC := string(blob[off : off+4])
		length := int(binary.LittleEndian.Uint32(blob[off+4:]))
		payloadStart := off + chunkHdrSize
		if length < 0 || payloadStart+length > len(blob) {
			return nil, parseErrf(off+4, "chunk %q length %d exceeds remaining buffer", fourCC, length)
		}
		if fourCC != "RDEF" {
			continue
		}
		if err := parseRDEF(table, blob[payloadStart:payloadStart+length], payloadStart); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// parseRDEF decodes the resource-definition chunk: binding records first, then
// the nested constant-buffer descriptions.
func parseRDEF(table *BindingTable, chunk []byte, base int) error {
	if len(chunk) < rdefHdrSize {
		return parseErrf(base, "resource chunk shorter than header")
	}

	cbufCount := int(binary.LittleEndian.Uint32(chunk[0:]))
	cbufOffset := int(binary.LittleEndian.Uint32(chunk[4:]))
	bindCount := int(binary.LittleEndian.Uint32(chunk[8:]))
	bindOffset := int(binary.LittleEndian.Uint32(chunk[12:]))

	for i := 0; i < bindCount; i++ {
		rec := bindOffset + i*bindRecSize
		if rec+bindRecSize > len(chunk) {
			return parseErrf(base+rec, "binding record %d exceeds chunk", i)
		}
		nameOff := int(binary.LittleEndian.Uint32(chunk[rec:]))
		inputType := binary.LittleEndian.Uint32(chunk[rec+4:])
		bindPoint := binary.LittleEndian.Uint32(chunk[rec+20:])

		name, err := readName(chunk, nameOff, base)
		if err != nil {
			return err
		}

		switch inputType {
		case InputTexture:
			table.Textures[bindPoint] = name
		case InputCBuffer:
			table.CBuffers[bindPoint] = name
		case InputSampler:
			// declared, nothing to record
		}
	}

	for i := 0; i < cbufCount; i++ {
		rec := cbufOffset + i*cbufRecSize
		if rec+cbufRecSize > len(chunk) {
			return parseErrf(base+rec, "cbuffer record %d exceeds chunk", i)
		}
		nameOff := int(binary.LittleEndian.Uint32(chunk[rec:]))
		varCount := int(binary.LittleEndian.Uint32(chunk[rec+4:]))
		varOffset := int(binary.LittleEndian.Uint32(chunk[rec+8:]))

		name, err := readName(chunk, nameOff, base)
		if err != nil {
			return err
		}

		fields := make([]Field, 0, varCount)
		for v := 0; v < varCount; v++ {
			vrec := varOffset + v*cbufVarSize
			if vrec+cbufVarSize > len(chunk) {
				return parseErrf(base+vrec, "cbuffer %q variable %d exceeds chunk", name, v)
			}
			fieldNameOff := int(binary.LittleEndian.Uint32(chunk[vrec:]))
			fieldName, err := readName(chunk, fieldNameOff, base)
			if err != nil {
				return err
			}
			fields = append(fields, Field{
				Name:   fieldName,
				Offset: binary.LittleEndian.Uint32(chunk[vrec+4:]),
				Size:   binary.LittleEndian.Uint32(chunk[vrec+8:]),
			})
		}
		table.CBufferFields[name] = fields
	}

	return nil
}

// readName reads a null-terminated string at a chunk-relative offset.
func readName(chunk []byte, off, base int) (string, error) {
	if off < 0 || off >= len(chunk) {
		return "", parseErrf(base+off, "name offset outside chunk")
	}
	end := off
	limit := off + maxNameLength
	if limit > len(chunk) {
		limit = len(chunk)
	}
	for end < limit && chunk[end] != 0 {
		end++
	}
	if end == limit && (end >= len(chunk) || chunk[end] != 0) {
		return "", parseErrf(base+off, "unterminated name")
	}
	return string(chunk[off:end]), nil
}
