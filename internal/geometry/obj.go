package geometry

import (
	"bufio"
	"fmt"
	"io"
)

// Mesh is reconstructed geometry for one draw event, ready for OBJ output.
// Indices are 0-based triangle-list references into the attribute arrays.
type Mesh struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32
	Skinned   bool
}

// WriteOBJ serializes the mesh as Wavefront OBJ text: comment header, vertex
// lines, optional texture-coordinate and normal lines, then faces built from
// consecutive index triples using 1-based references.
func WriteOBJ(w io.Writer, m *Mesh, header []string) error {
	bw := bufio.NewWriter(w)

	for _, line := range header {
		fmt.Fprintf(bw, "# %s\n", line)
	}
	if len(header) > 0 {
		fmt.Fprintln(bw)
	}

	for _, v := range m.Positions {
		fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", v[0], v[1], v[2])
	}
	bw.WriteByte('\n')

	if len(m.UVs) > 0 {
		for _, uv := range m.UVs {
			fmt.Fprintf(bw, "vt %.6f %.6f\n", uv[0], uv[1])
		}
		bw.WriteByte('\n')
	}

	if len(m.Normals) > 0 {
		for _, n := range m.Normals {
			fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", n[0], n[1], n[2])
		}
		bw.WriteByte('\n')
	}

	hasUV := len(m.UVs) > 0
	hasNormal := len(m.Normals) > 0
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := m.Indices[i] + 1
		b := m.Indices[i+1] + 1
		c := m.Indices[i+2] + 1
		switch {
		case hasUV && hasNormal:
			fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
		case hasUV:
			fmt.Fprintf(bw, "f %d/%d %d/%d %d/%d\n", a, a, b, b, c, c)
		case hasNormal:
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		default:
			fmt.Fprintf(bw, "f %d %d %d\n", a, b, c)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("geometry: write obj: %w", err)
	}
	return nil
}
