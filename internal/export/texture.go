// Package export writes per-event assets (textures, buffer descriptors,
// shader blobs, binding maps) into the event's output directories.
package export

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"

	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/correlate"
	"gpa-frame-export/internal/dds"
	"gpa-frame-export/internal/runlog"
)

// previewMaxDim caps the WebP thumbnail edge length.
const previewMaxDim = 256

// TextureRecord is one manifest entry for a texture slot of an event. Slots
// bound to the same resource share a File; omitted resources carry a Reason
// instead.
type TextureRecord struct {
	Slot       string `json:"slot"`
	Name       string `json:"dxbc_name"`
	ResourceID uint64 `json:"resource_id"`
	File       string `json:"file,omitempty"`
	Preview    string `json:"preview,omitempty"`
	Omitted    bool   `json:"omitted,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// TextureExporter writes the textures a draw event samples as DDS files, with
// optional TGA/WebP previews for uncompressed formats.
type TextureExporter struct {
	Resources capture.ResourceSource
	Log       *runlog.Sink
	Preview   bool
}

// Export writes one DDS per distinct texture resource in bindings into dir and
// returns a manifest record per slot plus the number of files written. A
// resource with no captured bytes is recorded as omitted; the event continues.
func (te *TextureExporter) Export(dir string, bindings []correlate.Binding) ([]TextureRecord, int) {
	written := make(map[uint64]TextureRecord, len(bindings))
	records := make([]TextureRecord, 0, len(bindings))
	files := 0

	for _, b := range bindings {
		if prev, ok := written[b.ResourceID]; ok {
			rec := prev
			rec.Slot = b.Slot
			rec.Name = b.Name
			records = append(records, rec)
			continue
		}

		rec := te.exportOne(dir, b)
		if !rec.Omitted && rec.File != "" {
			files++
		}
		written[b.ResourceID] = rec
		records = append(records, rec)
	}
	return records, files
}

func (te *TextureExporter) exportOne(dir string, b correlate.Binding) TextureRecord {
	rec := TextureRecord{Slot: b.Slot, Name: b.Name, ResourceID: b.ResourceID}

	data, info, err := te.Resources.ImageData(b.ResourceID, 0)
	if err != nil {
		te.Log.Debugf("export: texture %X (%s): %v", b.ResourceID, b.Name, err)
		rec.Omitted = true
		rec.Reason = err.Error()
		return rec
	}

	if info.Width == 0 || info.Height == 0 {
		// no usable header; keep the bytes anyway
		name := fmt.Sprintf("tex_%X.raw", b.ResourceID)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			rec.Omitted = true
			rec.Reason = err.Error()
			return rec
		}
		rec.File = name
		return rec
	}

	rec.File = textureFileName(b)
	f, err := os.Create(filepath.Join(dir, rec.File))
	if err != nil {
		rec.File = ""
		rec.Omitted = true
		rec.Reason = err.Error()
		return rec
	}
	defer f.Close()

	if err := dds.Encode(f, info.Width, info.Height, info.Format, data); err != nil {
		te.Log.Errorf("export: texture %X: %v", b.ResourceID, err)
		rec.File = ""
		rec.Omitted = true
		rec.Reason = err.Error()
		return rec
	}

	if te.Preview {
		rec.Preview = te.writePreview(dir, b.ResourceID, info, data)
	}
	return rec
}

// textureFileName builds the output name: the semantic shader name when one
// resolved, else a bare hex id.
func textureFileName(b correlate.Binding) string {
	if b.Name != "" && b.Name != b.Slot {
		return fmt.Sprintf("t_%s_%X.dds", sanitizeName(b.Name), b.ResourceID)
	}
	return fmt.Sprintf("tex_%X.dds", b.ResourceID)
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// writePreview emits a full-size TGA and a downscaled WebP thumbnail for
// uncompressed RGBA/BGRA textures. Preview failures are logged and skipped;
// the DDS is already on disk.
func (te *TextureExporter) writePreview(dir string, resourceID uint64, info capture.ImageInfo, data []byte) string {
	img := decodeUncompressed(info, data)
	if img == nil {
		return ""
	}

	tgaName := fmt.Sprintf("tex_%X.tga", resourceID)
	if f, err := os.Create(filepath.Join(dir, tgaName)); err == nil {
		if err := tga.Encode(f, img); err != nil {
			te.Log.Errorf("export: tga preview %X: %v", resourceID, err)
		}
		f.Close()
	}

	thumb := img
	if img.Bounds().Dx() > previewMaxDim || img.Bounds().Dy() > previewMaxDim {
		thumb = downscale(img, previewMaxDim)
	}

	webpName := fmt.Sprintf("tex_%X.webp", resourceID)
	f, err := os.Create(filepath.Join(dir, webpName))
	if err != nil {
		return ""
	}
	defer f.Close()
	if err := nativewebp.Encode(f, thumb, nil); err != nil {
		te.Log.Errorf("export: webp preview %X: %v", resourceID, err)
		return ""
	}
	return webpName
}

// decodeUncompressed turns raw R8G8B8A8/B8G8R8A8 texel bytes into an NRGBA
// image, swizzling BGRA channel order. Other formats return nil.
func decodeUncompressed(info capture.ImageInfo, data []byte) *image.NRGBA {
	bgra := strings.Contains(info.Format, "B8G8R8A8")
	if !bgra && !strings.Contains(info.Format, "R8G8B8A8") {
		return nil
	}
	w, h := int(info.Width), int(info.Height)
	if len(data) < w*h*4 {
		return nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		r, g, b, a := data[i*4], data[i*4+1], data[i*4+2], data[i*4+3]
		if bgra {
			r, b = b, r
		}
		img.Pix[i*4+0] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = a
	}
	return img
}

func downscale(img *image.NRGBA, maxDim int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}
