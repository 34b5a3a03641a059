package software

import (
	"image"
	"image/color"
	"os"

	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/hybrid/engine/math"
	"github.com/spaghettifunk/hybrid/engine/renderer/metadata"
)

// Image is a CPU surface. Every format is stored as four float32 channels;
// unused channels stay zero.
type Image struct {
	name   string
	format metadata.Format
	width  uint32
	height uint32
	Pix    []float32

	released bool
}

func newImage(desc metadata.AttachmentDesc) *Image {
	return &Image{
		name:   desc.Name,
		format: desc.Format,
		width:  desc.Width,
		height: desc.Height,
		Pix:    make([]float32, int(desc.Width)*int(desc.Height)*4),
	}
}

func (im *Image) Name() string            { return im.name }
func (im *Image) Width() uint32           { return im.width }
func (im *Image) Height() uint32          { return im.height }
func (im *Image) Format() metadata.Format { return im.format }
func (im *Image) Released() bool          { return im.released }
func (im *Image) bytes() uint64           { return uint64(len(im.Pix)) * 4 }
func (im *Image) offset(x, y uint32) int  { return (int(y)*int(im.width) + int(x)) * 4 }
func (im *Image) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(im.width) && y < int(im.height)
}

func (im *Image) At(x, y uint32) math.Vec4 {
	o := im.offset(x, y)
	return math.Vec4{X: im.Pix[o], Y: im.Pix[o+1], Z: im.Pix[o+2], W: im.Pix[o+3]}
}

func (im *Image) Set(x, y uint32, v math.Vec4) {
	o := im.offset(x, y)
	switch im.format.Channels() {
	case 1:
		im.Pix[o] = v.X
	case 2:
		im.Pix[o], im.Pix[o+1] = v.X, v.Y
	default:
		im.Pix[o], im.Pix[o+1], im.Pix[o+2], im.Pix[o+3] = v.X, v.Y, v.Z, v.W
	}
	if im.format == metadata.FormatRGBA8Unorm {
		for i := 0; i < 4; i++ {
			im.Pix[o+i] = math.Saturate(im.Pix[o+i])
		}
	}
}

func (im *Image) Fill(v math.Vec4) {
	for y := uint32(0); y < im.height; y++ {
		for x := uint32(0); x < im.width; x++ {
			im.Set(x, y, v)
		}
	}
}

// Uniform reports whether every texel holds the same value.
func (im *Image) Uniform() bool {
	for i := 4; i < len(im.Pix); i += 4 {
		if im.Pix[i] != im.Pix[0] || im.Pix[i+1] != im.Pix[1] || im.Pix[i+2] != im.Pix[2] || im.Pix[i+3] != im.Pix[3] {
			return false
		}
	}
	return true
}

// ToRGBA converts the surface to an 8-bit image for capture.
func (im *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, int(im.width), int(im.height)))
	for y := uint32(0); y < im.height; y++ {
		for x := uint32(0); x < im.width; x++ {
			v := im.At(x, y)
			out.SetRGBA(int(x), int(y), color.RGBA{
				R: uint8(math.Saturate(v.X)*255 + 0.5),
				G: uint8(math.Saturate(v.Y)*255 + 0.5),
				B: uint8(math.Saturate(v.Z)*255 + 0.5),
				A: uint8(math.Saturate(v.W)*255 + 0.5),
			})
		}
	}
	return out
}

// WriteBMP captures a surface to disk.
func WriteBMP(surface metadata.Surface, path string) error {
	im, ok := surface.(*Image)
	if !ok {
		return errForeignSurface(surface)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, im.ToRGBA()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
