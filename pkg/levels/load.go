package levels

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// LoadPlanes decodes an image file and splits it into float planes at
// the image's empirical mode (gray vs color, alpha vs not, judged from
// the pixels). The codec comes from the extension: png, jpg/jpeg, gif,
// bmp, tif/tiff, or Radiance hdr.
func LoadPlanes(filename string, cfg Config) (Planes, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
		return loadLDR(filename)
	case ".tif", ".tiff":
		return loadTIFF(filename, cfg)
	case ".hdr":
		return loadHDR(filename)
	}
	return Planes{}, fmt.Errorf("no image codec for '%s' (loading '%s')", ext, filename)
}

func loadLDR(filename string) (Planes, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return Planes{}, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		return Planes{}, fmt.Errorf("decoding '%s': %v", filename, err)
	}

	return SplitImage(img, EmpiricalMode(img), imageDepth(img)), nil
}

// loadTIFF reads the EXIF block first to sniff the native bit depth
// (the decoded Go type doesn't always tell the whole story), then
// re-opens the file for the pixel data. Missing or unreadable EXIF is
// fine - the decoded type decides instead.
func loadTIFF(filename string, cfg Config) (Planes, error) {
	depth := 0
	if reader, err := os.Open(filename); err != nil {
		return Planes{}, fmt.Errorf("open+r exif '%s': %v", filename, err)
	} else {
		if ex, err := exif.Decode(reader); err == nil {
			if tag, err := ex.Get(exif.BitsPerSample); err == nil {
				if bits, err := tag.Int(0); err == nil {
					depth = bits
				}
			}
		}
		reader.Close()
	}
	if depth != 8 && depth != 16 {
		if cfg.Verbosity > 1 {
			log.Printf("no usable EXIF BitsPerSample in '%s', trusting the decoder\n", filename)
		}
		depth = 0
	}

	// Re-open the file, now for the image data
	reader, err := os.Open(filename)
	if err != nil {
		return Planes{}, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return Planes{}, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}
	if depth == 0 {
		depth = imageDepth(img)
	}

	return SplitImage(img, EmpiricalMode(img), depth), nil
}

// loadHDR reads a Radiance file. HDR intensities aren't bounded, so
// when anything exceeds 1.0 the planes get normalized by the brightest
// channel value seen - the levels math wants [0,1].
func loadHDR(filename string) (Planes, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return Planes{}, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := rgbe.Decode(reader)
	if err != nil {
		return Planes{}, fmt.Errorf("rgbe loading '%s': %v", filename, err)
	}

	hdrImg, ok := img.(hdr.Image)
	if !ok {
		return SplitImage(img, EmpiricalMode(img), 16), nil
	}

	b := hdrImg.Bounds()
	p := NewPlanes(ModeRGB, 16, b.Dx(), b.Dy())
	peak := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := hdrImg.HDRAt(x, y).HDRRGBA()
			p.Chans[0].Set(x-b.Min.X, y-b.Min.Y, r)
			p.Chans[1].Set(x-b.Min.X, y-b.Min.Y, g)
			p.Chans[2].Set(x-b.Min.X, y-b.Min.Y, bb)
			if r > peak { peak = r }
			if g > peak { peak = g }
			if bb > peak { peak = bb }
		}
	}

	for c := range p.Chans {
		vals := p.Chans[c].Values()
		for i := range vals {
			if peak > 1.0 {
				vals[i] /= peak
			}
			if vals[i] < 0.0 { vals[i] = 0.0 }
		}
	}

	return p.narrow(), nil
}

// imageDepth is the native bits-per-channel of a decoded Go image.
func imageDepth(img image.Image) int {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return 16
	}
	return 8
}

// WritePlanes encodes the planes into the format named by the output
// extension. Radiance output goes through the RGBE codec and drops
// alpha (the format has none); everything else quantizes to the native
// depth first.
func WritePlanes(filename string, p Planes, cfg Config) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == ".hdr" {
		return writeHDR(filename, p)
	}

	img := p.ToImage()

	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	switch ext {
	case ".png":
		err = png.Encode(writer, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(writer, img, nil)
	case ".gif":
		err = gif.Encode(writer, img, nil)
	case ".bmp":
		err = bmp.Encode(writer, img)
	case ".tif", ".tiff":
		err = tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = fmt.Errorf("no image codec for '%s'", ext)
	}
	if err != nil {
		return fmt.Errorf("encoding '%s': %v", filename, err)
	}
	return nil
}

func writeHDR(filename string, p Planes) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, hdrPlanes{p}); err != nil {
		return fmt.Errorf("encoding RGBE '%s': %v", filename, err)
	}
	return nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read '%s': %v", filename, err)
	}
	return newConfigFromYaml(contents)
}
