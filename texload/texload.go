// Package texload is a disk-backed TextureLoader for the flatten pipeline.
// It decodes PNG/JPEG/GIF/BMP/PSD/TGA images, memoizes results (including
// failures) per name, and optionally downscales oversized textures.
package texload

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blezek/tga"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/kumoshiro/scenepack/flatten"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/oov/psd"
	_ "golang.org/x/image/bmp"
)

// Options tunes a Loader.
type Options struct {
	// SizeLimit caps the longest texture edge in pixels; larger images are
	// downscaled. 0 means unlimited.
	SizeLimit int
	Logger    *zap.Logger
}

// Loader loads textures relative to a source directory. Safe for concurrent
// use; each name is decoded at most once.
type Loader struct {
	dir       string
	sizeLimit int
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once sync.Once
	tex  *flatten.Texture
	err  error
}

func New(dir string, opt *Options) *Loader {
	l := &Loader{dir: dir, entries: map[string]*entry{}}
	if opt != nil {
		l.sizeLimit = opt.SizeLimit
		l.logger = opt.Logger
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// Load implements flatten.TextureLoader.
func (l *Loader) Load(name string) (*flatten.Texture, error) {
	l.mu.Lock()
	e, ok := l.entries[name]
	if !ok {
		e = &entry{}
		l.entries[name] = e
	}
	l.mu.Unlock()

	e.once.Do(func() {
		e.tex, e.err = l.load(name)
	})
	return e.tex, e.err
}

func (l *Loader) load(name string) (*flatten.Texture, error) {
	f, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		return nil, errors.Wrap(err, "open texture")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil && strings.ToLower(filepath.Ext(name)) == ".tga" {
		// tga has no magic bytes, image.Decode cannot sniff it
		if _, serr := f.Seek(0, io.SeekStart); serr == nil {
			img, err = tga.Decode(f)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode texture %q", name)
	}

	if scaled := l.downscale(img); scaled != img {
		l.logger.Debug("downscaled texture",
			zap.String("texture", name),
			zap.Int("limit", l.sizeLimit))
		img = scaled
	}
	return &flatten.Texture{Name: name, Image: img}, nil
}

func (l *Loader) downscale(img image.Image) image.Image {
	if l.sizeLimit <= 0 {
		return img
	}
	rect := img.Bounds()
	longest := rect.Dx()
	if rect.Dy() > longest {
		longest = rect.Dy()
	}
	if longest <= l.sizeLimit {
		return img
	}
	scale := float64(l.sizeLimit) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(rect.Dx())*scale), int(float64(rect.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
	return dst
}
