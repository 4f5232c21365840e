package rimage

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ReadImageFromFile decodes a png, jpeg, ppm or qoi file, chosen by extension.
func ReadImageFromFile(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	r := bufio.NewReader(f)
	var img image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	case ".ppm":
		img, err = ppm.Decode(r)
	case ".qoi":
		img, err = qoi.Decode(r)
	default:
		return nil, errors.Errorf("unsupported image extension %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %q", path)
	}
	return img, nil
}

// WriteImageToFile writes img to path, encoding it according to the extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".ppm", ".qoi":
	default:
		return errors.Errorf("unsupported image extension %q", ext)
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	defer func() {
		err = multierr.Combine(err, w.Flush(), f.Close())
	}()

	switch ext {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".ppm":
		return ppm.Encode(w, img)
	default:
		return qoi.Encode(w, img)
	}
}
