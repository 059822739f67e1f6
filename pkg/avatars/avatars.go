// Package avatars resizes uploaded avatars and checks the avatar directories
package avatars

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"github.com/forumkit/forumadmin/pkg/fasql"
)

var (
	ErrNotDirectory = errors.New("path is not a directory")
	ErrNotWritable  = errors.New("directory is not writable")
	ErrSameDir      = errors.New("custom avatar directory must differ from the server-stored avatar directory")
)

// ResizeOptions are the limits applied to uploaded avatars. A zero width or height means no limit
type ResizeOptions struct {
	MaxWidth  int
	MaxHeight int
	// ForcePNG re-encodes the avatar as a PNG regardless of its original format
	ForcePNG bool
}

// UploadResizeOptions returns the resize options from the uploaded avatar settings
func UploadResizeOptions() ResizeOptions {
	opts := ResizeOptions{ForcePNG: fasql.GetSettingBool("avatar_download_png")}
	if fasql.GetSettingBool("avatar_resize_upload") {
		opts.MaxWidth = fasql.GetSettingInt("avatar_max_width_upload")
		opts.MaxHeight = fasql.GetSettingInt("avatar_max_height_upload")
	}
	return opts
}

// ResizeResult describes the saved avatar
type ResizeResult struct {
	Path    string
	Width   int
	Height  int
	Resized bool
}

func exifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err == nil && x != nil {
		orient, err := x.Get(exif.Orientation)
		if err == nil && orient != nil && orient.Count != 0 {
			if i, err := orient.Int(0); err == nil {
				return i
			}
		}
	}
	return 1
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// FitSize returns the largest size within maxWidth x maxHeight that keeps the aspect ratio of width x height.
// Images that already fit are not enlarged
func FitSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	if maxWidth <= 0 {
		maxWidth = width
	}
	if maxHeight <= 0 {
		maxHeight = height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	ratio := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	newW := max(int(float64(width)*ratio+0.5), 1)
	newH := max(int(float64(height)*ratio+0.5), 1)
	return newW, newH
}

// ResizeAvatar reads the image at src, rotates it according to its EXIF orientation, scales it down to fit
// the limits, and saves it to dst. If opts.ForcePNG is set, the extension of dst is changed to .png
func ResizeAvatar(src string, dst string, opts ResizeOptions) (*ResizeResult, error) {
	fi, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer fi.Close()

	orientation := exifOrientation(fi)
	if _, err = fi.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(fi)
	if err != nil {
		return nil, fmt.Errorf("unable to decode avatar: %w", err)
	}
	img = applyOrientation(img, orientation)

	result := &ResizeResult{Path: dst}
	bounds := img.Bounds()
	result.Width, result.Height = FitSize(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)
	if result.Width != bounds.Dx() || result.Height != bounds.Dy() {
		img = imaging.Resize(img, result.Width, result.Height, imaging.CatmullRom)
		result.Resized = true
	}
	if opts.ForcePNG {
		result.Path = strings.TrimSuffix(dst, filepath.Ext(dst)) + ".png"
	}
	if err = imaging.Save(img, result.Path); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckDirectory returns an error if dir doesn't exist or isn't a directory
func CheckDirectory(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// CheckWritableDirectory returns an error if dir isn't a directory that files can be created in
func CheckWritableDirectory(dir string) error {
	if err := CheckDirectory(dir); err != nil {
		return err
	}
	fi, err := os.CreateTemp(dir, ".writetest-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	name := fi.Name()
	fi.Close()
	return os.Remove(name)
}

// ValidateDirectories checks the avatar directory settings. storedDir is only checked if storedEnabled is true,
// and customDir only if it is set
func ValidateDirectories(storedEnabled bool, storedDir string, customDir string) map[string]error {
	errs := map[string]error{}
	if storedEnabled {
		if err := CheckDirectory(storedDir); err != nil {
			errs["avatar_directory"] = err
		}
	}
	if customDir != "" {
		if err := CheckWritableDirectory(customDir); err != nil {
			errs["custom_avatar_dir"] = err
		} else if storedDir != "" && filepath.Clean(customDir) == filepath.Clean(storedDir) {
			errs["custom_avatar_dir"] = ErrSameDir
		}
	}
	return errs
}
