// Package imaging decodes uploads and prepares face and document crops.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/provider"
)

const (
	// FaceExpansion grows the detector box before cropping
	FaceExpansion = 0.2
	// DefaultFaceSize is the input side of Facenet-family models
	DefaultFaceSize = 160

	jpegQuality = 90

	// minEyeSpan is the smallest interocular distance, as a fraction of the
	// face box width, that still defines a usable eye line
	minEyeSpan = 0.1
)

// ErrDegenerateEyeLine is returned by AlignFace when both eyes are present but
// too close together to derive a rotation
var ErrDegenerateEyeLine = errors.New("eye landmarks too close to align")

// Decode parses JPEG, PNG or WebP bytes
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", domain.ErrInvalidImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", domain.ErrInvalidImage.WithError(err)
	}
	return img, format, nil
}

// Validate checks that data holds a decodable image header
func Validate(data []byte) error {
	if len(data) == 0 {
		return domain.ErrInvalidImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return domain.ErrInvalidImage.WithError(err)
	}
	return nil
}

// EncodeJPEG serializes img as JPEG
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// toPixels converts a normalized box to a pixel rectangle inside bounds
func toPixels(bounds image.Rectangle, box provider.BoundingBox) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(math.Floor(box.X*w)),
		bounds.Min.Y+int(math.Floor(box.Y*h)),
		bounds.Min.X+int(math.Ceil((box.X+box.Width)*w)),
		bounds.Min.Y+int(math.Ceil((box.Y+box.Height)*h)),
	)
	return r.Intersect(bounds)
}

// Crop copies the normalized box out of img
func Crop(img image.Image, box provider.BoundingBox) (image.Image, error) {
	r := toPixels(img.Bounds(), box)
	if r.Empty() {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("empty crop %v", box))
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// Resize scales img to width x height
func Resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EyeAngle returns the eye line angle in radians, measured left to right in
// image space, and false when either eye is missing
func EyeAngle(face provider.FaceDetection) (float64, bool) {
	a, b, ok := eyeCenters(face)
	if !ok {
		return 0, false
	}
	return math.Atan2(b.Y-a.Y, b.X-a.X), true
}

// eyeCenters returns the eye centroids ordered left to right in image space
func eyeCenters(face provider.FaceDetection) (provider.Point, provider.Point, bool) {
	a, okA := provider.Centroid(face.Landmarks[provider.RegionLeftEye])
	b, okB := provider.Centroid(face.Landmarks[provider.RegionRightEye])
	if !okA || !okB {
		return provider.Point{}, provider.Point{}, false
	}
	if a.X > b.X {
		a, b = b, a
	}
	return a, b, true
}

// AlignFace produces a size x size crop of the face: the detector box grown by
// FaceExpansion, rotated so the eye line is horizontal. Faces without eye
// landmarks get a plain square crop; the bool reports whether rotation applied.
// Eyes closer than minEyeSpan of the box width yield ErrDegenerateEyeLine.
func AlignFace(img image.Image, face provider.FaceDetection, size int) (image.Image, bool, error) {
	if size <= 0 {
		size = DefaultFaceSize
	}

	bounds := img.Bounds()
	box := face.BoundingBox.Expand(FaceExpansion)
	r := toPixels(bounds, box)
	if r.Empty() {
		return nil, false, domain.ErrInvalidImage.WithError(fmt.Errorf("face box outside image"))
	}

	angle, aligned := EyeAngle(face)
	if aligned {
		a, b, _ := eyeCenters(face)
		if math.Hypot(b.X-a.X, b.Y-a.Y) < minEyeSpan*face.BoundingBox.Width {
			return nil, false, ErrDegenerateEyeLine
		}
	}

	cx := float64(r.Min.X) + float64(r.Dx())/2
	cy := float64(r.Min.Y) + float64(r.Dy())/2
	side := math.Max(float64(r.Dx()), float64(r.Dy()))
	scale := side / float64(size)
	half := float64(size) / 2

	cos, sin := math.Cos(angle), math.Sin(angle)

	// source to destination: rotate by -angle around the box center, then scale
	s2d := f64.Aff3{
		cos / scale, sin / scale, half - (cos*cx+sin*cy)/scale,
		-sin / scale, cos / scale, half + (sin*cx-cos*cy)/scale,
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Transform(dst, s2d, img, bounds, draw.Src, nil)

	return dst, aligned, nil
}

// AlignedJPEG decodes data, aligns the face and encodes the crop as JPEG
func AlignedJPEG(data []byte, face provider.FaceDetection, size int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	aligned, _, err := AlignFace(img, face, size)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(aligned)
}

// CropJPEG decodes data and returns the normalized box as JPEG
func CropJPEG(data []byte, box provider.BoundingBox) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	cropped, err := Crop(img, box)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(cropped)
}
