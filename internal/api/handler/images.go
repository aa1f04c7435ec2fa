package handler

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
	maxFrames    = 30
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// readImage returns the bytes of the multipart file named field
func readImage(c *fiber.Ctx, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("%s is required", field))
	}
	return readFile(field, file)
}

// readImages returns every file sent under field, in order
func readImages(c *fiber.Ctx, field string) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	files := form.File[field]
	if len(files) > maxFrames {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("at most %d %s allowed", maxFrames, field))
	}

	out := make([][]byte, 0, len(files))
	for _, file := range files {
		data, err := readFile(field, file)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func readFile(field string, file *multipart.FileHeader) ([]byte, error) {
	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: size %d out of range", field, file.Size))
	}

	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: unsupported content type %q", field, contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return data, nil
}
