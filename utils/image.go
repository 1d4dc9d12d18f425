package utils

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	color_extractor "github.com/marekm4/color-extractor"
)

// BytesToGUIDLocation derives a stable cover location from the image content
// so the same artwork always lands at the same path.
func BytesToGUIDLocation(image []byte, extension string) (string, uuid.UUID) {
	imageHash := md5.Sum(image)
	guid, _ := uuid.FromBytes(imageHash[:])
	location := fmt.Sprintf("/static/cover.%s.%s", guid, extension)
	return location, guid
}

// ExtractImageContent downloads an image and returns its bytes, a file
// extension derived from the content type and its dominant colours.
func ExtractImageContent(ctx context.Context, client *http.Client, imageUrl string) ([]byte, string, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageUrl, nil)
	if err != nil {
		return []byte{}, "", []string{}, err
	}
	res, err := client.Do(req)
	if err != nil {
		return []byte{}, "", []string{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return []byte{}, "", []string{}, fmt.Errorf("image request returned %d", res.StatusCode)
	}

	var buf bytes.Buffer
	tee := io.TeeReader(res.Body, &buf)

	body, err := io.ReadAll(tee)
	if err != nil {
		return []byte{}, "", []string{}, err
	}

	mimeType := http.DetectContentType(body)

	extension := ""

	switch mimeType {
	case "image/jpeg":
		extension = "jpeg"
	case "image/png":
		extension = "png"
	default:
		return []byte{}, "", []string{}, fmt.Errorf("unsupported image type %q", mimeType)
	}

	var domColours []string

	img, _, err := image.Decode(&buf)
	if err == nil {
		for _, c := range color_extractor.ExtractColors(img) {
			domColours = append(domColours, colorToHexString(c))
		}
	}

	return body, extension, domColours, nil
}

func SaveCover(storageDir string, guid string, image []byte, extension string) error {
	return os.WriteFile(coverPath(storageDir, guid, extension), image, 0644)
}

func LoadCover(storageDir string, guid string, extension string) ([]byte, error) {
	return os.ReadFile(coverPath(storageDir, guid, extension))
}

func coverPath(storageDir, guid, extension string) string {
	return filepath.Join(storageDir, fmt.Sprintf("cover.%s.%s", guid, extension))
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
