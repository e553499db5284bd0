package capture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

var stillExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".heic": true,
	".heif": true,
	".pdf":  true,
}

// IsStill reports whether path names a file the Directory source can read.
func IsStill(path string) bool {
	return stillExtensions[strings.ToLower(filepath.Ext(path))]
}

// pdfPages renders every page of a PDF
func pdfPages(pdfData []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// decodeStill decodes a JPEG, PNG, GIF or HEIC image
func decodeStill(data []byte) (image.Image, error) {
	// Go's standard image package doesn't support HEIC
	if isHEICFormat(data) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

// decodeFile turns one file into the frames it contains: one per image, one
// per PDF page
func decodeFile(name string, data []byte) ([]image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return pdfPages(data)
	}
	img, err := decodeStill(data)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}
