package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// barcodeReadPrompt is the shared prompt used by all vision model providers
const barcodeReadPrompt = `You are looking at a single camera frame that may contain a product barcode (EAN-13, EAN-8, UPC-A, UPC-E, Code 128) or a QR code.

If exactly one barcode is clearly readable, report the digits or text it encodes. If several are visible, report only the most prominent one. If none is readable, report null.

Return ONLY valid JSON in this exact format:
{
  "barcode": "4006381333931",
  "type": "EAN_13"
}

Important:
- Read the barcode bars or the human-readable digits printed under them; do not guess missing digits
- "barcode" must be a string, or null when no barcode is readable
- "type" is the symbology name in upper case with underscores
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// encodePNG encodes a frame as PNG for the remote vision models
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
