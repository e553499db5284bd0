package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// visionResponse is the JSON shape the vision prompt asks for
type visionResponse struct {
	Barcode *string `json:"barcode"`
	Type    string  `json:"type"`
}

// parseDetectionJSON parses a vision model's answer. A null or empty barcode
// means nothing was found.
func parseDetectionJSON(text string) (*Detection, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var resp visionResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if resp.Barcode == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*resp.Barcode)
	if value == "" {
		return nil, nil
	}

	symbology := strings.ToUpper(strings.TrimSpace(resp.Type))
	symbology = strings.ReplaceAll(symbology, "-", "_")

	return &Detection{
		Value:     value,
		Symbology: symbology,
	}, nil
}
