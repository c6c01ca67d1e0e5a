package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
)

// badge colors keyed by viral category.
var badgeColors = map[string]color.RGBA{
	"MEGA_VIRAL": {220, 38, 38, 230},
	"VIRAL":      {234, 88, 12, 230},
	"TRENDING":   {202, 138, 4, 230},
	"POPULAR":    {100, 116, 139, 230},
}

// AnnotateBadge stamps a viral-score badge onto the top-left corner of a
// PNG screenshot so reports can be skimmed without opening the source post.
func AnnotateBadge(screenshot []byte, score float64, category string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	dc := gg.NewContextForImage(img)

	fill, ok := badgeColors[category]
	if !ok {
		fill = badgeColors["POPULAR"]
	}

	const (
		margin = 16.0
		width  = 200.0
		height = 44.0
		radius = 8.0
	)
	dc.SetColor(fill)
	dc.DrawRoundedRectangle(margin, margin, width, height, radius)
	dc.Fill()

	dc.SetColor(color.White)
	label := fmt.Sprintf("%s %.1f", category, score)
	dc.DrawStringAnchored(label, margin+width/2, margin+height/2, 0.5, 0.35)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode annotated screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
