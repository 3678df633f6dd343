package gallery

import (
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// loadFace probes the candidate font paths in order and returns the first
// TrueType face that parses. When none are usable the built-in bitmap face is
// returned, so uploads never fail because a deployment is missing fonts; the
// mark is just smaller.
func loadFace(paths []string, size float64) font.Face {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parsed, err := truetype.Parse(data)
		if err != nil {
			continue
		}
		return truetype.NewFace(parsed, &truetype.Options{Size: size})
	}
	return basicfont.Face7x13
}
