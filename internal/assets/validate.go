package assets

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWEBP = "image/webp"
	MIMESVG  = "image/svg+xml"
)

// DefaultMaxBytes is the upload ceiling when none is configured.
const DefaultMaxBytes = 10 << 20

var allowedMIME = map[string]bool{
	MIMEPNG:  true,
	MIMEJPEG: true,
	MIMEGIF:  true,
	MIMEWEBP: true,
	MIMESVG:  true,
}

// sniff identifies the image format from its leading bytes, ignoring any
// declared type. It returns "" for anything not on the allow-list.
func sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return MIMEPNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return MIMEJPEG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return MIMEGIF
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return MIMEWEBP
	case looksLikeSVG(data):
		return MIMESVG
	}
	return ""
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	text := strings.ToLower(strings.TrimSpace(string(bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF")))))
	return strings.HasPrefix(text, "<svg") ||
		strings.HasPrefix(text, "<?xml") ||
		strings.HasPrefix(text, "<!doctype svg")
}

// normalizeMIME lower-cases a declared type and drops parameters.
func normalizeMIME(declared string) string {
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "image/jpg" {
		return MIMEJPEG
	}
	return declared
}

// dimensions reports the pixel size of an image already identified by sniff.
func dimensions(mime string, data []byte) (width, height int, err error) {
	if mime == MIMESVG {
		w, h := svgDimensions(data)
		return w, h, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("reading image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// svgDimensions reads width/height from the root element, falling back to
// the viewBox. Unknown sizes are 0.
func svgDimensions(data []byte) (int, int) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF || err != nil {
			return 0, 0
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if el.Name.Local != "svg" {
			return 0, 0
		}
		var w, h int
		var viewBox string
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "width":
				w = svgLength(a.Value)
			case "height":
				h = svgLength(a.Value)
			case "viewBox":
				viewBox = a.Value
			}
		}
		if (w == 0 || h == 0) && viewBox != "" {
			f := strings.FieldsFunc(viewBox, func(r rune) bool { return r == ' ' || r == ',' })
			if len(f) == 4 {
				if w == 0 {
					w = svgLength(f[2])
				}
				if h == 0 {
					h = svgLength(f[3])
				}
			}
		}
		return w, h
	}
}

func svgLength(v string) int {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	if strings.HasSuffix(v, "%") {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f + 0.5)
}
