package wa

import (
	"encoding/base64"
	"fmt"
	"strings"

	"rsc.io/qr"
)

const qrSVGSize = 256

// RenderQR turns a raw pairing code into the two displayable forms the
// bridge serves: a PNG data URI for /api/qr and a self-contained SVG
// for the websocket stream.
func RenderQR(code string) (dataURI, svg string, err error) {
	c, err := qr.Encode(code, qr.L)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode QR: %w", err)
	}

	png := c.PNG()
	dataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	svg, err = renderQRSVG(c, qrSVGSize)
	if err != nil {
		return "", "", err
	}
	return dataURI, svg, nil
}

// renderQRSVG produces a self-contained SVG with a white background and
// black modules, suitable for embedding directly in an HTML <img> tag
// or innerHTML.
func renderQRSVG(code *qr.Code, size int) (string, error) {
	n := code.Size
	if n == 0 {
		return "", fmt.Errorf("empty QR code")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		n, n, size, size,
	))
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="#fff"/>`, n, n))

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if code.Black(x, y) {
				sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="1" height="1" fill="#000"/>`, x, y))
			}
		}
	}

	sb.WriteString(`</svg>`)
	return sb.String(), nil
}
