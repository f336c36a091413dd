// Package checkin produces the QR codes guests show at the door.
package checkin

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of generated codes
const DefaultSize = 256

// Generator builds check-in links and their QR codes
type Generator struct {
	baseURL string
	size    int
}

// NewGenerator creates a generator for links rooted at baseURL
func NewGenerator(baseURL string, size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		size:    size,
	}
}

// Link returns the check-in URL encoded for token
func (g *Generator) Link(token string) string {
	return g.baseURL + "/checkin/" + url.PathEscape(token)
}

// RSVPLink returns the RSVP page URL for token
func (g *Generator) RSVPLink(token string) string {
	return g.baseURL + "/rsvp/" + url.PathEscape(token)
}

// PNG renders the check-in QR code for token
func (g *Generator) PNG(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	png, err := qrcode.Encode(g.Link(token), qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
