package label

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"
)

// mockMarker distinguishes synthesized tracking references from
// production-obtained ones in every observability surface.
const mockMarker = "MOCK-"

var mockCarriers = []string{"POSTNL", "DHL", "DPD", "TNT"}

// MockTrackingReference generates a human-readable placeholder tracking
// reference in the carrier's usual shape, prefixed with a marker so it
// can never be mistaken for a real one.
func MockTrackingReference() string {
	code := rand.Int63n(9000000000) + 1000000000
	carrier := mockCarriers[rand.Intn(len(mockCarriers))]
	return fmt.Sprintf("%s3SBOL%d-%s", mockMarker, code, carrier)
}

// IsMockReference reports whether a tracking reference was synthesized
// by the fallback path.
func IsMockReference(ref string) bool {
	return len(ref) >= len(mockMarker) && ref[:len(mockMarker)] == mockMarker
}

const trackingKey = "TrackAndTrace: "

// MockArtifact synthesizes a placeholder label artifact carrying the
// order and line identifiers plus the tracking reference, so the
// pipeline never blocks on label unavailability. The reference can be
// recovered from the stored bytes with ParseTrackingReference.
func MockArtifact(orderID, orderItemID, trackingRef string) []byte {
	var content bytes.Buffer
	fmt.Fprintf(&content, "BT /F1 18 Tf 72 740 Td (SHIPPING LABEL - PLACEHOLDER) Tj ET\n")
	fmt.Fprintf(&content, "BT /F1 12 Tf 72 700 Td (Order ID: %s) Tj ET\n", orderID)
	fmt.Fprintf(&content, "BT /F1 12 Tf 72 680 Td (Order Item: %s) Tj ET\n", orderItemID)
	fmt.Fprintf(&content, "BT /F1 12 Tf 72 660 Td (Date: %s) Tj ET\n", time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&content, "BT /F1 14 Tf 72 620 Td (%s%s) Tj ET\n", trackingKey, trackingRef)

	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n")
	pdf.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	pdf.WriteString("2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n")
	pdf.WriteString("3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >> " +
		"/Contents 4 0 R >> endobj\n")
	fmt.Fprintf(&pdf, "4 0 obj << /Length %d >> stream\n", content.Len())
	pdf.Write(content.Bytes())
	pdf.WriteString("endstream endobj\n")
	pdf.WriteString("trailer << /Root 1 0 R >>\n%%EOF\n")
	return pdf.Bytes()
}

// ParseTrackingReference recovers the tracking reference embedded in an
// artifact by the fallback path.
func ParseTrackingReference(data []byte) (string, bool) {
	idx := bytes.Index(data, []byte(trackingKey))
	if idx < 0 {
		return "", false
	}
	rest := data[idx+len(trackingKey):]
	end := bytes.IndexAny(rest, ")\n")
	if end < 0 {
		return "", false
	}
	return string(rest[:end]), true
}
