package label

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBase64Payload(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake content")
	encoded := []byte(base64.StdEncoding.EncodeToString(pdf))

	require.Equal(t, pdf, Decode(encoded))
}

func TestDecodeZPLPassesThrough(t *testing.T) {
	zpl := "^XA^FO50,50^ADN,36,20^FDShip to^FS^XZ"

	require.Equal(t, []byte(zpl), Decode([]byte(zpl)))
}

func TestDecodeBinaryPassesThrough(t *testing.T) {
	binary := []byte{0x25, 0x50, 0x44, 0x46, 0xff, 0xfe, 0x00, 0x80}

	require.Equal(t, binary, Decode(binary))
}

func TestDecodeLongPlainTextKept(t *testing.T) {
	text := strings.Repeat("shipping label line ", 5)

	require.Equal(t, []byte(strings.TrimSpace(text)), Decode([]byte(text)))
}

func TestDecodeShortUndecodableUnchanged(t *testing.T) {
	value := []byte("not-base64!")

	require.Equal(t, value, Decode(value))
}

func TestDecodeEmpty(t *testing.T) {
	require.Empty(t, Decode(nil))
}
