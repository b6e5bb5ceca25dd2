package anaf

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/errors"
)

func zipArchive(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestExtractInvoiceXML_SkipsSignature(t *testing.T) {
	invoice := []byte(`<?xml version="1.0"?><Invoice/>`)
	archive := zipArchive(t, map[string][]byte{
		"semnatura_12345.xml": []byte("<Signature/>"),
		"12345.xml":           invoice,
	})

	data, err := ExtractInvoiceXML(archive)
	require.NoError(t, err)
	assert.Equal(t, invoice, data)
}

func TestExtractInvoiceXML_NoInvoiceEntry(t *testing.T) {
	archive := zipArchive(t, map[string][]byte{
		"semnatura_12345.xml": []byte("<Signature/>"),
	})

	_, err := ExtractInvoiceXML(archive)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGatewayOperational))
}

func TestExtractInvoiceXML_NotAZip(t *testing.T) {
	_, err := ExtractInvoiceXML([]byte("definitely not a zip"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGatewayOperational))
}
