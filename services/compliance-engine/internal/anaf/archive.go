package anaf

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"EFacturaPlatform/pkg/errors"
)

// ExtractInvoiceXML извлекает XML документа из ZIP архива шлюза.
// Архив содержит сам документ и файл подписи semnatura_*.xml,
// подпись пропускается.
func ExtractInvoiceXML(archive []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrGatewayOperational, "gateway archive is not a valid zip")
	}

	for _, file := range reader.File {
		name := strings.ToLower(file.Name)
		if !strings.HasSuffix(name, ".xml") || strings.HasPrefix(name, "semnatura") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrGatewayOperational, "failed to open archive entry")
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrGatewayOperational, "failed to read archive entry")
		}
		return data, nil
	}

	return nil, errors.New(errors.ErrGatewayOperational, "gateway archive contains no invoice xml")
}
