package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
)

// readCatalogCSV lee filas sku,name,price,stock,unit. Una primera fila que empiece con "sku" se
// toma como encabezado. latin1 decodifica archivos exportados en ISO-8859-1.
func readCatalogCSV(r io.Reader, latin1 bool) ([]dto.CreateProductRequest, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []dto.CreateProductRequest
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("línea %d: se esperan al menos 4 columnas, hay %d", line, len(rec))
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("línea %d: precio %q: %w", line, rec[2], err)
		}
		stock, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("línea %d: stock %q: %w", line, rec[3], err)
		}
		in := dto.CreateProductRequest{
			SKU:   strings.TrimSpace(rec[0]),
			Name:  strings.TrimSpace(rec[1]),
			Price: price,
			Stock: stock,
		}
		if len(rec) > 4 {
			in.Unit = strings.TrimSpace(rec[4])
		}
		out = append(out, in)
	}
	return out, nil
}
