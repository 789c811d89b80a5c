package catalog

import (
	"fmt"
	"strings"
)

// Row is one product row from the tabular catalog source.
// All fields are kept as strings; the index stores a rendered text blob,
// not typed attributes.
type Row struct {
	Codigo      string
	Nombre      string
	Descripcion string
	Material    string
	Categoria   string
	Dimensiones string
	Stock       string
	Precio      string
	Proveedor   string
}

// Text renders the row into the text blob that gets embedded and stored.
// The labels match the catalog the generation prompt refers to, so the
// model can quote código, nombre and precio verbatim.
func (r Row) Text() string {
	var b strings.Builder
	writeField := func(label, value string) {
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}
	writeField("Codigo", r.Codigo)
	writeField("Nombre", r.Nombre)
	writeField("Descripción", r.Descripcion)
	writeField("Material", r.Material)
	writeField("Categoría", r.Categoria)
	writeField("Dimensiones", r.Dimensiones)
	writeField("Stock", r.Stock)
	writeField("Precio", r.Precio)
	writeField("Proveedor", r.Proveedor)
	return b.String()
}

// Entry converts the row into a catalog Entry keyed by product code.
func (r Row) Entry() Entry {
	return Entry{
		ID:      r.Codigo,
		Content: r.Text(),
		Metadata: map[string]string{
			"codigo":    r.Codigo,
			"categoria": r.Categoria,
		},
	}
}
