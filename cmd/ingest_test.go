package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalsur/catalogo/internal/catalog"
	"github.com/metalsur/catalogo/internal/log"
)

type memStore struct {
	entries map[string]catalog.Entry
	addErr  error
}

func (m *memStore) Add(_ context.Context, entry catalog.Entry, _ []float32) error {
	if m.addErr != nil {
		return m.addErr
	}
	if m.entries == nil {
		m.entries = map[string]catalog.Entry{}
	}
	m.entries[entry.ID] = entry
	return nil
}

type stubEmbedder struct {
	err   error
	texts []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.texts = append(s.texts, text)
	return []float32{0.1, 0.2}, nil
}

const sampleCSV = `codigo,nombre,descripcion,material,categoria,dimensiones,stock,precio,proveedor
EJ-100,Eje templado,Eje rectificado para transmisión,Acero SAE 1045,ejes,50x500 mm,12,45000,Aceros del Sur
BU-200,Buje de bronce,Buje torneado a medida,Bronce SAE 64,bujes,30x40 mm,40,8500,Fundición Austral
`

func TestIngestCSV(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}

	count, err := ingestCSV(context.Background(), strings.NewReader(sampleCSV), store, embedder, log.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Contains(t, store.entries, "EJ-100")
	entry := store.entries["EJ-100"]
	assert.Contains(t, entry.Content, "Nombre: Eje templado")
	assert.Contains(t, entry.Content, "Precio: 45000")
	assert.Equal(t, "ejes", entry.Metadata["categoria"])

	// Each row is embedded from its rendered text, not the raw CSV line.
	require.Len(t, embedder.texts, 2)
	assert.Contains(t, embedder.texts[0], "Codigo: EJ-100")
}

func TestIngestCSV_ColumnOrderIndependent(t *testing.T) {
	reordered := "nombre,codigo,precio\nEje templado,EJ-100,45000\n"

	store := &memStore{}
	count, err := ingestCSV(context.Background(), strings.NewReader(reordered), store, &stubEmbedder{}, log.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, store.entries["EJ-100"].Content, "Precio: 45000")
}

func TestIngestCSV_SkipsRowsWithoutCodigo(t *testing.T) {
	withBlank := "codigo,nombre\nEJ-100,Eje\n,Sin código\nBU-200,Buje\n"

	store := &memStore{}
	count, err := ingestCSV(context.Background(), strings.NewReader(withBlank), store, &stubEmbedder{}, log.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NotContains(t, store.entries, "")
}

func TestIngestCSV_MissingCodigoColumn(t *testing.T) {
	_, err := ingestCSV(context.Background(), strings.NewReader("nombre,precio\nEje,45000\n"), &memStore{}, &stubEmbedder{}, log.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codigo")
}

func TestIngestCSV_EmbedFailureStops(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedder down")}

	count, err := ingestCSV(context.Background(), strings.NewReader(sampleCSV), &memStore{}, embedder, log.NewNop())
	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Contains(t, err.Error(), "EJ-100")
}

func TestIngestCSV_StoreFailureStops(t *testing.T) {
	store := &memStore{addErr: errors.New("db down")}

	count, err := ingestCSV(context.Background(), strings.NewReader(sampleCSV), store, &stubEmbedder{}, log.NewNop())
	require.Error(t, err)
	assert.Equal(t, 0, count)
}
