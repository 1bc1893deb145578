package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
)

func testRef() billing.ArtifactRef {
	return billing.ArtifactRef{
		TaxID:             "20100070970",
		EstablishmentCode: "0001",
		DocType:           "01",
		FileName:          "20100070970-01-F001-00000042",
	}
}

func TestFileStore_GuardarYLeer(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	ref := testRef()

	assert.False(t, store.HasUnsigned(ctx, ref))
	assert.False(t, store.HasSigned(ctx, ref))
	assert.False(t, store.HasCDR(ctx, ref))

	require.NoError(t, store.SaveUnsigned(ctx, ref, []byte("<xml/>")))
	require.NoError(t, store.SaveSigned(ctx, ref, []byte("<xml firmado/>")))
	require.NoError(t, store.SaveCDR(ctx, ref, []byte("zip-cdr")))
	require.NoError(t, store.SavePrinted(ctx, ref, []byte("%PDF")))

	assert.True(t, store.HasUnsigned(ctx, ref))
	assert.True(t, store.HasSigned(ctx, ref))
	assert.True(t, store.HasCDR(ctx, ref))

	signed, err := store.LoadSigned(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("<xml firmado/>"), signed)

	cdr, err := store.LoadCDR(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip-cdr"), cdr)
}

func TestFileStore_LeerInexistente(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.LoadSigned(context.Background(), testRef())
	assert.Error(t, err)
}
