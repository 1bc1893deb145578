package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/pkg/sunat"
)

// Subcarpetas por tipo de artefacto dentro del árbol de comprobantes.
const (
	dirUnsigned = "xml"
	dirSigned   = "firma"
	dirCDR      = "cdr"
	dirPrinted  = "impreso"
)

// FileStore guarda los artefactos de cada comprobante en disco con la
// estructura {root}/{ruc}/{establecimiento}/{tipoDoc}/{subcarpeta}/.
// Implementa billing.ArtifactStore.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// path construye la ruta del artefacto. Los segmentos que vienen de datos
// (RUC, código de establecimiento, tipo) se normalizan a ASCII seguro para
// que nunca introduzcan separadores en la ruta.
func (s *FileStore) path(ref billing.ArtifactRef, sub, name string) string {
	return filepath.Join(s.root,
		sunat.NormalizeName(ref.TaxID),
		sunat.NormalizeName(ref.EstablishmentCode),
		sunat.NormalizeName(ref.DocType),
		sub, name)
}

func (s *FileStore) write(ref billing.ArtifactRef, sub, name string, data []byte) error {
	full := s.path(ref, sub, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: crear directorio: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("storage: escribir %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) exists(ref billing.ArtifactRef, sub, name string) bool {
	_, err := os.Stat(s.path(ref, sub, name))
	return err == nil
}

func (s *FileStore) read(ref billing.ArtifactRef, sub, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(ref, sub, name))
	if err != nil {
		return nil, fmt.Errorf("storage: leer %s: %w", name, err)
	}
	return data, nil
}

func (s *FileStore) SaveUnsigned(_ context.Context, ref billing.ArtifactRef, xml []byte) error {
	return s.write(ref, dirUnsigned, ref.FileName+".xml", xml)
}

func (s *FileStore) SaveSigned(_ context.Context, ref billing.ArtifactRef, xml []byte) error {
	return s.write(ref, dirSigned, ref.FileName+".xml", xml)
}

func (s *FileStore) SaveCDR(_ context.Context, ref billing.ArtifactRef, cdrZip []byte) error {
	return s.write(ref, dirCDR, sunat.CDRFileName(ref.FileName)+".zip", cdrZip)
}

func (s *FileStore) SavePrinted(_ context.Context, ref billing.ArtifactRef, pdf []byte) error {
	return s.write(ref, dirPrinted, ref.FileName+".pdf", pdf)
}

func (s *FileStore) HasUnsigned(_ context.Context, ref billing.ArtifactRef) bool {
	return s.exists(ref, dirUnsigned, ref.FileName+".xml")
}

func (s *FileStore) HasSigned(_ context.Context, ref billing.ArtifactRef) bool {
	return s.exists(ref, dirSigned, ref.FileName+".xml")
}

func (s *FileStore) HasCDR(_ context.Context, ref billing.ArtifactRef) bool {
	return s.exists(ref, dirCDR, sunat.CDRFileName(ref.FileName)+".zip")
}

func (s *FileStore) LoadSigned(_ context.Context, ref billing.ArtifactRef) ([]byte, error) {
	return s.read(ref, dirSigned, ref.FileName+".xml")
}

func (s *FileStore) LoadCDR(_ context.Context, ref billing.ArtifactRef) ([]byte, error) {
	return s.read(ref, dirCDR, sunat.CDRFileName(ref.FileName)+".zip")
}
