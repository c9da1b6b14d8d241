package local

import (
	"context"
	"os"
	"path/filepath"
	"rentflow/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedInspection() *models.Inspection {
	ownerAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	occupantAt := ownerAt.Add(time.Hour)
	reserves := "small scratch on window sill"

	inspection := &models.Inspection{
		Kind:              models.KindEntry,
		Status:            models.StatusSigned,
		OwnerSignature:    &models.Signature{SVG: "<svg>owner</svg>", SignedAt: ownerAt},
		OwnerSignedAt:     &ownerAt,
		OccupantSignature: &models.Signature{SVG: "<svg>occupant</svg>", SignedAt: occupantAt},
		OccupantSignedAt:  &occupantAt,
		OccupantReserves:  &reserves,
		Rooms: []models.Room{{
			Name:     "Living Room",
			RoomType: models.RoomLiving,
			Elements: []models.Element{{
				Category:  models.CategoryFloor,
				Name:      "Flooring",
				Condition: models.ConditionGood,
			}},
		}},
	}
	inspection.ID = uuid.Must(uuid.NewV7())
	return inspection
}

func TestFileExporterExport(t *testing.T) {
	tmpdir := t.TempDir()
	exporter, err := New(tmpdir)
	require.NoError(t, err)

	inspection := signedInspection()

	key, err := exporter.Export(context.Background(), inspection)
	require.NoError(t, err)
	assert.Equal(t, "inspections/"+inspection.ID.String()+".json", key)

	doc, checksum, err := exporter.Open(key)
	require.NoError(t, err)
	assert.Len(t, checksum, 64)
	assert.Equal(t, inspection.ID, doc.Inspection.ID)
	assert.Equal(t, 1, doc.Summary.TotalElements)
	assert.Equal(t, 1, doc.Summary.ByCondition[models.ConditionGood])
	assert.NotEmpty(t, doc.Fingerprint)
}

func TestFileExporterRetryOverwrites(t *testing.T) {
	tmpdir := t.TempDir()
	exporter, err := New(tmpdir)
	require.NoError(t, err)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exporter.now = func() time.Time { return first }

	inspection := signedInspection()
	key1, err := exporter.Export(context.Background(), inspection)
	require.NoError(t, err)

	exporter.now = func() time.Time { return first.Add(time.Hour) }
	key2, err := exporter.Export(context.Background(), inspection)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	entries, err := os.ReadDir(filepath.Join(tmpdir, "inspections"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	doc, _, err := exporter.Open(key2)
	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.Equal(first.Add(time.Hour)))
}

func TestFileExporterFingerprintTracksSignatures(t *testing.T) {
	a := signedInspection()
	b := signedInspection()
	b.ID = a.ID
	assert.Equal(t, signatureFingerprint(a), signatureFingerprint(b))

	b.OccupantSignature.SVG = "<svg>someone else</svg>"
	assert.NotEqual(t, signatureFingerprint(a), signatureFingerprint(b))
}

func TestFileExporterRejectsMissingID(t *testing.T) {
	exporter, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = exporter.Export(context.Background(), &models.Inspection{})
	assert.Error(t, err)
}

func TestFileExporterPathTraversal(t *testing.T) {
	exporter, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = exporter.Open("../../etc/passwd")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")
}

func TestFileExporterOpenMissing(t *testing.T) {
	exporter, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = exporter.Open(Key(uuid.New()))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
