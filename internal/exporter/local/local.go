package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"rentflow/internal/models"
	"rentflow/internal/utils"
	"rentflow/pkg/logger"
	"strings"
	"time"

	"github.com/google/uuid"
)

const documentVersion = 1

type Document struct {
	Version     int                     `json:"version"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Inspection  *models.Inspection      `json:"inspection"`
	Summary     models.ConditionSummary `json:"summary"`
	Fingerprint string                  `json:"fingerprint"`
}

type envelope struct {
	Document Document `json:"document"`
	Checksum string   `json:"checksum"`
}

// FileExporter writes one JSON document per inspection under basePath.
type FileExporter struct {
	basePath string
	now      func() time.Time
	log      logger.Logger
}

func New(basePath string) (*FileExporter, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "inspections"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &FileExporter{
		basePath: basePath,
		now:      time.Now,
		log:      logger.New("fileExporter"),
	}, nil
}

func Key(inspectionID uuid.UUID) string {
	return filepath.ToSlash(filepath.Join("inspections", inspectionID.String()+".json"))
}

func (e *FileExporter) Export(ctx context.Context, inspection *models.Inspection) (string, error) {
	log := e.log.Function("Export")

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if inspection == nil || inspection.ID == uuid.Nil {
		return "", log.Error("cannot export an inspection without an ID")
	}

	key := Key(inspection.ID)
	path, err := e.safeJoin(key)
	if err != nil {
		return "", log.Err("invalid artifact key", err, "key", key)
	}

	doc := Document{
		Version:     documentVersion,
		GeneratedAt: e.now().UTC(),
		Inspection:  inspection,
		Summary:     inspection.Summarize(),
		Fingerprint: signatureFingerprint(inspection),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", log.Err("failed to encode document", err, "inspectionID", inspection.ID)
	}

	payload, err := json.MarshalIndent(envelope{Document: doc, Checksum: utils.HashBytes(body)}, "", "  ")
	if err != nil {
		return "", log.Err("failed to encode artifact", err, "inspectionID", inspection.ID)
	}

	if err := writeFileAtomic(path, payload); err != nil {
		return "", log.Err("failed to write artifact", err, "inspectionID", inspection.ID, "path", path)
	}

	log.Info("Artifact written", "inspectionID", inspection.ID, "key", key)
	return key, nil
}

// Open reads back a stored artifact.
func (e *FileExporter) Open(key string) (*Document, string, error) {
	path, err := e.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("artifact not found")
		}
		return nil, "", fmt.Errorf("failed to read artifact: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("failed to decode artifact: %w", err)
	}
	return &env.Document, env.Checksum, nil
}

// signatureFingerprint binds the document to the recorded signature payloads.
func signatureFingerprint(i *models.Inspection) string {
	fields := map[string]any{
		"inspectionId": i.ID.String(),
		"kind":         string(i.Kind),
		"ownerSvg":     "",
		"occupantSvg":  "",
		"reserves":     i.OccupantReserves,
	}
	if i.OwnerSignature != nil {
		fields["ownerSvg"] = i.OwnerSignature.SVG
		fields["ownerSignedAt"] = i.OwnerSignature.SignedAt.UTC().Format(time.RFC3339Nano)
	}
	if i.OccupantSignature != nil {
		fields["occupantSvg"] = i.OccupantSignature.SVG
		fields["occupantSignedAt"] = i.OccupantSignature.SignedAt.UTC().Format(time.RFC3339Nano)
	}
	return utils.HashFields(fields)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (e *FileExporter) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(e.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(e.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
