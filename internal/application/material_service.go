package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// PDFMimeType is the only content type accepted for materials.
	PDFMimeType = "application/pdf"

	// DefaultMaterialLinkTTL is how long a material link stays valid.
	DefaultMaterialLinkTTL = time.Hour

	// DefaultMaterialMaxBytes caps a single upload.
	DefaultMaterialMaxBytes int64 = 10 << 20

	sniffLength = 3072
)

// ObjectStore stores the bytes of uploaded materials.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MaterialRepository captures the persistence interactions needed by the material service.
type MaterialRepository interface {
	CreateMaterial(ctx context.Context, material Material) (Material, error)
	GetMaterial(ctx context.Context, id string) (Material, error)
	ListMaterials(ctx context.Context, owner OwnerScope) ([]Material, error)
	DeleteMaterial(ctx context.Context, id string) error
}

// NoteLookup resolves a note by id.
type NoteLookup interface {
	GetNote(ctx context.Context, id string) (Note, error)
}

// MaterialServiceDeps groups the collaborators of the material service.
type MaterialServiceDeps struct {
	Materials MaterialRepository
	Notes     NoteLookup
	Events    EventLookup
	Profiles  ProfileDirectory
	Objects   ObjectStore
}

// MaterialOptions tunes upload limits and link lifetimes.
type MaterialOptions struct {
	MaxBytes int64
	LinkTTL  time.Duration
}

// MaterialService uploads PDFs to the object store and tracks their metadata.
type MaterialService struct {
	materials   MaterialRepository
	notes       NoteLookup
	events      EventLookup
	profiles    ProfileDirectory
	objects     ObjectStore
	maxBytes    int64
	linkTTL     time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMaterialService wires dependencies for material operations.
func NewMaterialService(deps MaterialServiceDeps, opts MaterialOptions, idGenerator func() string, now func() time.Time) *MaterialService {
	return NewMaterialServiceWithLogger(deps, opts, idGenerator, now, nil)
}

// NewMaterialServiceWithLogger wires dependencies for material operations with a specified logger.
func NewMaterialServiceWithLogger(deps MaterialServiceDeps, opts MaterialOptions, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MaterialService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaterialMaxBytes
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = DefaultMaterialLinkTTL
	}
	return &MaterialService{
		materials:   deps.Materials,
		notes:       deps.Notes,
		events:      deps.Events,
		profiles:    deps.Profiles,
		objects:     deps.Objects,
		maxBytes:    opts.MaxBytes,
		linkTTL:     opts.LinkTTL,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MaterialService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MaterialService", operation, attrs...)
}

// UploadMaterial stores a PDF for a student and records its metadata. If the
// metadata insert fails the stored object is removed again.
func (s *MaterialService) UploadMaterial(ctx context.Context, params UploadMaterialParams) (material Material, err error) {
	if s == nil {
		err = fmt.Errorf("MaterialService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UploadMaterial",
		"principal_id", params.Principal.UserID,
		"student_id", params.StudentID,
		"size_bytes", params.Size,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to upload material", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("material_id", material.ID, "storage_path", material.StoragePath).InfoContext(ctx, "material uploaded")
	}()

	if !params.Principal.CanManage() {
		err = newError(ErrUnauthorized, "only tutors and admins may upload materials")
		return
	}

	params.StudentID = strings.TrimSpace(params.StudentID)
	params.NoteID = strings.TrimSpace(params.NoteID)
	params.EventID = strings.TrimSpace(params.EventID)
	params.Filename = cleanFilename(params.Filename)

	if vErr := s.validateUpload(params); vErr.HasErrors() {
		err = vErr
		return
	}

	body, vErr := sniffPDF(params.Body)
	if vErr != nil {
		err = vErr
		return
	}

	if err = ensureStudentProfile(ctx, s.profiles, params.StudentID); err != nil {
		return
	}
	if params.EventID != "" {
		if err = ensureLinkedEvent(ctx, s.events, params.Principal, params.EventID, params.StudentID); err != nil {
			return
		}
	}
	if params.NoteID != "" {
		if err = s.ensureLinkedNote(ctx, params.Principal, params.NoteID, params.StudentID); err != nil {
			return
		}
	}

	if s.objects == nil || s.materials == nil {
		err = fmt.Errorf("material storage not configured")
		return
	}

	now := s.now()
	key := MaterialKey(params.StudentID, now, s.idGenerator())

	if putErr := s.objects.PutObject(ctx, key, body, params.Size, PDFMimeType); putErr != nil {
		err = wrapError(ErrUpstreamUnavailable, "the file could not be stored, please try again", putErr)
		return
	}

	material = Material{
		ID:          s.idGenerator(),
		TutorID:     params.Principal.UserID,
		StudentID:   params.StudentID,
		NoteID:      params.NoteID,
		EventID:     params.EventID,
		StoragePath: key,
		Filename:    params.Filename,
		SizeBytes:   params.Size,
		MimeType:    PDFMimeType,
		CreatedAt:   now,
	}

	persisted, createErr := s.materials.CreateMaterial(ctx, material)
	if createErr != nil {
		if delErr := s.objects.DeleteObject(ctx, key); delErr != nil {
			logger.WarnContext(ctx, "failed to remove orphaned material object", "storage_path", key, "error", delErr)
		}
		material = Material{}
		err = mapRepoError(createErr, "the material could not be saved")
		return
	}

	material = persisted
	return
}

// ListMaterials returns the materials visible to the principal, newest first.
func (s *MaterialService) ListMaterials(ctx context.Context, principal Principal) ([]Material, error) {
	if s == nil {
		return nil, fmt.Errorf("MaterialService is nil")
	}

	scope := principal.ownerScope()
	if scope.Empty() || principal.UserID == "" {
		return []Material{}, nil
	}
	if s.materials == nil {
		return nil, fmt.Errorf("material repository not configured")
	}

	stored, err := s.materials.ListMaterials(ctx, scope)
	if err != nil {
		err = mapRepoError(err, "the materials could not be loaded")
		s.loggerWith(ctx, "ListMaterials", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to list materials", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	viewer := principal.Viewer()
	visible := make([]Material, 0, len(stored))
	for _, material := range stored {
		if viewer.CanSee(material.owners()) {
			visible = append(visible, material)
		}
	}
	return visible, nil
}

// MaterialLink returns a time limited URL for a material the principal may see.
func (s *MaterialService) MaterialLink(ctx context.Context, principal Principal, materialID string) (link MaterialLink, err error) {
	if s == nil {
		err = fmt.Errorf("MaterialService is nil")
		return
	}

	logger := s.loggerWith(ctx, "MaterialLink",
		"principal_id", principal.UserID,
		"material_id", materialID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to sign material link", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	material, err := s.visibleMaterial(ctx, principal, materialID)
	if err != nil {
		return MaterialLink{}, err
	}
	if s.objects == nil {
		return MaterialLink{}, fmt.Errorf("object store not configured")
	}

	url, signErr := s.objects.PresignGet(ctx, material.StoragePath, s.linkTTL)
	if signErr != nil {
		return MaterialLink{}, wrapError(ErrUpstreamUnavailable, "the file link could not be created, please try again", signErr)
	}

	return MaterialLink{URL: url, ExpiresAt: s.now().Add(s.linkTTL)}, nil
}

// DeleteMaterial removes a material's metadata and then its stored object.
func (s *MaterialService) DeleteMaterial(ctx context.Context, principal Principal, materialID string) (err error) {
	if s == nil {
		return fmt.Errorf("MaterialService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteMaterial",
		"principal_id", principal.UserID,
		"material_id", materialID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete material", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "material deleted")
	}()

	if !principal.CanManage() {
		return newError(ErrUnauthorized, "students cannot delete materials")
	}
	if s.materials == nil {
		return fmt.Errorf("material repository not configured")
	}

	materialID = strings.TrimSpace(materialID)
	if materialID == "" {
		return newError(ErrNotFound, "this material no longer exists")
	}

	existing, err := s.materials.GetMaterial(ctx, materialID)
	if err != nil {
		return mapRepoError(err, "this material no longer exists")
	}
	if existing.TutorID != principal.UserID && !principal.IsAdmin() {
		return newError(ErrUnauthorized, "you can only delete materials that you uploaded")
	}

	if err := s.materials.DeleteMaterial(ctx, materialID); err != nil {
		return mapRepoError(err, "this material no longer exists")
	}

	removeObjects(ctx, s.objects, logger, []Material{existing})
	return nil
}

func (s *MaterialService) visibleMaterial(ctx context.Context, principal Principal, materialID string) (Material, error) {
	materialID = strings.TrimSpace(materialID)
	if materialID == "" || principal.UserID == "" {
		return Material{}, newError(ErrNotFound, "this material no longer exists")
	}
	if s.materials == nil {
		return Material{}, fmt.Errorf("material repository not configured")
	}

	material, err := s.materials.GetMaterial(ctx, materialID)
	if err != nil {
		return Material{}, mapRepoError(err, "this material no longer exists")
	}
	// Materials outside the principal's view look missing.
	if !principal.Viewer().CanSee(material.owners()) {
		return Material{}, newError(ErrNotFound, "this material no longer exists")
	}
	return material, nil
}

func (s *MaterialService) ensureLinkedNote(ctx context.Context, principal Principal, noteID, studentID string) error {
	if s.notes == nil {
		return fmt.Errorf("note lookup not configured")
	}

	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		if isNotFoundError(err) {
			return newError(ErrInvalidReference, "the linked note does not exist")
		}
		return mapRepoError(err, "the linked note does not exist")
	}
	if note.StudentID != studentID {
		return newError(ErrInvalidReference, "the linked note belongs to another student")
	}
	if note.TutorID != principal.UserID && !principal.IsAdmin() {
		return newError(ErrUnauthorized, "you can only attach files to notes that you wrote")
	}
	return nil
}

func (s *MaterialService) validateUpload(params UploadMaterialParams) *ValidationError {
	vErr := &ValidationError{}

	if params.StudentID == "" {
		vErr.add("student_id", "a student must be selected")
	}
	if params.Body == nil {
		vErr.add("file", "a file is required")
	}
	switch {
	case params.Size <= 0:
		vErr.add("file", "the file is empty")
	case params.Size > s.maxBytes:
		vErr.add("file", "the file must be at most "+FormatSize(s.maxBytes))
	}
	declared := strings.ToLower(strings.TrimSpace(params.DeclaredType))
	if declared != "" && declared != PDFMimeType {
		vErr.add("file", "only PDF files are accepted")
	}
	if !strings.EqualFold(path.Ext(params.Filename), ".pdf") {
		vErr.add("filename", "the file name must end in .pdf")
	}

	return vErr
}

// sniffPDF checks the leading bytes of body and returns a reader that
// replays them.
func sniffPDF(body io.Reader) (io.Reader, *ValidationError) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		vErr := &ValidationError{}
		vErr.add("file", "the file could not be read")
		return nil, vErr
	}
	head = head[:n]

	if !mimetype.Detect(head).Is(PDFMimeType) {
		vErr := &ValidationError{}
		vErr.add("file", "only PDF files are accepted")
		return nil, vErr
	}
	return io.MultiReader(bytes.NewReader(head), body), nil
}

// MaterialKey builds the object key for an upload:
// <studentID>/<unix millis>_<random>.pdf.
func MaterialKey(studentID string, at time.Time, random string) string {
	if random == "" {
		random = uuid.NewString()
	}
	return studentID + "/" + strconv.FormatInt(at.UnixMilli(), 10) + "_" + random + ".pdf"
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	return path.Base(name)
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with binary units, for example "1.5 KB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := float64(n) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}
