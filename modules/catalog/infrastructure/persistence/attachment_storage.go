package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

const (
	stagingDir = ".staging"
	hashPrefix = 12
)

// FSStorage stores attachments under <root>/<uploadDir>/<sha256 prefix>/<name>.
// Identical content under the same name maps to the same path, so rewriting an
// existing file is a no-op.
type FSStorage struct {
	root      string
	uploadDir string
}

func NewFSStorage(root, uploadDir string) *FSStorage {
	return &FSStorage{root: root, uploadDir: uploadDir}
}

func (s *FSStorage) Write(ctx context.Context, src domain.AttachmentSource) (domain.Attachment, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, false, err
	}
	in, err := os.Open(src.Path)
	if err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "open document")
	}
	defer in.Close()

	staging := filepath.Join(s.root, stagingDir)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "create staging dir")
	}
	tmp, err := os.CreateTemp(staging, "attachment-*")
	if err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "create staging file")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), in)
	if err == nil {
		err = tmp.Sync()
	}
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "copy document")
	}

	sum := hex.EncodeToString(h.Sum(nil))
	name := filepath.Base(src.Name)
	if src.Name == "" {
		name = filepath.Base(src.Path)
	}
	rel := filepath.ToSlash(filepath.Join(s.uploadDir, sum[:hashPrefix], name))
	final := filepath.Join(s.root, filepath.FromSlash(rel))

	mime, err := mimetype.DetectFile(tmpPath)
	if err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "detect content type")
	}
	a := domain.Attachment{
		Path:        rel,
		Name:        name,
		Size:        size,
		SHA256:      sum,
		ContentType: mime.String(),
	}
	if mime.Is("application/pdf") {
		a.Pages = countPages(tmpPath)
	}

	if _, err := os.Stat(final); err == nil {
		return a, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "create attachment dir")
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return domain.Attachment{}, false, errors.Wrap(err, "move attachment into place")
	}
	committed = true
	return a, true, nil
}

func (s *FSStorage) Remove(_ context.Context, a domain.Attachment) error {
	if a.Path == "" {
		return nil
	}
	final := filepath.Join(s.root, filepath.FromSlash(a.Path))
	if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove attachment")
	}
	// The hash directory only ever holds files written for this content.
	_ = os.Remove(filepath.Dir(final))
	return nil
}

// AbsPath resolves a stored attachment path against the storage root.
func (s *FSStorage) AbsPath(a domain.Attachment) string {
	return filepath.Join(s.root, filepath.FromSlash(a.Path))
}

// countPages returns 0 for documents the PDF reader cannot parse.
func countPages(path string) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}
