package services

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iota-uz/formsync/modules/catalog/domain"
)

// DocumentIndex maps normalized keys to documents found in a folder. Every
// matching file lands in exactly one of Docs, Invalid or Duplicates.
type DocumentIndex struct {
	Docs map[string]domain.Document
	// Invalid holds documents whose stem normalizes to an empty key.
	Invalid []domain.Document
	// Duplicates holds documents whose key was already taken by a file sorting
	// earlier by name.
	Duplicates []domain.Document
}

func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{Docs: map[string]domain.Document{}}
}

// Add files doc under its key.
func (idx *DocumentIndex) Add(doc domain.Document) {
	switch _, taken := idx.Docs[doc.Key]; {
	case doc.Key == "":
		idx.Invalid = append(idx.Invalid, doc)
	case taken:
		idx.Duplicates = append(idx.Duplicates, doc)
	default:
		idx.Docs[doc.Key] = doc
	}
}

// Keys returns the indexed keys in ascending order.
func (idx *DocumentIndex) Keys() []string {
	keys := make([]string, 0, len(idx.Docs))
	for k := range idx.Docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len counts every scanned document, including invalid and duplicate ones.
func (idx *DocumentIndex) Len() int {
	return len(idx.Docs) + len(idx.Invalid) + len(idx.Duplicates)
}

// ListDocuments returns the regular files in dir with extension ext
// (case-insensitive), sorted by name. Keys are normalized with normalizer.
func ListDocuments(dir, ext string, normalizer *CodeNormalizer) ([]domain.Document, error) {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.NewConfigurationError("data dir", "cannot read "+dir, err)
	}
	docs := make([]domain.Document, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		docs = append(docs, documentFromEntry(dir, e, normalizer))
	}
	return docs, nil
}

// ScanDocuments builds the document index for dir.
func ScanDocuments(dir, ext string, normalizer *CodeNormalizer) (*DocumentIndex, error) {
	docs, err := ListDocuments(dir, ext, normalizer)
	if err != nil {
		return nil, err
	}
	idx := NewDocumentIndex()
	for _, d := range docs {
		idx.Add(d)
	}
	return idx, nil
}

// documentFromEntry builds the document for a directory entry. An entry that
// cannot be stat'ed is still returned with a zero size; the attachment step
// reports it.
func documentFromEntry(dir string, e fs.DirEntry, normalizer *CodeNormalizer) domain.Document {
	name := e.Name()
	stem := strings.TrimSpace(name[:len(name)-len(filepath.Ext(name))])
	doc := domain.Document{
		Path: filepath.Join(dir, name),
		Name: name,
		Stem: stem,
		Key:  normalizer.Normalize(stem),
	}
	if info, err := e.Info(); err == nil {
		doc.Size = info.Size()
	}
	return doc
}
