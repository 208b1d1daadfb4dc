package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/formsync/modules/catalog/domain"
	"github.com/iota-uz/formsync/pkg/composables"
	"github.com/iota-uz/formsync/pkg/metrics"
)

// Policy selects the optional behaviors of a reconciliation run.
type Policy struct {
	DryRun bool
	// Limits bounds the stored values; rows exceeding them are skipped. The zero
	// value uses domain.DefaultLimits.
	Limits domain.Limits
	// FallbackEnabled synthesizes a row from the file name for documents without
	// a workbook row. The guessed section is created when missing.
	FallbackEnabled       bool
	CreateMissingSections bool
}

type ReconcileService struct {
	store       domain.Store
	tables      Tables
	normalizer  *CodeNormalizer
	sampleLimit int
}

func NewReconcileService(store domain.Store, tables Tables, normalizer *CodeNormalizer, sampleLimit int) *ReconcileService {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &ReconcileService{
		store:       store,
		tables:      tables,
		normalizer:  normalizer,
		sampleLimit: sampleLimit,
	}
}

// entryView is the JSON shape field-level patches are computed on.
type entryView struct {
	Section       string `json:"section"`
	NamePrimary   string `json:"name_primary"`
	NameSecondary string `json:"name_secondary"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Attachment    string `json:"attachment"`
}

type run struct {
	*ReconcileService
	ctx      context.Context
	policy   Policy
	report   *Report
	rows     map[string]domain.SourceRow
	sections *SectionResolver
	log      *logrus.Entry
	// written lists attachment files created by this run.
	written []domain.Attachment
	// sectionNames remembers names of sections seen this run for patches.
	sectionNames map[uuid.UUID]string
	// plannedIDs holds run-local IDs of sections planned in a dry run.
	plannedIDs map[*domain.Section]uuid.UUID
}

// Reconcile joins the indexed documents with the source rows and creates or
// updates catalog entries. The whole batch is one transaction; on a store
// failure it is rolled back, attachment files written by the run are removed,
// and the returned report has no created or updated documents.
func (s *ReconcileService) Reconcile(ctx context.Context, index *DocumentIndex, rows []domain.SourceRow, policy Policy) (*Report, error) {
	started := time.Now()
	if policy.Limits == (domain.Limits{}) {
		policy.Limits = domain.DefaultLimits()
	}
	runID, ok := composables.UseRunID(ctx)
	if !ok {
		runID = uuid.New()
	}

	ctx, span := otel.Tracer("formsync/catalog").Start(ctx, "catalog.reconcile", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
		attribute.Bool("dry_run", policy.DryRun),
		attribute.Int("documents", index.Len()),
		attribute.Int("rows", len(rows)),
	))
	defer span.End()

	log := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"run_id":  runID.String(),
		"dry_run": policy.DryRun,
	})
	report := NewReport(runID, policy.DryRun, s.sampleLimit)

	for _, d := range index.Invalid {
		report.dispose(CategoryBadCode, d.Name, "file name does not contain a code")
	}
	for _, d := range index.Duplicates {
		first := index.Docs[d.Key]
		report.dispose(CategoryDuplicateDocument, d.Name, fmt.Sprintf("code %s already taken by %s", d.Key, first.Name))
	}

	r := &run{
		ReconcileService: s,
		policy:           policy,
		report:           report,
		rows:             IndexRows(rows),
		log:              log,
		sectionNames:     map[uuid.UUID]string{},
		plannedIDs:       map[*domain.Section]uuid.UUID{},
	}

	keys := index.Keys()
	processed := 0
	body := func(txCtx context.Context) error {
		r.ctx = txCtx
		r.sections = NewSectionResolver(s.store.Sections, s.tables, s.normalizer, policy.DryRun).
			WithNameLimit(r.policy.Limits.SectionName)
		for _, key := range keys {
			if err := r.document(index.Docs[key]); err != nil {
				return err
			}
			processed++
		}
		return nil
	}

	var err error
	if policy.DryRun {
		err = s.store.Tx.InReadTx(ctx, body)
	} else {
		err = s.store.Tx.InTx(ctx, body)
	}

	r.reportOrphanRows(index)

	if err != nil {
		r.discardAttachments()
		var conflict *domain.PersistenceConflict
		if !errors.As(err, &conflict) {
			err = &domain.PersistenceConflict{Op: "transaction", Err: err}
		}
		unprocessed := make([]string, 0, len(keys)-processed)
		for _, key := range keys[processed:] {
			unprocessed = append(unprocessed, index.Docs[key].Name)
		}
		report.abort(unprocessed, err.Error())

		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile aborted")
		log.WithError(err).Error("reconciliation aborted, batch rolled back")
		observe(report, "aborted", started)
		return report, err
	}

	log.WithFields(logrus.Fields{
		"created":   report.Count(CategoryCreated),
		"updated":   report.Count(CategoryUpdated),
		"unchanged": report.Count(CategoryUnchanged),
		"documents": report.Documents(),
	}).Info("reconciliation finished")
	observe(report, "ok", started)
	return report, nil
}

func observe(report *Report, result string, started time.Time) {
	for _, c := range ReportCategories {
		metrics.ObserveDocuments(string(c), report.DryRun, report.Count(c))
	}
	metrics.ObserveRun(result, report.DryRun, time.Since(started))
}

func (r *run) document(doc domain.Document) error {
	row, ok := r.rows[doc.Key]
	createSection := r.policy.CreateMissingSections
	if !ok {
		if !r.policy.FallbackEnabled {
			r.report.dispose(CategoryNoRow, doc.Name, "no workbook row for code "+doc.Key)
			return nil
		}
		row = domain.SourceRow{
			SerialRaw:   doc.Stem,
			SerialKey:   doc.Key,
			SectionName: r.sections.GuessFromCodePrefix(doc.Stem),
		}
		createSection = true
		r.report.Add(CategoryFallbackUsed, doc.Name, "section guessed as "+row.SectionName)
	}

	limits := r.policy.Limits
	if domain.Exceeds(row.SerialRaw, limits.Code) {
		r.report.dispose(CategoryBadCode, doc.Name, fmt.Sprintf("code exceeds %d characters", limits.Code))
		return nil
	}
	if field, ok := r.overLong(row); ok {
		r.report.dispose(CategoryInvalidRow, doc.Name, fmt.Sprintf("%s exceeds %d characters", field, limits.Name))
		return nil
	}

	section, err := r.sections.Resolve(r.ctx, row.SectionName, createSection)
	if err != nil {
		return &domain.PersistenceConflict{Op: "resolve section", Code: row.SerialRaw, Err: err}
	}
	if section == nil {
		detail := fmt.Sprintf("section %q not found", row.SectionName)
		if createSection && r.sections.NameTooLong(row.SectionName) {
			detail = fmt.Sprintf("section name exceeds %d characters", limits.SectionName)
		}
		r.report.dispose(CategoryNoSection, doc.Name, detail)
		return nil
	}
	sectionID := r.sectionRef(section)
	r.sectionNames[sectionID] = section.NamePrimary

	existing, err := r.store.Entries.GetByCode(r.ctx, row.SerialRaw)
	switch {
	case errors.Is(err, domain.ErrEntryNotFound):
		return r.create(doc, row, sectionID)
	case err != nil:
		return &domain.PersistenceConflict{Op: "get entry", Code: row.SerialRaw, Err: err}
	default:
		return r.update(doc, row, sectionID, existing)
	}
}

// overLong returns the first entry field of row longer than the name limit.
func (r *run) overLong(row domain.SourceRow) (domain.Field, bool) {
	for _, f := range []struct {
		field domain.Field
		value string
	}{
		{domain.FieldNamePrimary, row.NamePrimary},
		{domain.FieldNameSecondary, row.NameSecondary},
		{domain.FieldCategory, row.Category},
	} {
		if domain.Exceeds(f.value, r.policy.Limits.Name) {
			return f.field, true
		}
	}
	return "", false
}

// sectionRef returns the section ID entries point at. Sections planned in a dry
// run have no ID yet and get a run-local one.
func (r *run) sectionRef(s *domain.Section) uuid.UUID {
	if !s.Planned() {
		return s.ID
	}
	id, ok := r.plannedIDs[s]
	if !ok {
		id = uuid.New()
		r.plannedIDs[s] = id
	}
	return id
}

func (r *run) create(doc domain.Document, row domain.SourceRow, sectionID uuid.UUID) error {
	entry := &domain.Entry{
		SectionID:     sectionID,
		Code:          row.SerialRaw,
		NamePrimary:   row.NamePrimary,
		NameSecondary: row.NameSecondary,
		Category:      row.Category,
		Description:   row.Description,
	}

	att, ok := r.attachment(doc)
	if !ok {
		return nil
	}
	entry.Attachment = att

	if !r.policy.DryRun {
		if _, err := r.store.Entries.Create(r.ctx, entry); err != nil {
			return &domain.PersistenceConflict{Op: "create entry", Code: row.SerialRaw, Err: err}
		}
	}

	r.report.dispose(CategoryCreated, doc.Name, row.SerialRaw)
	r.change(doc, CategoryCreated, nil, entry, nil, true)
	r.log.WithField("code", row.SerialRaw).Debug("entry created")
	return nil
}

func (r *run) update(doc domain.Document, row domain.SourceRow, sectionID uuid.UUID, existing *domain.Entry) error {
	next := *existing
	next.SectionID = sectionID
	next.NamePrimary = row.NamePrimary
	next.NameSecondary = row.NameSecondary
	next.Category = row.Category
	next.Description = row.Description

	fields := diffFields(existing, &next)
	replace := existing.Attachment.Name != doc.Name
	if len(fields) == 0 && !replace {
		r.report.dispose(CategoryUnchanged, doc.Name, existing.Code)
		return nil
	}

	if replace {
		att, ok := r.attachment(doc)
		if !ok {
			return nil
		}
		next.Attachment = att
	}

	if !r.policy.DryRun {
		if len(fields) > 0 {
			if err := r.store.Entries.Update(r.ctx, &next, fields); err != nil {
				return &domain.PersistenceConflict{Op: "update entry", Code: existing.Code, Err: err}
			}
		}
		if replace {
			if err := r.store.Entries.ReplaceAttachment(r.ctx, existing.ID, next.Attachment); err != nil {
				return &domain.PersistenceConflict{Op: "replace attachment", Code: existing.Code, Err: err}
			}
		}
	}

	r.report.dispose(CategoryUpdated, doc.Name, existing.Code)
	r.change(doc, CategoryUpdated, existing, &next, fields, replace)
	r.log.WithFields(logrus.Fields{"code": existing.Code, "fields": fields, "attachment": replace}).Debug("entry updated")
	return nil
}

// attachment stores the document file, or in a dry run only checks that it is
// readable. A failure is recorded against the document.
func (r *run) attachment(doc domain.Document) (domain.Attachment, bool) {
	if r.policy.DryRun {
		f, err := os.Open(doc.Path)
		if err != nil {
			r.attachmentFailed(doc, err)
			return domain.Attachment{}, false
		}
		_ = f.Close()
		return domain.Attachment{Name: doc.Name, Size: doc.Size}, true
	}

	att, written, err := r.store.Attachments.Write(r.ctx, domain.AttachmentSource{Path: doc.Path, Name: doc.Name})
	if err != nil {
		r.attachmentFailed(doc, err)
		return domain.Attachment{}, false
	}
	if written {
		r.written = append(r.written, att)
	}
	return att, true
}

func (r *run) attachmentFailed(doc domain.Document, err error) {
	r.report.dispose(CategoryAttachmentFailed, doc.Name, err.Error())
	r.log.WithError(err).WithField("document", doc.Name).Warn("attachment write failed, document skipped")
}

func (r *run) discardAttachments() {
	for _, a := range r.written {
		if err := r.store.Attachments.Remove(context.WithoutCancel(r.ctx), a); err != nil {
			r.log.WithError(err).WithField("path", a.Path).Warn("failed to remove attachment of rolled back run")
		}
	}
	r.written = nil
}

func (r *run) reportOrphanRows(index *DocumentIndex) {
	keys := make([]string, 0, len(r.rows))
	for k := range r.rows {
		if _, ok := index.Docs[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		row := r.rows[k]
		r.report.Add(CategoryNoDocument, row.SerialRaw, fmt.Sprintf("%s row %d", row.Sheet, row.Line))
	}
}

func (r *run) change(doc domain.Document, action Category, before, after *domain.Entry, fields []domain.Field, replaced bool) {
	c := Change{
		Code:               after.Code,
		Document:           doc.Name,
		Action:             action,
		AttachmentReplaced: replaced,
	}
	for _, f := range fields {
		c.Fields = append(c.Fields, string(f))
	}
	var from interface{} = struct{}{}
	if before != nil {
		from = r.view(before)
	}
	patch, err := jsondiff.Compare(from, r.view(after))
	if err != nil {
		r.log.WithError(err).WithField("code", after.Code).Warn("failed to compute entry patch")
	} else {
		c.Patch = patch
	}
	r.report.Changes = append(r.report.Changes, c)
}

func (r *run) view(e *domain.Entry) entryView {
	section := r.sectionNames[e.SectionID]
	if section == "" {
		section = e.SectionID.String()
	}
	return entryView{
		Section:       section,
		NamePrimary:   e.NamePrimary,
		NameSecondary: e.NameSecondary,
		Category:      e.Category,
		Description:   e.Description,
		Attachment:    e.Attachment.Name,
	}
}

// diffFields lists the fields of DiffFields that differ between a and b. Code
// casing is not compared: the stored code keeps its original casing.
func diffFields(a, b *domain.Entry) []domain.Field {
	var fields []domain.Field
	for _, f := range domain.DiffFields {
		var same bool
		switch f {
		case domain.FieldSection:
			same = a.SectionID == b.SectionID
		case domain.FieldNamePrimary:
			same = a.NamePrimary == b.NamePrimary
		case domain.FieldNameSecondary:
			same = a.NameSecondary == b.NameSecondary
		case domain.FieldCategory:
			same = a.Category == b.Category
		case domain.FieldDescription:
			same = a.Description == b.Description
		}
		if !same {
			fields = append(fields, f)
		}
	}
	return fields
}
