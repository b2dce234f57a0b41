package engine

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// Layout describes where plans of one variant put things.
type Layout interface {
	// Protected reports whether the item must never be touched.
	Protected(path string) bool
	// ResolveLabel maps a raw oracle domain or area onto the taxonomy.
	// It returns "" when the label names nothing.
	ResolveLabel(raw string) string
	// Allows reports whether the variant supports the action.
	Allows(a model.Action) bool
	// Place normalizes variant-specific fields and sets DestinationPath.
	Place(p *model.Plan)
}

// FileLayout places loose files under {areas}/{domain}/{subfolder}.
type FileLayout struct {
	logger    *slog.Logger
	AreasRoot string
}

// NewFileLayout creates the layout for the file organizer.
func NewFileLayout(areasRoot string, logger *slog.Logger) *FileLayout {
	return &FileLayout{AreasRoot: areasRoot, logger: common.OrDefault(logger)}
}

// Protected implements Layout. Loose files have no protected roots.
func (l *FileLayout) Protected(string) bool { return false }

// ResolveLabel implements Layout.
func (l *FileLayout) ResolveLabel(raw string) string {
	d, res := model.ResolveDomain(raw)
	switch res {
	case model.DomainAliased:
		l.logger.Debug("Mapped domain alias", "raw", raw, "domain", d)
	case model.DomainFallback:
		l.logger.Warn("Unknown domain, using fallback", "raw", raw, "domain", d)
	}
	return string(d)
}

// Allows implements Layout.
func (l *FileLayout) Allows(a model.Action) bool {
	return slices.Contains(model.AllActions, a)
}

// Place implements Layout.
func (l *FileLayout) Place(p *model.Plan) {
	p.DestinationPath = ""
	if !p.Action.Relocates() || p.Domain == "" {
		return
	}
	if p.Subfolder != "" && !model.IsPathElement(p.Subfolder) {
		l.logger.Warn("Ignoring unusable subfolder", "subfolder", p.Subfolder)
		p.Subfolder = ""
	}
	if !model.IsPathElement(p.SuggestedName) {
		p.SuggestedName = ""
	}
	subfolder := p.Subfolder
	if subfolder == "" {
		subfolder = model.DefaultSubfolder
	}
	p.DestinationPath = filepath.Join(l.AreasRoot, p.Domain, subfolder, p.TargetName())
}

// NoteLayout places vault notes under {vault}/{areas}/{area}, or in the
// archive folder.
type NoteLayout struct {
	VaultRoot     string
	AreasFolder   string
	ArchiveFolder string
	protected     []string
}

// NewNoteLayout creates the layout for the note vault.
func NewNoteLayout(vaultRoot, areasFolder, archiveFolder string, protected []string) *NoteLayout {
	return &NoteLayout{
		VaultRoot:     vaultRoot,
		AreasFolder:   areasFolder,
		ArchiveFolder: archiveFolder,
		protected:     slices.Clone(protected),
	}
}

// Protected implements Layout. Notes outside the vault, at its root, or
// anywhere beneath a protected folder are protected.
func (l *NoteLayout) Protected(path string) bool {
	rel, err := filepath.Rel(l.VaultRoot, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 1 {
		return true
	}
	for _, part := range parts[:len(parts)-1] {
		if slices.Contains(l.protected, part) {
			return true
		}
	}
	return false
}

// ResolveLabel implements Layout.
func (l *NoteLayout) ResolveLabel(raw string) string {
	area, _ := model.ResolveArea(raw)
	return area
}

// Allows implements Layout.
func (l *NoteLayout) Allows(a model.Action) bool {
	return a == model.ActionMove || a == model.ActionArchive || a == model.ActionSkip
}

// Place implements Layout. Archived notes resolve to the archive folder
// whatever area they were given.
func (l *NoteLayout) Place(p *model.Plan) {
	p.Category = model.CategoryNote
	p.Subfolder = ""
	p.SuggestedName = ""
	p.DestinationPath = ""

	switch {
	case p.Action == model.ActionArchive:
		p.Domain = l.ArchiveFolder
		p.DestinationPath = filepath.Join(l.VaultRoot, l.ArchiveFolder, p.SourceName())
	case p.Action == model.ActionMove && p.Domain != "":
		p.DestinationPath = filepath.Join(l.VaultRoot, l.AreasFolder, p.Domain, p.SourceName())
	}
}
