package model

import "strings"

// Domain is a top-level life area in the file taxonomy.
type Domain string

// Domain constants.
const (
	DomainFinance  Domain = "Finance"
	DomainFamily   Domain = "Family"
	DomainWork     Domain = "Work"
	DomainHealth   Domain = "Health"
	DomainProperty Domain = "Property"
	DomainPersonal Domain = "Personal"
)

// FallbackDomain receives oracle output that maps to no known domain.
const FallbackDomain = DomainPersonal

// AllDomains lists the closed domain set in display order.
var AllDomains = []Domain{
	DomainFinance, DomainFamily, DomainWork, DomainHealth, DomainProperty, DomainPersonal,
}

// domainAliases maps common oracle mistakes onto the closed set.
var domainAliases = map[string]Domain{
	"travel":     DomainPersonal,
	"education":  DomainWork,
	"legal":      DomainFinance,
	"medical":    DomainHealth,
	"insurance":  DomainFinance,
	"automotive": DomainProperty,
	"vehicle":    DomainProperty,
	"car":        DomainProperty,
	"home":       DomainProperty,
	"kids":       DomainFamily,
	"children":   DomainFamily,
}

// DomainResolution describes how a raw label was mapped.
type DomainResolution int

// Domain resolution outcomes.
const (
	// DomainUnset means the label was empty or "null".
	DomainUnset DomainResolution = iota
	// DomainExact means the label named a domain directly.
	DomainExact
	// DomainAliased means the label was found in the alias table.
	DomainAliased
	// DomainFallback means the label was unknown and the fallback was used.
	DomainFallback
)

// ResolveDomain maps a free-form label onto the closed domain set.
// Unknown labels resolve to FallbackDomain; empty or "null" labels resolve to "".
func ResolveDomain(raw string) (Domain, DomainResolution) {
	label := strings.TrimSpace(raw)
	if IsNullLabel(label) {
		return "", DomainUnset
	}
	for _, d := range AllDomains {
		if strings.EqualFold(label, string(d)) {
			return d, DomainExact
		}
	}
	if d, ok := domainAliases[strings.ToLower(label)]; ok {
		return d, DomainAliased
	}
	return FallbackDomain, DomainFallback
}

// IsNullLabel reports whether an oracle label means "no value".
func IsNullLabel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none":
		return true
	}
	return false
}

// DefaultSubfolder is used when a classification names no subfolder.
const DefaultSubfolder = "Documents"

// IsPathElement reports whether s names a single entry inside a directory,
// so joining it cannot leave that directory.
func IsPathElement(s string) bool {
	if s == "" || s == "." || strings.Contains(s, "..") {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// Subfolders lists the subfolders offered inside each domain.
var Subfolders = []string{"Documents", "Projects", "Research", "Media", "Archive"}

// DomainSubfolders is the folder layout created under the areas root.
var DomainSubfolders = map[Domain][]string{
	DomainFinance:  {"Documents", "Research", "Projects", "Archive"},
	DomainFamily:   {"Documents", "Media", "Archive"},
	DomainWork:     {"Documents", "Projects", "Learning", "Archive"},
	DomainHealth:   {"Documents", "Archive"},
	DomainProperty: {"Documents", "Projects", "Archive"},
	DomainPersonal: {"Documents", "Media", "Archive"},
}

// Category is the kind of item a plan refers to.
type Category string

// Category constants.
const (
	CategoryDocument   Category = "document"
	CategoryImage      Category = "image"
	CategoryVideo      Category = "video"
	CategoryAudio      Category = "audio"
	CategoryInstaller  Category = "installer"
	CategoryArchive    Category = "archive"
	CategoryCode       Category = "code"
	CategoryTrading    Category = "trading"
	CategoryReceipt    Category = "receipt"
	CategoryScreenshot Category = "screenshot"
	CategoryDownload   Category = "download"
	CategoryNote       Category = "note"
	CategoryUnknown    Category = "unknown"
)

var allCategories = []Category{
	CategoryDocument, CategoryImage, CategoryVideo, CategoryAudio, CategoryInstaller,
	CategoryArchive, CategoryCode, CategoryTrading, CategoryReceipt, CategoryScreenshot,
	CategoryDownload, CategoryNote, CategoryUnknown,
}

// ParseCategory maps a label onto a Category, defaulting to CategoryUnknown.
func ParseCategory(raw string) Category {
	label := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range allCategories {
		if label == c {
			return c
		}
	}
	return CategoryUnknown
}

// Vault area folders.
const (
	AreaFinance  = "41 - Finance"
	AreaFamily   = "42 - Family"
	AreaWork     = "43 - Work"
	AreaHealth   = "44 - Health"
	AreaLearning = "45 - Learning"
	AreaProjects = "46 - Projects"
)

// AllAreas lists the vault area folders in display order.
var AllAreas = []string{AreaFinance, AreaFamily, AreaWork, AreaHealth, AreaLearning, AreaProjects}

// Unknown vault areas resolve to "" and the note stays put.
var areaSlugs = map[string]string{
	"finance":  AreaFinance,
	"family":   AreaFamily,
	"work":     AreaWork,
	"health":   AreaHealth,
	"learning": AreaLearning,
	"projects": AreaProjects,
}

// ResolveArea maps an oracle area label ("44 - Health", "health") onto a vault area.
func ResolveArea(raw string) (string, bool) {
	label := strings.TrimSpace(raw)
	if IsNullLabel(label) {
		return "", false
	}
	for _, a := range AllAreas {
		if strings.EqualFold(label, a) {
			return a, true
		}
	}
	slug := strings.ToLower(label)
	if i := strings.Index(slug, " - "); i >= 0 {
		slug = slug[i+3:]
	}
	if a, ok := areaSlugs[slug]; ok {
		return a, true
	}
	if d, res := ResolveDomain(label); res == DomainExact || res == DomainAliased {
		if a, ok := areaSlugs[strings.ToLower(string(d))]; ok {
			return a, true
		}
	}
	return "", false
}
