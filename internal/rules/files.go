package rules

import "github.com/Veraticus/sift/internal/model"

// macScreenshot matches the default macOS screenshot name, including the
// no-break spaces newer releases put around the time.
const macScreenshot = `^Screenshot[ \x{00a0}]+\d{4}-\d{2}-\d{2}[ \x{00a0}]+at[ \x{00a0}]+\d{1,2}\.\d{2}(\.\d{2})?([ \x{00a0}\x{202f}]+(AM|PM))?\.png$`

// DefaultFileRules returns the built-in rule table for loose files.
func DefaultFileRules() []Rule {
	finance := string(model.DomainFinance)
	personal := string(model.DomainPersonal)
	work := string(model.DomainWork)

	return []Rule{
		{
			Name:       "mac_installers",
			Patterns:   []string{`\.dmg$`, `\.pkg$`},
			Category:   model.CategoryInstaller,
			Action:     model.ActionDelete,
			Confidence: 0.95,
		},
		{
			Name:       "windows_installers",
			Patterns:   []string{`\.exe$`, `\.msi$`},
			Category:   model.CategoryInstaller,
			Action:     model.ActionDelete,
			Confidence: 0.95,
		},
		{
			Name:       "temp_files",
			Patterns:   []string{`\.tmp$`, `\.part$`, `\.crdownload$`, `~$`},
			Category:   model.CategoryDownload,
			Action:     model.ActionDelete,
			Confidence: 0.95,
		},
		{
			Name:       "windows_artifacts",
			Patterns:   []string{`\$RECYCLE\.BIN`, `desktop\.ini`, `Thumbs\.db`},
			Category:   model.CategoryUnknown,
			Action:     model.ActionDelete,
			Confidence: 0.95,
		},
		{
			Name:       "archive_files",
			Patterns:   []string{`\.zip$`, `\.tar\.gz$`, `\.tgz$`, `\.rar$`, `\.7z$`},
			Category:   model.CategoryArchive,
			Action:     model.ActionArchive,
			Domain:     personal,
			Subfolder:  "Archive",
			Confidence: 0.7,
		},
		{
			Name:       "trading_research",
			Patterns:   []string{`SA2`, `42Macro`, `Factor`, `trading`, `backtest`, `strategy`},
			Category:   model.CategoryTrading,
			Action:     model.ActionMove,
			Domain:     finance,
			Subfolder:  "Research",
			Confidence: 0.85,
		},
		{
			Name: "financial_statements",
			Patterns: []string{
				`statement`, `invoice`, `tax.*\d{4}`, `\d{4}.*tax`, `tax[ _-]?return`,
				`1099`, `W-?2`, `bank.*statement`,
			},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Domain:     finance,
			Subfolder:  "Documents",
			Confidence: 0.85,
		},
		{
			Name:       "receipts",
			Patterns:   []string{`receipt`, `order.*confirm`, `purchase`},
			Category:   model.CategoryReceipt,
			Action:     model.ActionMove,
			Domain:     personal,
			Subfolder:  "Documents",
			Confidence: 0.8,
		},
		{
			Name: "health_documents",
			Patterns: []string{
				`BP_Log`, `blood.*pressure`, `medical`, `prescription`, `lab.*results`, `doctor`, `health`,
			},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Domain:     string(model.DomainHealth),
			Subfolder:  "Documents",
			Confidence: 0.9,
		},
		{
			Name:       "work_documents",
			Patterns:   []string{`resume`, `cv`, `cover.*letter`, `job.*application`},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Domain:     work,
			Subfolder:  "Documents",
			Confidence: 0.85,
		},
		{
			Name:       "learning_materials",
			Patterns:   []string{`course`, `tutorial`, `ebook`, `\.epub$`},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Domain:     work,
			Subfolder:  "Learning",
			Confidence: 0.8,
		},
		{
			Name: "property_documents",
			Patterns: []string{
				`mortgage`, `deed`, `property.*tax`, `HOA`, `home.*insurance`, `18199`,
			},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Domain:     string(model.DomainProperty),
			Subfolder:  "Documents",
			Confidence: 0.9,
		},
		{
			Name: "family_documents",
			Patterns: []string{
				`birth.*cert`, `passport`, `social.*security`, `marriage`, `school.*report`,
			},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Domain:     string(model.DomainFamily),
			Subfolder:  "Documents",
			Confidence: 0.9,
		},
		{
			Name:       "macos_screenshots_delete",
			Patterns:   []string{macScreenshot},
			Category:   model.CategoryScreenshot,
			Action:     model.ActionDelete,
			Confidence: 0.95,
		},
		{
			Name:       "screenshots",
			Patterns:   []string{`screenshot`, `Screen Shot`, `Screenshot \d{4}`, `CleanShot`},
			Category:   model.CategoryScreenshot,
			Action:     model.ActionMove,
			Domain:     personal,
			Subfolder:  "Media",
			Confidence: 0.9,
		},
		{
			Name:       "images",
			Patterns:   []string{`\.jpg$`, `\.jpeg$`, `\.png$`, `\.gif$`, `\.heic$`},
			Category:   model.CategoryImage,
			Action:     model.ActionMove,
			Domain:     personal,
			Subfolder:  "Media",
			Confidence: 0.6,
		},
		{
			Name:       "videos",
			Patterns:   []string{`\.mp4$`, `\.mov$`, `\.avi$`, `\.mkv$`, `\.m4v$`},
			Category:   model.CategoryVideo,
			Action:     model.ActionMove,
			Domain:     personal,
			Subfolder:  "Media",
			Confidence: 0.6,
		},
		{
			Name:       "audio",
			Patterns:   []string{`\.mp3$`, `\.wav$`, `\.m4a$`, `\.aac$`, `\.flac$`},
			Category:   model.CategoryAudio,
			Action:     model.ActionMove,
			Domain:     personal,
			Subfolder:  "Media",
			Confidence: 0.6,
		},
		{
			Name: "code_files",
			Patterns: []string{
				`\.py$`, `\.js$`, `\.ts$`, `\.java$`, `\.cpp$`, `\.c$`, `\.rs$`, `\.go$`,
			},
			Category:   model.CategoryCode,
			Action:     model.ActionMove,
			Domain:     work,
			Subfolder:  "Projects",
			Confidence: 0.7,
		},
		// Generic documents need the oracle to pick a domain.
		{
			Name:       "pdf_documents",
			Patterns:   []string{`\.pdf$`},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Subfolder:  "Documents",
			Confidence: 0.5,
		},
		{
			Name:       "office_documents",
			Patterns:   []string{`\.docx?$`, `\.xlsx?$`, `\.pptx?$`, `\.pages$`, `\.numbers$`},
			Category:   model.CategoryDocument,
			Action:     model.ActionMove,
			Subfolder:  "Documents",
			Confidence: 0.5,
		},
	}
}
