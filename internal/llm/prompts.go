package llm

import (
	"bytes"
	"fmt"
	"text/template"
)

const systemPrompt = "You are a file organization assistant. Reply with JSON only, no markdown and no explanation."

const preferencesBlock = `{{define "preferences"}}{{if .Corrections}}
## Learned User Preferences
The user has made these corrections in the past. Use them to inform your classification:
{{range .Corrections}}- {{.}}
{{end}}{{end}}{{end}}`

const fileTemplate = `Classify the following file and determine where it should go.

## File Information
- Filename: {{.Name}}
- Extension: {{.Ext}}
- Size: {{.Size}} bytes
- Modified: {{.Modified}}
{{if .Metadata}}
## File Metadata (extracted from file)
{{.Metadata}}
{{end}}
## Available Domains (Life Areas)
- Finance: Financial documents, trading, investments, taxes, bank statements
- Family: Family documents, kids' school, family medical records
- Work: Career documents, resumes, work projects, professional learning
- Health: Personal health records, medical documents, fitness
- Property: Home documents, mortgages, property taxes, HOA
- Personal: General personal items, receipts, screenshots, misc

## Available Subfolders per Domain
- Documents: Official documents, records, statements
- Projects: Active work, ongoing projects
- Research: Learning materials, courses, reference docs
- Media: Photos, videos, screenshots
- Archive: Old/completed items

## Available Actions
- move: Move to appropriate domain/subfolder
- delete: File is temporary, installer, or garbage
- archive: Old file, move to Archive subfolder
- skip: Leave in place (can't determine or user should decide)
- rename: Only rename the file (keep in place)
{{template "preferences" .}}{{if .Revision}}
## Current Classification (NEEDS REVISION)
The system classified this file as:
- Action: {{.Revision.Action}}
- Domain: {{or .Revision.Domain "None"}}
- Subfolder: {{or .Revision.Subfolder "None"}}
- Reasoning: {{.Revision.Reasoning}}

## User Feedback
The user said: "{{.Revision.Feedback}}"

Please reclassify based on this feedback.
{{end}}
## File Renaming Convention
If the filename is messy or non-standard, suggest a clean standardized name:
- Documents: YYYY-MM-DD-description-kebab-case.ext (e.g., 2024-01-15-tax-return-2023.pdf)
- Receipts: YYYY-MM-DD-vendor-receipt.ext (e.g., 2024-03-20-amazon-receipt.pdf)
- Screenshots: YYYY-MM-DD-HHMMSS-screenshot.ext (e.g., 2024-12-08-143022-screenshot.png)
- Health: YYYY-MM-DD-provider-type.ext (e.g., 2024-11-05-kaiser-lab-results.pdf)

Rules: All lowercase, kebab-case, date prefix from the filename, the metadata or the modified date ({{.Today}} if none).

Respond with ONLY a JSON object:
{
    "action": "move|delete|archive|skip|rename",
    "domain": "Finance|Family|Work|Health|Property|Personal|null",
    "subfolder": "Documents|Projects|Research|Media|Archive|null",
    "category": "document|image|video|audio|installer|archive|code|trading|receipt|screenshot|download|unknown",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation",
    "suggested_name": "standardized-filename.ext or null if already clean",
    "extracted_pattern": "Optional regex pattern for similar files",
    "extracted_keywords": ["optional", "keywords", "for", "matching"]
}
`

const fileBatchTemplate = `Classify the following files and determine where each should go.

## Files to Classify
{{range .Items}}{{.Number}}. {{.Name}} ({{.Ext}}, {{.Size}} bytes, modified: {{.Modified}}){{if .Summary}}
   Metadata: {{.Summary}}{{end}}
{{end}}
## Available Domains (Life Areas)
- Finance: Financial documents, trading, investments, taxes, bank statements
- Family: Family documents, kids' school, family medical records
- Work: Career documents, resumes, work projects, professional learning
- Health: Personal health records, medical documents, fitness
- Property: Home documents, mortgages, property taxes, HOA
- Personal: General personal items, receipts, screenshots, misc

## Available Subfolders per Domain
Documents, Projects, Research, Media, Archive

## Available Actions
- move: Move to appropriate domain/subfolder
- delete: File is temporary, installer, or garbage
- archive: Old file, move to Archive subfolder
- skip: Leave in place
- rename: Only rename the file (keep in place)

## File Renaming Convention
For ALL files with action=move or action=archive, provide a suggested_name:
- Format: YYYY-MM-DD-description-in-kebab-case.ext
- Date: from the filename, the metadata, or the modified date shown. Never "undated".
- Description: clear, based on content or metadata, max 50 chars.
- Keep the original extension. All lowercase, hyphens not underscores.
{{template "preferences" .}}
Respond with ONLY a JSON array, one element per file, using the file's number as index:
[
  {
    "index": 1,
    "action": "move|delete|archive|skip|rename",
    "domain": "Finance|Family|Work|Health|Property|Personal|null",
    "subfolder": "Documents|Projects|Research|Media|Archive|null",
    "category": "document|image|video|audio|installer|archive|code|trading|receipt|screenshot|download|unknown",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation",
    "suggested_name": "yyyy-mm-dd-description.ext"
  }
]
`

const noteTemplate = `Classify the following Obsidian note and determine which Area folder it belongs in.

## Note Information
- Filename: {{.Name}}
- Folder: {{or .Folder "(vault root)"}}
{{if .Metadata}}
## Note Frontmatter
{{.Metadata}}
{{end}}
## Note Content (truncated)
{{or .Content "(no content)"}}

## Available Area Folders
- 41 - Finance: Trading, investments, budgeting, financial documents
- 42 - Family: Family events, kids, home management
- 43 - Work: Career, job search, professional development
- 44 - Health: Medical records, fitness, mental health
- 45 - Learning: Courses, tutorials, study notes
- 46 - Projects: Personal projects, hobbies, DIY

## Available Actions
- move: Move to appropriate area folder
- archive: Old or completed content, move to archives
- skip: Leave in place (can't determine or shouldn't be moved)
{{template "preferences" .}}{{if .Revision}}
## Current Classification (NEEDS REVISION)
The system classified this note as:
- Action: {{.Revision.Action}}
- Area: {{or .Revision.Domain "None"}}
- Reasoning: {{.Revision.Reasoning}}

## User Feedback
The user said: "{{.Revision.Feedback}}"

Please reclassify based on this feedback.
{{end}}
Respond with ONLY a JSON object:
{
    "action": "move|archive|skip",
    "area": "41 - Finance|42 - Family|43 - Work|44 - Health|45 - Learning|46 - Projects|null",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation of why this classification was chosen"
}
`

const noteBatchTemplate = `Classify the following notes into appropriate Area folders.

## Notes to Classify
{{range .Items}}{{.Number}}. {{.Name}}{{if .Summary}} [{{.Summary}}]{{end}}
{{end}}
## Note Content Previews
{{range .Items}}{{.Number}}. {{or .Preview "(no content)"}}
{{end}}
## Available Area Folders
- 41 - Finance: Trading, investments, budgeting
- 42 - Family: Family events, kids, home
- 43 - Work: Career, job, professional
- 44 - Health: Medical, fitness, mental health
- 45 - Learning: Courses, tutorials, study
- 46 - Projects: Personal projects, hobbies

## Available Actions
- move: Move to appropriate area folder
- archive: Old content, move to archives
- skip: Leave in place
{{template "preferences" .}}
Respond with ONLY a JSON array, one element per note, using the note's number as index:
[
  {
    "index": 1,
    "action": "move|archive|skip",
    "area": "41 - Finance|42 - Family|43 - Work|44 - Health|45 - Learning|46 - Projects|null",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation"
  }
]
`

const patternTemplate = `Analyze this user correction and extract patterns that could apply to similar items.

## Original Classification
- Filename: {{.OriginalFilename}}
- Classified as: {{.OriginalAction}} -> {{or .OriginalDomain "None"}}/{{or .OriginalSubfolder "None"}}

## User's Correction
- Should be: {{.CorrectedAction}} -> {{or .CorrectedDomain "None"}}/{{or .CorrectedSubfolder "None"}}
- User said: "{{.UserFeedback}}"

## Instructions
Extract patterns that would help identify similar items in the future:

1. What regex pattern would match filenames like this?
2. What keywords indicate this type of item?
3. Is this a specific vendor or source pattern?

Respond with ONLY a JSON object:
{
    "filename_pattern": "regex pattern or null",
    "keywords": ["list", "of", "keywords"],
    "reasoning": "Why these patterns were extracted"
}
`

var prompts = template.Must(template.New("prompts").Parse(preferencesBlock +
	`{{define "file"}}` + fileTemplate +
	`{{end}}{{define "file_batch"}}` + fileBatchTemplate +
	`{{end}}{{define "note"}}` + noteTemplate +
	`{{end}}{{define "note_batch"}}` + noteBatchTemplate +
	`{{end}}{{define "pattern"}}` + patternTemplate + `{{end}}`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
