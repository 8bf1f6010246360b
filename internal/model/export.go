package model

import "time"

// LibraryExport is the top-level JSON structure for library export and import.
type LibraryExport struct {
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
	Worksheets []WorksheetImport `json:"worksheets"`
}

// WorksheetImport is one worksheet in an import or export file.
type WorksheetImport struct {
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Category  string    `json:"category"` // canonical or legacy label
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}
