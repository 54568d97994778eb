package domain

import (
	"fmt"
	"regexp"
	"time"
)

// DocumentCategory groups uploads on the documents page.
type DocumentCategory string

const (
	CategoryDesign        DocumentCategory = "design"
	CategoryDevelopment   DocumentCategory = "development"
	CategoryDocumentation DocumentCategory = "documentation"
	CategoryMedia         DocumentCategory = "media"
	CategoryOther         DocumentCategory = "other"
)

var DocumentCategories = []DocumentCategory{CategoryDesign, CategoryDevelopment, CategoryDocumentation, CategoryMedia, CategoryOther}

func (c DocumentCategory) Valid() bool {
	for _, known := range DocumentCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Document is the metadata row of an uploaded file. FileURL is the storage path.
type Document struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspace_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Category    DocumentCategory `json:"category"`
	FileURL     string           `json:"file_url"`
	FileSize    int64            `json:"file_size"`
	FileType    *string          `json:"file_type"`
	ProjectID   *string          `json:"project_id"`
	TaskID      *string          `json:"task_id"`
	UploadedBy  string           `json:"uploaded_by"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (d Document) RecordID() string { return d.ID }

func (d Document) ScopeValue(column string) string {
	if column == ColumnWorkspaceID {
		return d.WorkspaceID
	}
	return ""
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SafeFileName replaces every character outside [a-zA-Z0-9._-] with an underscore.
func SafeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// StoragePath builds the object path for an upload.
func StoragePath(workspaceID, memberID, fileName string, at time.Time) string {
	return fmt.Sprintf("documents/%s/%s/%d_%s", workspaceID, memberID, at.UnixMilli(), SafeFileName(fileName))
}

// Comment is a remark left on a document.
type Comment struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	WorkspaceID string    `json:"workspace_id"`
	AuthorID    string    `json:"author_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c Comment) RecordID() string { return c.ID }

func (c Comment) ScopeValue(column string) string {
	if column == ColumnWorkspaceID {
		return c.WorkspaceID
	}
	return ""
}
