package pipeline

import (
	"time"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/extraction"
)

// IngestRequest is the payload for document ingestion.
type IngestRequest struct {
	Type    string              `json:"type" validate:"required,oneof=invoice order delivery"`
	Subject string              `json:"subject" validate:"max=500"`
	Sender  string              `json:"sender" validate:"max=320"`
	Files   []AttachmentRequest `json:"files" validate:"dive"`
}

// AttachmentRequest describes one captured file.
type AttachmentRequest struct {
	Filename  string `json:"filename" validate:"required,max=255"`
	Locator   string `json:"locator" validate:"required"`
	MediaType string `json:"mediaType" validate:"max=127"`
	Size      int64  `json:"size" validate:"gte=0"`
}

// NormalizeRequest carries the raw extraction payload.
type NormalizeRequest struct {
	Extraction extraction.RawDocument `json:"extraction"`
}

// RouteRequest assigns warehouses to pending draft moves.
type RouteRequest struct {
	Assignments []RouteAssignment `json:"assignments" validate:"dive"`
}

// RouteAssignment maps one draft move index to a warehouse code.
type RouteAssignment struct {
	Index     int    `json:"index" validate:"gte=0"`
	Warehouse string `json:"warehouse" validate:"required,uppercase,alphanum,max=16"`
}

// LinksResponse reports the posted artifacts.
type LinksResponse struct {
	JournalID    int64   `json:"journalId"`
	StockMoveIDs []int64 `json:"stockMoveIds"`
}

// DocumentResponse is the JSON projection of a document.
type DocumentResponse struct {
	ID        string               `json:"id"`
	Number    string               `json:"number"`
	Type      string               `json:"type"`
	Status    string               `json:"status"`
	Source    documents.Source     `json:"source"`
	Extracted *documents.Extracted `json:"extracted,omitempty"`
	Proposal  *documents.Proposal  `json:"proposal,omitempty"`
	Links     documents.Links      `json:"links"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func toDocumentResponse(doc documents.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID.String(),
		Number:    doc.Number,
		Type:      string(doc.Type),
		Status:    string(doc.Status),
		Source:    doc.Source,
		Extracted: doc.Extracted,
		Proposal:  doc.Proposal,
		Links:     doc.Links,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func toAttachments(files []AttachmentRequest) []documents.Attachment {
	out := make([]documents.Attachment, 0, len(files))
	for _, f := range files {
		out = append(out, documents.Attachment{
			Filename:  f.Filename,
			Locator:   f.Locator,
			MediaType: f.MediaType,
			Size:      f.Size,
		})
	}
	return out
}
