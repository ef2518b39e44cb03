// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperwatch pipeline:
// subscriptions read from configuration, papers and their extracted content
// as persisted by the store, and the configuration tree consumed by every
// stage.
package types

import "time"

// Paper holds the metadata of one paper published by a literature index,
// plus the local state the pipeline attaches to it.
type Paper struct {
	// ID is the store row id. Zero until the paper has been persisted.
	ID int64 `json:"id" yaml:"id"`

	// ExternalID is the index's own identifier (e.g. "2301.07041"), with any
	// version suffix removed. It is the deduplication key.
	ExternalID string `json:"external_id" yaml:"external_id"`

	// Source names the index the paper came from (e.g. "arxiv").
	Source string `json:"source" yaml:"source"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract with whitespace collapsed.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PublishedAt is the source-reported publication time. It never changes
	// after the first insert.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// Categories lists the subject category codes (e.g. "quant-ph").
	Categories []string `json:"categories" yaml:"categories"`

	// DocumentURL is the remote location of the source document, derived
	// from ExternalID.
	DocumentURL string `json:"document_url" yaml:"document_url"`

	// LocalDocumentPath is where the document was saved. Empty until a
	// download succeeds.
	LocalDocumentPath string `json:"local_document_path,omitempty" yaml:"local_document_path,omitempty"`

	// CreatedAt is when the row was first inserted.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// HasDocument reports whether the paper's document has been downloaded.
func (p Paper) HasDocument() bool {
	return p.LocalDocumentPath != ""
}

// ContentKind classifies an ExtractedContent row.
type ContentKind string

const (
	ContentPreview  ContentKind = "preview"
	ContentFullText ContentKind = "full_text"
	ContentFormula  ContentKind = "formula"
	ContentImage    ContentKind = "image"
)

// ExtractedContent is text derived from a paper's document. The pipeline only
// writes ContentPreview rows; the other kinds belong to later stages.
type ExtractedContent struct {
	ID        int64       `json:"id" yaml:"id"`
	PaperID   int64       `json:"paper_id" yaml:"paper_id"`
	Kind      ContentKind `json:"kind" yaml:"kind"`
	Payload   string      `json:"payload" yaml:"payload"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
}

// ReportStatus tracks a report through the generation stage.
type ReportStatus string

const (
	ReportPending ReportStatus = "pending"
	ReportDone    ReportStatus = "done"
	ReportFailed  ReportStatus = "failed"
)

// Report is a row of the reports table. The report generator owns it; the
// pipeline only creates the table.
type Report struct {
	ID             int64        `json:"id" yaml:"id"`
	SubscriptionID int64        `json:"subscription_id" yaml:"subscription_id"`
	ReportDate     string       `json:"report_date" yaml:"report_date"`
	PaperCount     int          `json:"paper_count" yaml:"paper_count"`
	OutputPath     string       `json:"output_path" yaml:"output_path"`
	Status         ReportStatus `json:"status" yaml:"status"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at"`
}
