package models

import (
	"time"

	"github.com/lib/pq"
)

// Publication is the part every research output shares. Authors and Tags
// keep their order.
type Publication struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerUID    string         `gorm:"size:128;index;not null" json:"owner"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Authors     pq.StringArray `gorm:"type:text[]" json:"authors"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	Year        int            `gorm:"index" json:"year,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	ImageURL    string         `gorm:"size:512" json:"image,omitempty"`
	FileURL     string         `gorm:"size:512" json:"file,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (p *Publication) Base() *Publication { return p }

// Record is implemented by a pointer to every publication type.
type Record interface {
	Base() *Publication
}

type Book struct {
	Publication
	Publisher string `gorm:"size:255" json:"publisher,omitempty"`
	ISBN      string `gorm:"size:32" json:"isbn,omitempty"`
	Edition   string `gorm:"size:64" json:"edition,omitempty"`
}

type BookChapter struct {
	Publication
	BookTitle string `gorm:"type:text" json:"bookTitle,omitempty"`
	Publisher string `gorm:"size:255" json:"publisher,omitempty"`
	Pages     string `gorm:"size:32" json:"pages,omitempty"`
	ISBN      string `gorm:"size:32" json:"isbn,omitempty"`
}

type JournalArticle struct {
	Publication
	Journal string `gorm:"size:255" json:"journal,omitempty"`
	Volume  string `gorm:"size:32" json:"volume,omitempty"`
	Issue   string `gorm:"size:32" json:"issue,omitempty"`
	DOI     string `gorm:"size:255" json:"doi,omitempty"`
}

type ConferencePaper struct {
	Publication
	Conference string `gorm:"size:255" json:"conference,omitempty"`
	Location   string `gorm:"size:255" json:"location,omitempty"`
	Pages      string `gorm:"size:32" json:"pages,omitempty"`
	DOI        string `gorm:"size:255" json:"doi,omitempty"`
}

type Course struct {
	Publication
	Institution string `gorm:"size:255" json:"institution,omitempty"`
	Modality    string `gorm:"size:32" json:"modality,omitempty"`
	Hours       int    `json:"hours,omitempty"`
}

type Event struct {
	Publication
	EventType string     `gorm:"size:64" json:"eventType,omitempty"`
	Location  string     `gorm:"size:255" json:"location,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type Software struct {
	Publication
	Repository string `gorm:"size:512" json:"repository,omitempty"`
	License    string `gorm:"size:64" json:"license,omitempty"`
	Version    string `gorm:"size:32" json:"version,omitempty"`
}

type Thesis struct {
	Publication
	Degree      string `gorm:"size:64" json:"degree,omitempty"`
	Institution string `gorm:"size:255" json:"institution,omitempty"`
	Advisor     string `gorm:"size:255" json:"advisor,omitempty"`
}

type Project struct {
	Publication
	FundingAgency string     `gorm:"size:255" json:"fundingAgency,omitempty"`
	Code          string     `gorm:"size:64" json:"code,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
}

type Patent struct {
	Publication
	PatentNumber string `gorm:"size:64" json:"patentNumber,omitempty"`
	Office       string `gorm:"size:128" json:"office,omitempty"`
	Status       string `gorm:"size:32" json:"status,omitempty"`
}

type Award struct {
	Publication
	Grantor  string `gorm:"size:255" json:"grantor,omitempty"`
	Category string `gorm:"size:128" json:"category,omitempty"`
}

type Talk struct {
	Publication
	Venue    string     `gorm:"size:255" json:"venue,omitempty"`
	TalkDate *time.Time `json:"talkDate,omitempty"`
}

type Dataset struct {
	Publication
	Repository string `gorm:"size:512" json:"repository,omitempty"`
	DOI        string `gorm:"size:255" json:"doi,omitempty"`
	License    string `gorm:"size:64" json:"license,omitempty"`
}

type TechnicalReport struct {
	Publication
	Institution  string `gorm:"size:255" json:"institution,omitempty"`
	ReportNumber string `gorm:"size:64" json:"reportNumber,omitempty"`
}

type Workshop struct {
	Publication
	Venue         string `gorm:"size:255" json:"venue,omitempty"`
	Hours         int    `json:"hours,omitempty"`
	Participation string `gorm:"size:32" json:"participation,omitempty"`
}

// PublicationModels is the AutoMigrate list.
func PublicationModels() []any {
	return []any{
		&Book{}, &BookChapter{}, &JournalArticle{}, &ConferencePaper{}, &Course{},
		&Event{}, &Software{}, &Thesis{}, &Project{}, &Patent{},
		&Award{}, &Talk{}, &Dataset{}, &TechnicalReport{}, &Workshop{},
	}
}
