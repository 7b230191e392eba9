package models

import "fmt"

// FormatSerial renders the n-th value of ItemSerialSequence.
func FormatSerial(n int64) string { return fmt.Sprintf("INV-%06d", n) }

type ItemQuery struct {
	Q      string // 模糊搜索：serial/description
	Status AdminStatus
	Page   int
	Size   int
}

// Normalize clamps paging to page>=1, 1<=size<=200 (default 20).
func (q *ItemQuery) Normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}
}

type ItemPage struct {
	Total int64           `json:"total"`
	Items []InventoryItem `json:"items"`
}

type LoanFilter struct {
	Status     LoanStatus
	ItemID     string
	NationalID string
}

type UserPage struct {
	Users []User `json:"users"`
	Total int64  `json:"total"`
}
