// models/item_loan.go
package models

import "time"

const (
	ItemTable = "inventory_items"
	LoanTable = "loans"

	// ItemSerialSequence feeds InventoryItem.Serial.
	ItemSerialSequence = "inventory_item_serial_seq"
)

type PhysicalCondition string

const (
	ConditionExcellent PhysicalCondition = "Excelente"
	ConditionGood      PhysicalCondition = "Bueno"
	ConditionDamaged   PhysicalCondition = "Dañado"
)

func (c PhysicalCondition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionDamaged:
		return true
	}
	return false
}

type AdminStatus string

const (
	StatusAvailable AdminStatus = "Disponible"
	StatusLoaned    AdminStatus = "Prestado"
	StatusDoNotLoan AdminStatus = "No prestar"
)

func (s AdminStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusLoaned, StatusDoNotLoan:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanPending  LoanStatus = "Pendiente"
	LoanReturned LoanStatus = "Devuelto"
	LoanOverdue  LoanStatus = "Vencido"
)

// InventoryItem is one physical unit. AdminStatus is Prestado exactly while
// an open Loan references the item.
type InventoryItem struct {
	ID                string            `gorm:"type:uuid;primaryKey" json:"id"`
	Serial            string            `gorm:"size:32;uniqueIndex;not null" json:"serial"`
	Description       string            `gorm:"type:text;not null" json:"description"`
	PhysicalCondition PhysicalCondition `gorm:"size:20;not null" json:"estado_fisico"`
	AdminStatus       AdminStatus       `gorm:"size:20;index;not null;default:'Disponible'" json:"estado_admin"`
	ImageURL          string            `gorm:"size:512" json:"imagen,omitempty"`
	Observation       string            `gorm:"type:text" json:"observacion,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Borrower identifies the person holding a loaned item.
type Borrower struct {
	Name       string `gorm:"column:borrower_name;size:200;not null" json:"nombre"`
	NationalID string `gorm:"column:borrower_national_id;size:40;index;not null" json:"cedula"`
	Phone      string `gorm:"column:borrower_phone;size:40;not null" json:"telefono"`
	Email      string `gorm:"column:borrower_email;size:255;not null" json:"correo"`
	Address    string `gorm:"column:borrower_address;size:255;not null" json:"direccion"`
}

// ItemSnapshot freezes the item's descriptive fields at loan time.
type ItemSnapshot struct {
	Serial      string            `gorm:"column:item_serial;size:32;not null" json:"serial"`
	Description string            `gorm:"column:item_description;type:text;not null" json:"description"`
	Condition   PhysicalCondition `gorm:"column:item_condition;size:20;not null" json:"estado_fisico"`
	ImageURL    string            `gorm:"column:item_image_url;size:512" json:"imagen,omitempty"`
	Observation string            `gorm:"column:item_observation;type:text" json:"observacion,omitempty"`
}

func SnapshotOf(it *InventoryItem) ItemSnapshot {
	return ItemSnapshot{
		Serial:      it.Serial,
		Description: it.Description,
		Condition:   it.PhysicalCondition,
		ImageURL:    it.ImageURL,
		Observation: it.Observation,
	}
}

type Loan struct {
	ID       string   `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID   string   `gorm:"type:uuid;index;not null" json:"itemId"`
	Borrower Borrower `gorm:"embedded" json:"borrower"`

	LoanDate   time.Time  `gorm:"index;not null" json:"fecha_prestamo"`
	DueDate    time.Time  `gorm:"not null" json:"fecha_devolucion"`
	ReturnDate *time.Time `gorm:"index" json:"fecha_entrega,omitempty"`
	Status     LoanStatus `gorm:"size:20;index;not null" json:"estado"`

	Snapshot ItemSnapshot `gorm:"embedded" json:"item"`

	IssuedBy   string  `gorm:"size:128;not null" json:"issuedBy"`
	ReturnedBy *string `gorm:"size:128" json:"returnedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (InventoryItem) TableName() string { return ItemTable }
func (Loan) TableName() string          { return LoanTable }
