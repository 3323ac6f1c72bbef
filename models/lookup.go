package models

// Nomenclature tables. Requests reference them by id; inactive rows are kept
// for history but rejected on new/changed references.

type RequestType struct {
	Id     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"not null;unique"`
	Active bool   `json:"active" gorm:"not null;default:true"`
}

type Topic struct {
	Id     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"not null;unique"`
	Active bool   `json:"active" gorm:"not null;default:true"`
}

type SocialGroup struct {
	Id     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"not null;unique"`
	Active bool   `json:"active" gorm:"not null;default:true"`
}

type IntakeForm struct {
	Id     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"not null;unique"`
	Active bool   `json:"active" gorm:"not null;default:true"`
}
