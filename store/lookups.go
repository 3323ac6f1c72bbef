package store

import (
	"gorm.io/gorm"

	"civicdesk-backend/apperrors"
	"civicdesk-backend/models"
)

// Reference kinds accepted by Lookups.ValidateReference.
const (
	RefRequestType = "request_type"
	RefTopic       = "topic"
	RefSocialGroup = "social_group"
	RefIntakeForm  = "intake_form"
)

// Lookups answers "does foreign key X of kind K exist and is it active" for
// the nomenclature tables, and serves the read-only lists for UI dropdowns.
type Lookups struct {
	DB *gorm.DB
}

func (l Lookups) model(kind string) (any, bool) {
	switch kind {
	case RefRequestType:
		return &models.RequestType{}, true
	case RefTopic:
		return &models.Topic{}, true
	case RefSocialGroup:
		return &models.SocialGroup{}, true
	case RefIntakeForm:
		return &models.IntakeForm{}, true
	}
	return nil, false
}

// ValidateReference rejects ids that are unknown, inactive, or of an unknown
// kind with a Reference error. id 0 is treated as "not set" and passes; the
// caller decides which references are mandatory.
func (l Lookups) ValidateReference(kind string, id uint) error {
	if id == 0 {
		return nil
	}
	m, ok := l.model(kind)
	if !ok {
		return &apperrors.Reference{Kind: kind, ID: id}
	}
	var n int64
	if err := l.DB.Model(m).Where("id = ? AND active = ?", id, true).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return &apperrors.Reference{Kind: kind, ID: id}
	}
	return nil
}

func (l Lookups) RequestTypes() ([]models.RequestType, error) {
	var rows []models.RequestType
	err := l.DB.Where("active = ?", true).Order("name").Find(&rows).Error
	return rows, err
}

func (l Lookups) Topics() ([]models.Topic, error) {
	var rows []models.Topic
	err := l.DB.Where("active = ?", true).Order("name").Find(&rows).Error
	return rows, err
}

func (l Lookups) SocialGroups() ([]models.SocialGroup, error) {
	var rows []models.SocialGroup
	err := l.DB.Where("active = ?", true).Order("name").Find(&rows).Error
	return rows, err
}

func (l Lookups) IntakeForms() ([]models.IntakeForm, error) {
	var rows []models.IntakeForm
	err := l.DB.Where("active = ?", true).Order("name").Find(&rows).Error
	return rows, err
}
