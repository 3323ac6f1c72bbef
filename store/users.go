package store

import (
	"errors"

	"gorm.io/gorm"

	"civicdesk-backend/apperrors"
	"civicdesk-backend/models"
)

type Users struct {
	DB *gorm.DB
}

func (s Users) Create(u *models.User) error {
	return s.DB.Create(u).Error
}

func (s Users) ByID(id string) (*models.User, error) {
	var u models.User
	err := s.DB.First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFound{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s Users) ByEmail(email string) (*models.User, error) {
	var u models.User
	err := s.DB.First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFound{Entity: "user", ID: email}
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ActiveByRoles returns the active accounts holding any of the given roles.
// Deactivated accounts never receive notifications.
func (s Users) ActiveByRoles(roles ...models.Role) ([]models.User, error) {
	var users []models.User
	err := s.DB.Where("active = ? AND role IN ?", true, roles).
		Order("email").Find(&users).Error
	return users, err
}
