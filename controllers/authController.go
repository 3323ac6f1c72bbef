package controllers

import (
	"net/mail"

	"github.com/gofiber/fiber/v2"

	"civicdesk-backend/database"
	"civicdesk-backend/middlewares"
	"civicdesk-backend/models"
	"civicdesk-backend/store"
)

func Login(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	if _, err := mail.ParseAddress(data["email"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid email format",
		})
	}

	user, err := store.Users{DB: database.DB}.ByEmail(data["email"])
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}
	if !user.Active {
		c.Status(fiber.StatusForbidden)
		return c.JSON(fiber.Map{
			"message": "Account deactivated",
		})
	}
	if err := user.ComparePassword(data["password"]); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Invalid credentials",
		})
	}

	token, err := middlewares.GenerateJWT(user)
	if err != nil {
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"message": "Could not issue token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.FullName(),
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// userCreateDTO is the admin-facing account creation payload.
type userCreateDTO struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=admin supervisor operator executor"`
}

func CreateUser(c *fiber.Ctx) error {
	var dto userCreateDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}

	user := models.User{
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Email:     dto.Email,
		Role:      models.Role(dto.Role),
		Active:    true,
	}
	user.SetPassword(dto.Password)

	if err := (store.Users{DB: database.DB}).Create(&user); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not create user",
			"error":   err.Error(),
		})
	}
	return c.JSON(user)
}

// SetUserActive toggles an account; deactivated supervisors/admins drop out
// of the overdue fan-out on the next sweep.
func SetUserActive(c *fiber.Ctx) error {
	var data struct {
		Active *bool `json:"active" validate:"required"`
	}
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	users := store.Users{DB: database.DB}
	user, err := users.ByID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := database.DB.Model(user).Update("active", *data.Active).Error; err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"message": "Could not update user",
			"error":   err.Error(),
		})
	}
	return c.JSON(user)
}
