package controllers

import (
	"github.com/gofiber/fiber/v2"

	"civicdesk-backend/database"
	"civicdesk-backend/store"
)

// Read-only nomenclature lists for the intake form's dropdowns.

func GetRequestTypes(c *fiber.Ctx) error {
	rows, err := store.Lookups{DB: database.DB}.RequestTypes()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request_types": rows})
}

func GetTopics(c *fiber.Ctx) error {
	rows, err := store.Lookups{DB: database.DB}.Topics()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"topics": rows})
}

func GetSocialGroups(c *fiber.Ctx) error {
	rows, err := store.Lookups{DB: database.DB}.SocialGroups()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"social_groups": rows})
}

func GetIntakeForms(c *fiber.Ctx) error {
	rows, err := store.Lookups{DB: database.DB}.IntakeForms()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"intake_forms": rows})
}
