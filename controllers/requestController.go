package controllers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"civicdesk-backend/lifecycle"
	"civicdesk-backend/middlewares"
	"civicdesk-backend/store"
	"civicdesk-backend/utils"
)

// RequestHandler exposes the lifecycle service over HTTP. The handlers are
// thin: parsing, validation tags and error translation; all semantics live in
// the service.
type RequestHandler struct {
	Service *lifecycle.Service
}

func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var input lifecycle.CreateInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}
	utils.NormalizeDTO(&input)

	files, err := uploadsFromCtx(c)
	if err != nil {
		return err
	}

	req, err := h.Service.Create(input, files, middlewares.ActorFromCtx(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *RequestHandler) Update(c *fiber.Ctx) error {
	var patch lifecycle.Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.NormalizePtrDTO(&patch)

	files, err := uploadsFromCtx(c)
	if err != nil {
		return err
	}

	req, err := h.Service.Update(c.Params("id"), patch, files, middlewares.ActorFromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
	req, err := h.Service.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (h *RequestHandler) List(c *fiber.Ctx) error {
	filters := store.ListFilters{
		Status:        c.Query("status"),
		ControlStatus: c.Query("control_status"),
		TypeId:        uint(utils.ParseIntDefault(c.Query("type_id"), 0)),
		TopicId:       uint(utils.ParseIntDefault(c.Query("topic_id"), 0)),
		ExecutorId:    c.Query("executor_id"),
		Territory:     c.Query("territory"),
		Search:        c.Query("search"),
		Page:          utils.ParseIntDefault(c.Query("page"), 1),
		PageSize:      utils.ParseIntDefault(c.Query("page_size"), 20),
	}
	result, err := h.Service.List(filters)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *RequestHandler) RemoveFromControl(c *fiber.Ctx) error {
	var data struct {
		Note string `json:"note"`
	}
	// Body is optional: removal without a note is legal.
	_ = c.BodyParser(&data)

	req, err := h.Service.RemoveFromControl(c.Params("id"), data.Note, middlewares.ActorFromCtx(c))
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// DownloadAttachment streams a stored file back to the UI.
func (h *RequestHandler) DownloadAttachment(c *fiber.Ctx) error {
	req, err := h.Service.Get(c.Params("id"))
	if err != nil {
		return err
	}
	attID := utils.ParseIntDefault(c.Params("attachment_id"), 0)
	for _, att := range req.Attachments {
		if att.Id == uint(attID) {
			return c.Download(att.StoragePath, att.FileName)
		}
	}
	return fiber.NewError(fiber.StatusNotFound, "attachment not found")
}

// uploadsFromCtx collects multipart files under the "attachments" field. A
// JSON body simply yields no uploads.
func uploadsFromCtx(c *fiber.Ctx) ([]lifecycle.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	var uploads []lifecycle.Upload
	for _, fh := range form.File["attachments"] {
		fh := fh
		uploads = append(uploads, lifecycle.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				return f, err
			},
		})
	}
	return uploads, nil
}
