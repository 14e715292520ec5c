package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const msgUnexpected = "Something went very wrong!"

// JSONSuccess writes body with status "success" added.
func JSONSuccess(c *fiber.Ctx, status int, body fiber.Map) error {
	body["status"] = "success"
	return c.Status(status).JSON(body)
}

// JSONError writes the error envelope: "fail" for client errors, "error"
// for server errors.
func JSONError(c *fiber.Ctx, status int, msg string) error {
	label := "fail"
	if status >= fiber.StatusInternalServerError {
		label = "error"
	}
	return c.Status(status).JSON(fiber.Map{"status": label, "message": msg})
}

// ErrorHandler renders every error returned by a handler or middleware.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		msg := msgUnexpected

		var appErr *errs.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.Kind.Status()
			msg = appErr.Message
		case errors.As(err, &fe):
			status = fe.Code
			msg = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return JSONError(c, status, msg)
	}
}

// NotFound is the catch-all for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return errs.NotFound(fmt.Sprintf("Can't find %s on this server!", c.OriginalURL()))
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return errs.Validation("Invalid request body")
	}
	return nil
}

// formFile returns the named multipart file, or nil when the request has
// no such part.
func formFile(c *fiber.Ctx, field string) (*services.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, errs.Validation("Could not read the uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errs.Validation("Could not read the uploaded file")
	}
	return &services.Upload{
		Data:        data,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Filename:    fh.Filename,
	}, nil
}

// formField reports the value of a multipart or urlencoded field and
// whether it was sent at all.
func formField(c *fiber.Ctx, field string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil {
		if vals, ok := form.Value[field]; ok && len(vals) > 0 {
			return vals[0], true
		}
		return "", false
	}
	if c.Request().PostArgs().Has(field) {
		return c.FormValue(field), true
	}
	return "", false
}
