package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/auth"
	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/service"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func splitQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// formUpload opens the named multipart file. It returns a nil upload when the
// request carries no such file. The caller closes the returned closer.
func formUpload(c *fiber.Ctx, field string) (*service.Upload, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, apperrors.NewValidationError("invalid multipart form", nil)
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, noop, nil
	}
	return openUpload(headers[0])
}

func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError("unable to read uploaded file", nil)
	}
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
