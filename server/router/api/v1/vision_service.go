package v1

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

// maxImageBytes bounds uploads to the describe endpoint.
const maxImageBytes = 8 << 20

func (s *APIV1Service) registerVisionRoutes(e *echo.Echo) {
	e.POST("/api/v1/vision/describe", s.describeImage)
}

// describeImage returns a travel-savvy description of an uploaded image.
// The raw image is the request body; the MIME type comes from Content-Type.
func (s *APIV1Service) describeImage(c *echo.Context) error {
	if s.Vision == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "vision is not configured")
	}

	mimeType := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		return echo.NewHTTPError(http.StatusBadRequest, "an image/* Content-Type is required")
	}

	image, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImageBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read image")
	}
	if len(image) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty image")
	}
	if len(image) > maxImageBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds 8 MiB")
	}

	description, err := s.Vision.DescribeImage(c.Request().Context(), image, mimeType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to describe image")
	}
	return c.JSON(http.StatusOK, map[string]string{"description": description})
}
