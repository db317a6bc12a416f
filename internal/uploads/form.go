package uploads

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

// FromForm reads every file of the multipart field in upload order.
func FromForm(c *gin.Context, field string) ([]File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, action.Validation("expected multipart form data")
	}
	headers := form.File[field]
	files := make([]File, 0, len(headers))
	for _, h := range headers {
		if h.Size > storage.MaxUploadSize {
			return nil, action.Validationf("%s exceeds the 10MB limit", h.Filename)
		}
		rc, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, storage.MaxUploadSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Filename, err)
		}
		files = append(files, File{Filename: h.Filename, ContentType: h.Header.Get("Content-Type"), Data: data})
	}
	return files, nil
}
