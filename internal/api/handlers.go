package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/imaging"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
	"github.com/ironsheep/lane-overlay/internal/video"
)

type HealthHandler struct {
	Version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{Version: version}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: h.Version,
	})
}

// UploadHandler runs uploaded stills and GIF animations through the
// pipeline and returns the annotated file.
type UploadHandler struct {
	processor *pipeline.Processor
	maxBytes  int64
	log       zerolog.Logger
}

func NewUploadHandler(processor *pipeline.Processor, maxBytes int64, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{processor: processor, maxBytes: maxBytes, log: logger}
}

// Upload handles POST /upload with a multipart "file" field. The response
// body is the processed file in the upload's format, sent as an attachment
// named output.<ext>.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		if c.Request.ContentLength > h.maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		case errors.Is(err, http.ErrMissingFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	format, err := imaging.FormatFromFilename(fh.Filename)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	var out bytes.Buffer
	if format == imaging.FormatGIF {
		err = h.processGIF(c, f, &out)
	} else {
		err = h.processStill(f, &out, format)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("filename", fh.Filename).Msg("Upload rejected")
		status := http.StatusInternalServerError
		if errors.Is(err, imaging.ErrMalformedFrame) || errors.Is(err, errUndecodable) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="output%s"`, format.Extension()))
	c.Data(http.StatusOK, format.MimeType(), out.Bytes())
}

var errUndecodable = errors.New("upload could not be decoded")

func (h *UploadHandler) processStill(r io.Reader, w io.Writer, format imaging.Format) error {
	img, err := imaging.Decode(r)
	if err != nil {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}
	processed, err := h.processor.ProcessFrame(img)
	if err != nil {
		return err
	}
	return imaging.Encode(w, processed, format)
}

func (h *UploadHandler) processGIF(c *gin.Context, r io.Reader, w io.Writer) error {
	clip, err := video.DecodeGIF(r)
	if err != nil {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}

	ctx := c.Request.Context()
	frames := make([]image.Image, 0, clip.Len())
	for frame, err := range h.processor.ProcessVideo(clip.Frames()) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			h.log.Warn().Err(err).Msg("Dropping frame")
			frames = append(frames, nil)
			continue
		}
		frames = append(frames, frame)
	}

	h.log.Debug().Int("frames", len(frames)).Msg("Animation processed")
	return video.EncodeGIF(ctx, w, frames, clip.Delays)
}
