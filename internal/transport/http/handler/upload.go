package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"greenhome/internal/feature/gallery"
	"greenhome/internal/transport/http/ez"
)

const fieldImages = "images"

type Upload struct {
	Svc *gallery.Service
	EZ  ez.Options
}

func (h *Upload) Priority() int { return 60 }

func filesOf(hs []*multipart.FileHeader) []gallery.File {
	out := make([]gallery.File, 0, len(hs))
	for _, fh := range hs {
		fh := fh
		out = append(out, gallery.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

func (h *Upload) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.EZ).Group("/upload")

	ez.POSTFILES(e, "", fieldImages, true, func(c *gin.Context, files []*multipart.FileHeader) (gin.H, error) {
		imgs, err := h.Svc.Upload(c.Request.Context(), filesOf(files))
		return gin.H{"message": "Images uploaded successfully", "data": imgs}, err
	})
	ez.GET(e, "", false, func(c *gin.Context) (gin.H, error) {
		items, err := h.Svc.List(c.Request.Context())
		return gin.H{"data": items}, err
	})

	// 原始字节直接流回，不走 JSON 信封
	e.Router().GET("/:id", func(c *gin.Context) {
		img, rc, err := h.Svc.Open(c.Request.Context(), c.Param("id"))
		if err != nil {
			e.Fail(c, err)
			return
		}
		defer rc.Close()
		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("Content-Disposition", "inline; filename="+strconv.Quote(img.Name))
		c.DataFromReader(http.StatusOK, img.Size, img.ContentType, rc, nil)
	})
}
