package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greenhome/internal/feature/listing"
	"greenhome/internal/transport/http/ez"
)

type Houses struct {
	Svc *listing.Service
	EZ  ez.Options
}

func (h *Houses) Priority() int { return 10 }

func (h *Houses) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.EZ).Group("/houses")

	ez.GET(e, "", false, func(c *gin.Context) (gin.H, error) {
		items, err := h.Svc.List(c.Request.Context())
		return gin.H{"data": items}, err
	})
	ez.GET(e, "/:id", false, func(c *gin.Context) (gin.H, error) {
		l, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
		return gin.H{"data": l}, err
	})
	ez.RegisterAction(e, ez.Action[map[string]any, gin.H]{
		Method: http.MethodPost,
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *map[string]any) (gin.H, error) {
			id, err := h.Svc.Create(c.Request.Context(), *in)
			return gin.H{"message": "House added successfully", "insertedId": id}, err
		},
	})
	ez.RegisterAction(e, ez.Action[map[string]any, gin.H]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *map[string]any) (gin.H, error) {
			err := h.Svc.Update(c.Request.Context(), c.Param("id"), *in)
			return gin.H{"message": "House updated successfully"}, err
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			err := h.Svc.Delete(c.Request.Context(), c.Param("id"))
			return gin.H{"message": "House deleted successfully"}, err
		},
	})
}
