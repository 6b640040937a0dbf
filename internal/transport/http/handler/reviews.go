package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greenhome/internal/feature/review"
	"greenhome/internal/transport/http/ez"
	mdw "greenhome/internal/transport/http/middleware"
)

type Reviews struct {
	Svc *review.Service
	EZ  ez.Options
}

func (h *Reviews) Priority() int { return 30 }

type pageIn struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type reviewIn struct {
	ReviewText any `json:"reviewtext"`
	Rating     any `json:"rating"`
}

func (h *Reviews) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.EZ).Group("/reviews")

	ez.GET(e, "", false, func(c *gin.Context) (gin.H, error) {
		items, err := h.Svc.ListAll(c.Request.Context())
		return gin.H{"data": items}, err
	})
	ez.RegisterAction(e, ez.Action[pageIn, gin.H]{
		Method: http.MethodGet,
		Path:   "/paginated",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageIn) (gin.H, error) {
			p, err := h.Svc.ListPaginated(c.Request.Context(), in.Page, in.Limit)
			return gin.H{"data": p}, err
		},
	})
	ez.GET(e, "/:id", true, func(c *gin.Context) (gin.H, error) {
		v, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
		return gin.H{"data": v}, err
	})
	ez.GET(e, "/user/:userId", true, func(c *gin.Context) (gin.H, error) {
		items, err := h.Svc.ListByUser(c.Request.Context(), c.Param("userId"))
		return gin.H{"data": items}, err
	})

	// 作者取自已验证身份，body 里的 email 不参与
	ez.RegisterAction(e, ez.Action[reviewIn, gin.H]{
		Method: http.MethodPost,
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *reviewIn) (gin.H, error) {
			id, _ := mdw.IdentityFrom(c)
			v, err := h.Svc.Add(c.Request.Context(), id.Email, in.ReviewText, in.Rating)
			return gin.H{"message": "Review added successfully", "review": v}, err
		},
	})
	ez.RegisterAction(e, ez.Action[map[string]any, gin.H]{
		Method: http.MethodPut,
		Path:   "/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *map[string]any) (gin.H, error) {
			id, _ := mdw.IdentityFrom(c)
			rv, err := h.Svc.Update(c.Request.Context(), c.Param("id"), id.Email, *in)
			return gin.H{"message": "Review updated successfully", "review": rv}, err
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			err := h.Svc.Delete(c.Request.Context(), c.Param("id"))
			return gin.H{"message": "Review deleted successfully"}, err
		},
	})
}
