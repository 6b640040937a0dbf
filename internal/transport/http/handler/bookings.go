package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greenhome/internal/feature/booking"
	"greenhome/internal/transport/http/ez"
)

type Bookings struct {
	Svc *booking.Service
	EZ  ez.Options
}

func (h *Bookings) Priority() int { return 20 }

type statusIn struct {
	Status string `json:"status"`
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func (h *Bookings) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.EZ).Group("/bookings")

	ez.GET(e, "", false, func(c *gin.Context) (gin.H, error) {
		items, err := h.Svc.ListAll(c.Request.Context())
		return gin.H{"data": items}, err
	})
	ez.GET(e, "/:email", false, func(c *gin.Context) (gin.H, error) {
		items, err := h.Svc.ListByEmail(c.Request.Context(), c.Param("email"))
		return gin.H{"data": items}, err
	})

	// listingId 也可以写成 houseId；其余字段原样附在预订上
	ez.RegisterAction(e, ez.Action[map[string]any, gin.H]{
		Method: http.MethodPost,
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *map[string]any) (gin.H, error) {
			body := *in
			listingID := str(body, "listingId")
			if listingID == "" {
				listingID = str(body, "houseId")
			}
			id, err := h.Svc.Create(c.Request.Context(), booking.CreateInput{
				ListingID: listingID,
				Email:     str(body, "email"),
				Extra:     body,
			})
			return gin.H{"message": "Booking created successfully", "insertedId": id}, err
		},
	})
	ez.RegisterAction(e, ez.Action[statusIn, gin.H]{
		Method: http.MethodPatch,
		Path:   "/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *statusIn) (gin.H, error) {
			err := h.Svc.UpdateStatus(c.Request.Context(), c.Param("id"), in.Status)
			return gin.H{"message": "Booking status updated"}, err
		},
	})
	// 含 @ 的参数按邮箱批量删除
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			key := c.Param("id")
			if strings.Contains(key, "@") {
				n, err := h.Svc.DeleteAllByEmail(c.Request.Context(), key)
				return gin.H{"message": "Bookings deleted successfully", "deletedCount": n}, err
			}
			err := h.Svc.DeleteByID(c.Request.Context(), key)
			return gin.H{"message": "Booking deleted successfully", "deletedCount": 1}, err
		},
	})
}
