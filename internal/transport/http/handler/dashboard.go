package handler

import (
	"github.com/gin-gonic/gin"

	"greenhome/internal/feature/dashboard"
	"greenhome/internal/transport/http/ez"
	mdw "greenhome/internal/transport/http/middleware"
)

type Dashboard struct {
	Svc *dashboard.Service
	EZ  ez.Options
}

func (h *Dashboard) Priority() int { return 50 }

func (h *Dashboard) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.EZ).Group("/dashboard")
	ez.GET(e, "/summary", true, func(c *gin.Context) (gin.H, error) {
		id, _ := mdw.IdentityFrom(c)
		s, err := h.Svc.Summarize(c.Request.Context(), id.Email)
		if err != nil {
			return nil, err
		}
		return gin.H{"role": s.Role, "data": s.Data}, nil
	})
}
