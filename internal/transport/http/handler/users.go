package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greenhome/internal/feature/account"
	"greenhome/internal/transport/http/ez"
	mdw "greenhome/internal/transport/http/middleware"
)

type Users struct {
	Svc *account.Service
	EZ  ez.Options
}

func (h *Users) Priority() int { return 40 }

type profileIn struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

type targetIn struct {
	Email string `json:"email"`
}

func (h *Users) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api, h.EZ).Group("/users")

	// 仅管理员：请求者取自已验证身份
	ez.GET(e, "", true, func(c *gin.Context) (gin.H, error) {
		id, _ := mdw.IdentityFrom(c)
		items, err := h.Svc.List(c.Request.Context(), id.Email)
		return gin.H{"data": items}, err
	})
	ez.GET(e, "/check/:email", false, func(c *gin.Context) (gin.H, error) {
		admin, err := h.Svc.ResolveRole(c.Request.Context(), c.Param("email"))
		return gin.H{"admin": admin}, err
	})
	ez.GET(e, "/:email", false, func(c *gin.Context) (gin.H, error) {
		a, err := h.Svc.Get(c.Request.Context(), c.Param("email"))
		return gin.H{"data": a}, err
	})

	ez.RegisterAction(e, ez.Action[account.RegisterInput, gin.H]{
		Method: http.MethodPost,
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *account.RegisterInput) (gin.H, error) {
			a, err := h.Svc.Register(c.Request.Context(), *in)
			return gin.H{"message": "User registered successfully", "data": a}, err
		},
	})
	ez.RegisterAction(e, ez.Action[profileIn, gin.H]{
		Method: http.MethodPut,
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *profileIn) (gin.H, error) {
			a, created, err := h.Svc.UpsertFromProvider(c.Request.Context(), in.Email, in.DisplayName, in.PhotoURL)
			return gin.H{"data": a, "created": created}, err
		},
	})
	ez.RegisterAction(e, ez.Action[profileIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/profile",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *profileIn) (gin.H, error) {
			err := h.Svc.UpdateProfile(c.Request.Context(), in.Email, in.DisplayName, in.PhotoURL)
			return gin.H{"message": "Profile updated successfully"}, err
		},
	})
	ez.RegisterAction(e, ez.Action[targetIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/make-admin",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *targetIn) (gin.H, error) {
			id, _ := mdw.IdentityFrom(c)
			changed, err := h.Svc.GrantAdmin(c.Request.Context(), id.Email, in.Email)
			if err != nil {
				return nil, err
			}
			if !changed {
				return gin.H{"message": "User is already an admin"}, nil
			}
			return gin.H{"message": "User promoted to admin"}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[targetIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/revoke-admin",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *targetIn) (gin.H, error) {
			id, _ := mdw.IdentityFrom(c)
			err := h.Svc.RevokeAdmin(c.Request.Context(), id.Email, in.Email)
			return gin.H{"message": "Admin role revoked"}, err
		},
	})
}
