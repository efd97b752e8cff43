package handlers

import "github.com/gin-gonic/gin"

// Register binds every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	r.POST("/registration/signup", h.RegisterUser)
	r.POST("/login/signin", h.Login)
	r.POST("/cp/updatepwd", h.ChangePassword)

	r.POST("/myprofile/userinfo", h.GetProfile)
	r.POST("/home/uname", h.GetUserName)
	r.POST("/uploaddp", h.UploadAvatar)

	r.POST("/home/menu", h.GetMenu)
	r.POST("/home/menus", h.GetSubMenu)
	r.GET("/items", h.GetItems)
	r.GET("/inbox/:userId", h.GetInbox)
}
