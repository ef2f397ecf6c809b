package user

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mx-space/wsgateway/internal/pkg/response"
	"go.uber.org/zap"
)

// Notifier pushes to or disconnects every live connection of an identity.
type Notifier interface {
	NotifyUser(identityKey, event string, payload any) int
	LogoutUser(identityKey string) int
}

type Handler struct {
	svc      *Service
	notifier Notifier
	reserved func(event string) bool
	log      *zap.Logger
}

// NewHandler wires the service to the gateway. reserved reports event names
// admins may not push.
func NewHandler(svc *Service, notifier Notifier, reserved func(string) bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if reserved == nil {
		reserved = func(string) bool { return false }
	}
	return &Handler{svc: svc, notifier: notifier, reserved: reserved, log: log}
}

// RegisterRoutes mounts /users. issueMW guards token issuance, adminMW the
// push and logout endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, issueMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/users")
	g.POST("", issueMW, h.create)
	g.POST("/login", issueMW, h.login)

	a := g.Group("/:email", adminMW)
	a.POST("/notify", h.notify)
	a.POST("/logout", h.logout)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if !bindJSON(c, &dto) {
		return
	}
	token, acc, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	h.log.Info("user created", zap.String("id", acc.ID), zap.String("email", acc.Email))
	response.Created(c, tokenResponse{AccessToken: token, User: toResponse(acc)})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if !bindJSON(c, &dto) {
		return
	}
	token, acc, err := h.svc.Login(dto.Email, dto.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			response.UnauthorizedMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, tokenResponse{AccessToken: token, User: toResponse(acc)})
}

func (h *Handler) notify(c *gin.Context) {
	key := normalizeEmail(c.Param("email"))
	var dto NotifyDTO
	if !bindJSON(c, &dto) {
		return
	}
	event := strings.TrimSpace(dto.Event)
	if h.reserved(event) {
		response.UnprocessableEntity(c, "event name is reserved")
		return
	}
	n := h.notifier.NotifyUser(key, event, dto.Payload)
	response.OK(c, notifyResponse{Delivered: n})
}

func (h *Handler) logout(c *gin.Context) {
	key := normalizeEmail(c.Param("email"))
	n := h.notifier.LogoutUser(key)
	response.OK(c, logoutResponse{Disconnected: n})
}

// bindJSON answers 400 for malformed JSON and 422 for bodies failing
// validation.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.UnprocessableEntity(c, verrs.Error())
		return false
	}
	response.BadRequest(c, err.Error())
	return false
}
