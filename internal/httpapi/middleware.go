package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Spok95/learning-platform-bot/internal/ctxutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
)

const (
	keySubject = "auth_subject"
	keyUser    = "auth_user"

	headerDeviceID  = "X-Device-ID"
	headerRequestID = "X-Request-ID"
)

func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", headerDeviceID, headerRequestID},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RequestContext: request id в заголовке и в контексте запроса.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		ctx := ctxutil.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Authenticate проверяет bearer-токен внешнего провайдера (HS256) и кладёт sub
// в контекст. Пользователь подгружается, если уже зарегистрирован.
func (a *API) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			RespondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		subject, err := a.verify(token)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		c.Set(keySubject, subject)

		user, err := a.svc.UserBySubject(c.Request.Context(), subject)
		switch {
		case err == nil:
			if !user.IsActive {
				RespondError(c, http.StatusForbidden, "inactive", "الحساب موقوف")
				return
			}
			c.Set(keyUser, *user)
			c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), user.ID))
		case errors.Is(err, db.ErrNotFound):
		default:
			a.respondErr(c, err)
			return
		}
		c.Next()
	}
}

func (a *API) verify(token string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("token without subject")
	}
	return claims.Subject, nil
}

// RequireUser: только для зарегистрированных; заодно учитывает устройство.
func (a *API) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			RespondError(c, http.StatusForbidden, "not_registered", "يرجى إكمال التسجيل أولًا")
			return
		}
		if device := strings.TrimSpace(c.GetHeader(headerDeviceID)); device != "" {
			c.Request = c.Request.WithContext(ctxutil.WithDeviceID(c.Request.Context(), device))
			if err := a.svc.RegisterDevice(c.Request.Context(), user, device); err != nil {
				a.respondErr(c, err)
				return
			}
		}
		c.Next()
	}
}

func (a *API) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok || !user.Role.IsStaff() {
			RespondError(c, http.StatusForbidden, "forbidden", "غير مسموح")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(keyUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func currentSubject(c *gin.Context) string {
	return c.GetString(keySubject)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
