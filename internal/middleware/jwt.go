package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evonota/evonota/internal/pkg/errcode"
	"github.com/evonota/evonota/internal/pkg/jwt"
	"github.com/evonota/evonota/internal/pkg/response"
)

const ContextDoctorUIDKey = "doctor_uid"

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthenticated, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthenticated, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrInvalidCredential, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextDoctorUIDKey, claims.DoctorUID)
		if claims.Email != "" {
			c.Set("doctor_email", claims.Email)
		}
		c.Next()
	}
}
