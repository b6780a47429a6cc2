package jwt

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// OperatorName 解析出来的操作者ID写进 gin.Context 的键
	OperatorName = "operator"
)

// Middleware 管理接口的鉴权中间件
func (a *JwtAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "缺少令牌"})
			return
		}
		claims, err := a.Decode(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}
		if operator, ok := claims["sub"]; ok {
			c.Set(OperatorName, operator)
		}
		c.Next()
	}
}
