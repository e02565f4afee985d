package handler

import (
	"log"
	"strconv"
	"time"

	"literally/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorIDKey = "actor_id"

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录日志
		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Actor-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// ActorMiddleware 操作者身份中间件
//
// 认证由上游网关完成（外部协作方），校验通过后把已验证的用户ID
// 放在 X-Actor-ID 头里透传进来。这里只做提取，不做鉴权——
// 管理员/主办方权限由服务层的授权闸门判定
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorIDStr := c.GetHeader("X-Actor-ID")
		if actorIDStr == "" {
			response.Error(c, response.CodeUnauthorized, "缺少操作者身份")
			c.Abort()
			return
		}

		actorID, err := strconv.ParseInt(actorIDStr, 10, 64)
		if err != nil {
			response.Error(c, response.CodeUnauthorized, "操作者身份非法")
			c.Abort()
			return
		}

		c.Set(actorIDKey, actorID)
		c.Next()
	}
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorIDKey)
}
