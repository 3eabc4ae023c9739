package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupServiceRouter configures the private service engine used by deployment
// tooling and end-to-end test drivers: remote shutdown plus retrieval of
// emails captured by the Redis mock sender.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}

		case "getTestEmail":
			var args []string // ["action_type", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [actionType, email]"})
				return
			}
			redisKey := fmt.Sprintf("mockemail:%s:%s", args[1], args[0])

			// Poll briefly; the async worker may still be delivering.
			for i := 0; i < 10; i++ {
				data, err := rdb.Get(c.Request.Context(), redisKey).Result()
				if err == nil {
					rdb.Del(c.Request.Context(), redisKey)
					var emailData map[string]interface{}
					if err := json.Unmarshal([]byte(data), &emailData); err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
						return
					}
					c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
					return
				}
				if err != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, err)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
