package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"wushuacademy_go/config"
	"wushuacademy_go/database"
	"wushuacademy_go/middleware"
	"wushuacademy_go/models"
	"wushuacademy_go/services/livefeed"
)

type WebSocketController struct {
	hub *livefeed.Hub
}

func NewWebSocketController(hub *livefeed.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// validateJWT validates a JWT token and returns the admin it belongs to
func (wsc *WebSocketController) validateJWT(tokenString string) (*models.AdminUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &middleware.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*middleware.Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}

	db := database.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database unavailable")
	}
	var user models.AdminUser
	if err := db.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// WebSocketHandler returns a Fiber WebSocket handler that validates the JWT
// from the query string and attaches the connection to the live feed hub.
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("websocket handler panic")
			}
		}()

		token := c.Query("token")
		if token == "" {
			c.WriteMessage(fiberws.CloseMessage, []byte("Missing token"))
			c.Close()
			return
		}

		user, err := wsc.validateJWT(token)
		if err != nil {
			logrus.WithError(err).Warn("websocket connection rejected")
			c.WriteMessage(fiberws.CloseMessage, []byte("Invalid token"))
			c.Close()
			return
		}

		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("websocket connection established")

		wsc.hub.Serve(c)
	})
}

// GetWebSocketStats returns live feed connection statistics
func (wsc *WebSocketController) GetWebSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":           true,
		"connected_clients": wsc.hub.ClientCount(),
	})
}
