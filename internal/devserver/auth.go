package devserver

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fanspace/fanspace-go/internal/models"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 30 * 24 * time.Hour
)

type claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"tokenType,omitempty"`
	jwt.RegisteredClaims
}

func (s *Server) generateToken(userID, email, tokenType string, ttl time.Duration) (string, error) {
	c := claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(s.secret))
}

func (s *Server) tokenPair(user models.User) (access, refresh string, err error) {
	if access, err = s.generateToken(user.ID, user.Email, "", accessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = s.generateToken(user.ID, user.Email, "refresh", refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) parseToken(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	c, ok := token.Claims.(*claims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

func (s *Server) register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return failValidation(c, validationDetails(err))
	}

	var existing models.User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fail(c, fiber.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to hash password")
	}

	user := models.User{Email: req.Email, Password: string(hashed), Name: req.Name}
	if err := s.db.Create(&user).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to create user")
	}
	return s.respondAuth(c, user, fiber.StatusCreated)
}

func (s *Server) login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return failValidation(c, validationDetails(err))
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	}
	return s.respondAuth(c, user, fiber.StatusOK)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
	}

	cl, err := s.parseToken(req.RefreshToken)
	if err != nil || cl.TokenType != "refresh" {
		return fail(c, fiber.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", cl.UserID).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Unknown user")
	}
	return s.respondAuth(c, user, fiber.StatusOK)
}

func (s *Server) respondAuth(c *fiber.Ctx, user models.User, status int) error {
	access, refresh, err := s.tokenPair(user)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to generate tokens")
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data": models.AuthResponse{
			Token:        access,
			RefreshToken: refresh,
			User:         user,
		},
	})
}

// protected validates the bearer token and stashes the user id.
func (s *Server) protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" || tokenString == authHeader {
			return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication token")
		}

		cl, err := s.parseToken(tokenString)
		if err != nil || cl.TokenType == "refresh" {
			return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		}
		c.Locals("userId", cl.UserID)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("userId").(string)
	return id
}

// socketUpgrade checks the upgrade request and authenticates via the token
// query param, or the Authorization header for non-browser clients.
func (s *Server) socketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenString := c.Query("token")
		if tokenString == "" {
			authHeader := c.Get("Authorization")
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				tokenString = ""
			}
		}
		if tokenString == "" {
			return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication token")
		}

		cl, err := s.parseToken(tokenString)
		if err != nil || cl.TokenType == "refresh" {
			return fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		}
		c.Locals("userId", cl.UserID)
		return c.Next()
	}
}
