package controllers

import (
	"encoding/json"
	"net/http"

	"flowgate/backend/app/dto"
	jwtutil "flowgate/backend/app/jwt"
	"flowgate/backend/app/services"
)

type AuthController struct {
	Users  *services.UserService
	Signer *jwtutil.Signer
}

func NewAuthController(users *services.UserService, signer *jwtutil.Signer) *AuthController {
	return &AuthController{Users: users, Signer: signer}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Validation error", "username and password are required")
		return
	}
	u, err := c.Users.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}
	token, err := c.Signer.Sign(u.ID, u.Username, u.Role, u.Superadmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error", "failed to sign token")
		return
	}
	writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: token})
}
