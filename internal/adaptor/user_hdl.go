package adaptor

import (
	"encoding/json"
	"net/http"

	"charger-booking/internal/dto/request"
	"charger-booking/internal/usecase"
	"charger-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	service usecase.UserService
	log     *zap.Logger
}

func NewUserHandler(service usecase.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With(zap.String("handler", "user")),
	}
}

// UpsertUser handles POST /api/users
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req request.UpsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	user, err := h.service.UpsertUser(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "upsert user")
		return
	}

	utils.ResponseSuccess(w, "User saved", user)
}

// GetUserByApartment handles GET /api/users/{apartmentNumber}
func (h *UserHandler) GetUserByApartment(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetUserByApartment(r.Context(), chi.URLParam(r, "apartmentNumber"))
	if err != nil {
		handleServiceError(w, h.log, err, "get user by apartment")
		return
	}

	utils.ResponseSuccess(w, "success", profile)
}
