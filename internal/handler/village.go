package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
)

// VillageHandler handles HTTP requests for villages.
type VillageHandler struct {
	villageRepo repository.VillageRepository
}

// NewVillageHandler creates a new VillageHandler.
func NewVillageHandler(villageRepo repository.VillageRepository) *VillageHandler {
	return &VillageHandler{villageRepo: villageRepo}
}

// VillageResponse is the HTTP representation of a village.
type VillageResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// GetAll handles GET /v1/villages
func (h *VillageHandler) GetAll(c *gin.Context) {
	villages, err := h.villageRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]VillageResponse, 0, len(villages))
	for _, v := range villages {
		response = append(response, VillageResponse{
			ID:   v.ID,
			Name: v.Name,
			Lat:  v.Lat,
			Lng:  v.Lng,
		})
	}
	c.JSON(http.StatusOK, response)
}
