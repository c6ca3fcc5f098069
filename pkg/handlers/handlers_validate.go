package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/shift-roster-api/pkg/models"
	"github.com/arnavshah/shift-roster-api/pkg/roster"
)

// ValidateInput checks a roster without generating it. Structural problems
// are reported with valid=false; dropped stale references come back as
// warnings.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.Roster
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	problem, warnings, err := roster.Build(&input)
	if err != nil {
		if !roster.IsValidation(err) {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	required := 0
	for _, n := range problem.Demand {
		required += n
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"warnings": warnings,
		"stats": gin.H{
			"staff_count":    len(problem.Staff),
			"shift_count":    len(problem.Shifts),
			"day_count":      len(problem.Calendar.Days),
			"required_slots": required,
		},
	})
}
