package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

func buttons(role models.Role) []string {
	var out []string
	for _, row := range GetRoleMenu(role).Keyboard {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestGetRoleMenu(t *testing.T) {
	student := buttons(models.Student)
	assert.Contains(t, student, BtnRedeem)
	assert.NotContains(t, student, BtnRequests)

	admin := buttons(models.Admin)
	assert.Contains(t, admin, BtnRequests)
	assert.Contains(t, admin, BtnUnits)

	assert.Empty(t, buttons(""))
}
