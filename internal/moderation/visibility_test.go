package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"garden/internal/models"
)

func ids[T interface{ models.Post | models.Moment }](items []T) []string {
	var out []string
	for _, it := range items {
		switch v := any(it).(type) {
		case models.Post:
			out = append(out, v.ID)
		case models.Moment:
			out = append(out, v.ID)
		}
	}
	return out
}

func TestVisibleFiltersAndSorts(t *testing.T) {
	posts := []models.Post{
		{ID: "old", Date: models.MustDay("2024-05-20"), Status: models.PostApproved},
		{ID: "pending", Date: models.MustDay("2024-07-01"), Status: models.PostPending},
		{ID: "new", Date: models.MustDay("2024-06-01"), Status: models.PostApproved},
	}

	public := Visible(posts, false)
	assert.Equal(t, []string{"new", "old"}, ids(public))
	for _, p := range public {
		assert.Equal(t, models.PostApproved, p.Status)
	}

	admin := Visible(posts, true)
	assert.Equal(t, []string{"pending", "new", "old"}, ids(admin))

	assert.Equal(t, "old", posts[0].ID, "input must not be reordered")
}

func TestVisibleTieKeepsCollectionOrder(t *testing.T) {
	day := models.MustDay("2024-06-05")
	moments := []models.Moment{
		{ID: "second-submitted", Date: day, Status: models.MomentApproved},
		{ID: "first-submitted", Date: day, Status: models.MomentApproved},
		{ID: "older", Date: models.MustDay("2024-06-01"), Status: models.MomentApproved},
	}
	assert.Equal(t, []string{"second-submitted", "first-submitted", "older"}, ids(Visible(moments, false)))
}

func TestVisibleEmpty(t *testing.T) {
	assert.Empty(t, Visible([]models.Post(nil), false))
}
