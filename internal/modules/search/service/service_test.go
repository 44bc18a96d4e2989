package service

import (
	"testing"
	"time"

	"anoa.com/mathter/internal/entity"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	p := bluemonday.StrictPolicy()

	assert.Equal(t, "Fractions and decimals", CleanText(p, "<p>Fractions</p><b>and</b>   decimals"))
	assert.Equal(t, "a < b", CleanText(p, "a &lt; b<script>alert(1)</script>"))
}

func TestNewCourseDoc(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	course := &entity.Course{
		ID:          12,
		Title:       "<i>Geometry</i>",
		Description: "Angles<br>and shapes",
		GradeLevel:  8,
		CreatedAt:   created,
		Topics:      []entity.Topic{{Title: "Triangles"}, {Title: "Circles"}},
	}

	doc := newCourseDoc(bluemonday.StrictPolicy(), course)

	assert.Equal(t, "12", doc.ID)
	assert.Equal(t, "Geometry", doc.Title)
	assert.Equal(t, "Angles and shapes", doc.Description)
	assert.Equal(t, uint(8), doc.GradeLevel)
	assert.Equal(t, []string{"Triangles", "Circles"}, doc.Topics)
	assert.Equal(t, created.Unix(), doc.CreatedAt)
}
