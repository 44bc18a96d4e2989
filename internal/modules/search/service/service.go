package service

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	"anoa.com/mathter/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const coursesIndex = "courses"

type MeiliSearchService interface {
	IndexCourse(course *entity.Course) error
	DeleteCourse(id uint) error
	// SearchCourses returns matching course ids in ranking order.
	SearchCourses(query string, gradeLevel uint, limit int) ([]uint, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"grade_level"}
	if _, err := s.client.Index(coursesIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("Failed to update courses filterable attributes: %v", err)
	}

	sortable := []string{"created_at"}
	if _, err := s.client.Index(coursesIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update courses sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type meiliCourseDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	GradeLevel  uint     `json:"grade_level"`
	Topics      []string `json:"topics"`
	CreatedAt   int64    `json:"created_at"`
}

// CleanText strips markup and collapses whitespace.
func CleanText(p *bluemonday.Policy, content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleanText := html.UnescapeString(p.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func newCourseDoc(p *bluemonday.Policy, course *entity.Course) meiliCourseDoc {
	topics := make([]string, 0, len(course.Topics))
	for _, topic := range course.Topics {
		topics = append(topics, CleanText(p, topic.Title))
	}

	return meiliCourseDoc{
		ID:          strconv.FormatUint(uint64(course.ID), 10),
		Title:       CleanText(p, course.Title),
		Description: CleanText(p, course.Description),
		GradeLevel:  course.GradeLevel,
		Topics:      topics,
		CreatedAt:   course.CreatedAt.Unix(),
	}
}

func (s *meiliSearchService) IndexCourse(course *entity.Course) error {
	doc := newCourseDoc(s.sanitizer, course)

	task, err := s.client.Index(coursesIndex).AddDocuments([]meiliCourseDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed course %d, task id: %d", course.ID, task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteCourse(id uint) error {
	_, err := s.client.Index(coursesIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10))
	return err
}

func (s *meiliSearchService) SearchCourses(query string, gradeLevel uint, limit int) ([]uint, error) {
	req := &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	}
	if gradeLevel > 0 {
		req.Filter = fmt.Sprintf("grade_level = %d", gradeLevel)
	}

	resp, err := s.client.Index(coursesIndex).Search(query, req)
	if err != nil {
		return nil, err
	}

	// hit representation differs between client versions, so go through JSON
	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, err
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(hits))
	for _, hit := range hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
