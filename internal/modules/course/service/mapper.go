package service

import (
	"encoding/json"
	"log"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/course/dto"
)

func toCourseResponse(course *entity.Course) dto.CourseResponse {
	res := dto.CourseResponse{
		ID:          course.ID,
		Title:       course.Title,
		Description: course.Description,
		GradeLevel:  course.GradeLevel,
		CreatedAt:   course.CreatedAt,
		UpdatedAt:   course.UpdatedAt,
	}
	for i := range course.Topics {
		res.Topics = append(res.Topics, toTopicResponse(&course.Topics[i], false))
	}
	return res
}

func toCourseResponses(courses []*entity.Course) []dto.CourseResponse {
	data := make([]dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		data = append(data, toCourseResponse(course))
	}
	return data
}

func toTopicResponse(topic *entity.Topic, withAnswers bool) dto.TopicResponse {
	res := dto.TopicResponse{
		ID:        topic.ID,
		CourseID:  topic.CourseID,
		Title:     topic.Title,
		CreatedBy: topic.CreatedBy,
		CreatedAt: topic.CreatedAt,
	}
	for _, task := range topic.Tasks {
		res.Tasks = append(res.Tasks, toTaskResponse(task, withAnswers))
	}
	return res
}

func toTaskResponse(task entity.Task, withAnswers bool) dto.TaskResponse {
	content := map[string]any{}
	if len(task.Content) > 0 {
		if err := json.Unmarshal(task.Content, &content); err != nil {
			log.Printf("Failed to decode content of task %d: %v", task.ID, err)
		}
	}
	if !withAnswers {
		delete(content, AnswerKey)
	}

	return dto.TaskResponse{
		ID:          task.ID,
		TopicID:     task.TopicID,
		Title:       task.Title,
		Description: task.Description,
		TaskType:    task.TaskType,
		Difficulty:  task.Difficulty,
		MaxScore:    task.MaxScore,
		Content:     content,
	}
}
