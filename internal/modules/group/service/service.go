package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anoa.com/mathter/internal/entity"
	accountRepo "anoa.com/mathter/internal/modules/account/repository"
	courseRepo "anoa.com/mathter/internal/modules/course/repository"
	"anoa.com/mathter/internal/modules/group/dto"
	"anoa.com/mathter/internal/modules/group/repository"
	learningRepo "anoa.com/mathter/internal/modules/learning/repository"
	notifDto "anoa.com/mathter/internal/modules/notification/dto"
	notification "anoa.com/mathter/internal/modules/notification/service"
	"anoa.com/mathter/pkg/apperror"
	"gorm.io/gorm"
)

type GroupService interface {
	CreateGroup(ctx context.Context, actor *entity.User, req dto.CreateGroupRequest) (*dto.GroupResponse, error)
	ListMyGroups(ctx context.Context, actor *entity.User) ([]dto.GroupResponse, error)
	GetGroup(ctx context.Context, actor *entity.User, id uint) (*dto.GroupResponse, error)
	AddMember(ctx context.Context, actor *entity.User, groupID uint, req dto.AddMemberRequest) (*dto.GroupResponse, error)
	RemoveMember(ctx context.Context, actor *entity.User, groupID, studentID uint) error

	CreateHomework(ctx context.Context, actor *entity.User, groupID uint, req dto.CreateHomeworkRequest) (*dto.HomeworkResponse, error)
	ListHomework(ctx context.Context, actor *entity.User, groupID uint) ([]dto.HomeworkResponse, error)
	SubmitHomework(ctx context.Context, student *entity.User, homeworkID uint) (*dto.ResultResponse, error)
	ListResults(ctx context.Context, actor *entity.User, homeworkID uint) ([]dto.ResultResponse, error)
}

type groupService struct {
	repo          repository.GroupRepository
	accountRepo   accountRepo.AccountRepository
	courseRepo    courseRepo.CourseRepository
	learningRepo  learningRepo.LearningRepository
	notifications notification.NotificationService
	now           func() time.Time
}

func NewGroupService(
	repo repository.GroupRepository,
	accountRepo accountRepo.AccountRepository,
	courseRepo courseRepo.CourseRepository,
	learningRepo learningRepo.LearningRepository,
	notifications notification.NotificationService,
) GroupService {
	return &groupService{
		repo:          repo,
		accountRepo:   accountRepo,
		courseRepo:    courseRepo,
		learningRepo:  learningRepo,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, actor *entity.User, req dto.CreateGroupRequest) (*dto.GroupResponse, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthorized
	}
	if actor.Role != entity.RoleTeacher {
		return nil, fmt.Errorf("%w: only teachers own study groups", apperror.ErrForbidden)
	}

	group := &entity.StudyGroup{TeacherID: actor.ID, Name: req.Name}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, apperror.FromDB(err)
	}

	res := toGroupResponse(group)
	return &res, nil
}

func (s *groupService) ListMyGroups(ctx context.Context, actor *entity.User) ([]dto.GroupResponse, error) {
	if actor == nil {
		return nil, apperror.ErrUnauthorized
	}

	var (
		groups []*entity.StudyGroup
		err    error
	)
	switch actor.Role {
	case entity.RoleTeacher:
		groups, err = s.repo.FindByTeacher(ctx, actor.ID)
	case entity.RoleStudent:
		groups, err = s.repo.FindByStudent(ctx, actor.ID)
	case entity.RoleAdmin:
		groups = []*entity.StudyGroup{}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", apperror.ErrForbidden, actor.Role)
	}
	if err != nil {
		return nil, err
	}

	data := make([]dto.GroupResponse, 0, len(groups))
	for _, group := range groups {
		data = append(data, toGroupResponse(group))
	}
	return data, nil
}

func (s *groupService) GetGroup(ctx context.Context, actor *entity.User, id uint) (*dto.GroupResponse, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := s.ensureCanView(ctx, actor, group); err != nil {
		return nil, err
	}

	res := toGroupResponse(group)
	return &res, nil
}

func (s *groupService) AddMember(ctx context.Context, actor *entity.User, groupID uint, req dto.AddMemberRequest) (*dto.GroupResponse, error) {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := ensureOwner(actor, group); err != nil {
		return nil, err
	}

	student, err := s.accountRepo.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if student.Role != entity.RoleStudent || !student.IsActive {
		return nil, fmt.Errorf("%w: account %d is not an active student", apperror.ErrInvalidInput, student.ID)
	}

	member, err := s.repo.IsMember(ctx, group.ID, student.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, fmt.Errorf("%w: student is already in the group", apperror.ErrConflict)
	}

	if err := s.repo.AddMember(ctx, &entity.GroupStudent{GroupID: group.ID, StudentID: &student.ID}); err != nil {
		return nil, apperror.FromDB(err)
	}

	return s.GetGroup(ctx, actor, group.ID)
}

func (s *groupService) RemoveMember(ctx context.Context, actor *entity.User, groupID, studentID uint) error {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return apperror.FromDB(err)
	}
	if err := ensureOwner(actor, group); err != nil {
		return err
	}

	return apperror.FromDB(s.repo.RemoveMember(ctx, groupID, studentID))
}

func (s *groupService) CreateHomework(ctx context.Context, actor *entity.User, groupID uint, req dto.CreateHomeworkRequest) (*dto.HomeworkResponse, error) {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := ensureOwner(actor, group); err != nil {
		return nil, err
	}

	if !req.DueDate.After(s.now()) {
		return nil, fmt.Errorf("%w: due date must be in the future", apperror.ErrInvalidInput)
	}

	topic, err := s.courseRepo.FindTopicByID(ctx, req.TopicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: topic %d does not exist", apperror.ErrInvalidInput, req.TopicID)
		}
		return nil, err
	}

	tasks, err := s.courseRepo.FindTasksByIDs(ctx, uniqueIDs(req.TaskIDs))
	if err != nil {
		return nil, err
	}
	if len(tasks) != len(uniqueIDs(req.TaskIDs)) {
		return nil, fmt.Errorf("%w: unknown task in homework", apperror.ErrInvalidInput)
	}
	for _, task := range tasks {
		if task.TopicID != topic.ID {
			return nil, fmt.Errorf("%w: task %d is not part of topic %d", apperror.ErrInvalidInput, task.ID, topic.ID)
		}
	}

	homework := &entity.Homework{
		GroupID: group.ID,
		TopicID: topic.ID,
		Tasks:   tasks,
		DueDate: req.DueDate,
	}
	if err := s.repo.CreateHomework(ctx, homework); err != nil {
		return nil, apperror.FromDB(err)
	}

	s.notifyMembers(ctx, group, homework, topic)

	res := toHomeworkResponse(homework)
	return &res, nil
}

func (s *groupService) notifyMembers(ctx context.Context, group *entity.StudyGroup, homework *entity.Homework, topic *entity.Topic) {
	if s.notifications == nil {
		return
	}

	ids, err := s.repo.MemberIDs(ctx, group.ID)
	if err != nil {
		log.Printf("Failed to load members of group %d: %v", group.ID, err)
		return
	}

	messages := make([]notifDto.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, notifDto.Message{
			UserID:     id,
			Type:       entity.NotificationHomeworkAssigned,
			EntityType: "homework",
			EntityID:   homework.ID,
			Text:       fmt.Sprintf("New homework in %s: %s, due %s", group.Name, topic.Title, homework.DueDate.Format("2006-01-02 15:04")),
		})
	}

	if err := s.notifications.Notify(ctx, messages...); err != nil {
		log.Printf("Failed to notify group %d about homework %d: %v", group.ID, homework.ID, err)
	}
}

func (s *groupService) ListHomework(ctx context.Context, actor *entity.User, groupID uint) ([]dto.HomeworkResponse, error) {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := s.ensureCanView(ctx, actor, group); err != nil {
		return nil, err
	}

	homework, err := s.repo.FindHomeworkByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	data := make([]dto.HomeworkResponse, 0, len(homework))
	for _, hw := range homework {
		data = append(data, toHomeworkResponse(hw))
	}
	return data, nil
}

func (s *groupService) SubmitHomework(ctx context.Context, student *entity.User, homeworkID uint) (*dto.ResultResponse, error) {
	if student == nil {
		return nil, apperror.ErrUnauthorized
	}
	if student.Role != entity.RoleStudent {
		return nil, fmt.Errorf("%w: only students submit homework", apperror.ErrForbidden)
	}

	homework, err := s.repo.FindHomeworkByID(ctx, homeworkID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}

	member, err := s.repo.IsMember(ctx, homework.GroupID, student.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: homework belongs to another group", apperror.ErrForbidden)
	}

	taskIDs := make([]uint, 0, len(homework.Tasks))
	var maxScore uint
	for _, task := range homework.Tasks {
		taskIDs = append(taskIDs, task.ID)
		maxScore += task.MaxScore
	}

	best, err := s.learningRepo.BestScores(ctx, student.ID, taskIDs)
	if err != nil {
		return nil, err
	}

	var total uint
	for _, id := range taskIDs {
		total += best[id]
	}

	now := s.now()
	result := &entity.HomeworkResult{
		HomeworkID:  homework.ID,
		StudentID:   &student.ID,
		TotalScore:  total,
		Completed:   true,
		CompletedAt: &now,
	}
	if err := s.repo.UpsertResult(ctx, result); err != nil {
		return nil, apperror.FromDB(err)
	}

	result.Student = student
	res := toResultResponse(result, maxScore)
	return &res, nil
}

func (s *groupService) ListResults(ctx context.Context, actor *entity.User, homeworkID uint) ([]dto.ResultResponse, error) {
	homework, err := s.repo.FindHomeworkByID(ctx, homeworkID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := ensureOwner(actor, homework.Group); err != nil {
		return nil, err
	}

	var maxScore uint
	for _, task := range homework.Tasks {
		maxScore += task.MaxScore
	}

	results, err := s.repo.FindResults(ctx, homeworkID)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ResultResponse, 0, len(results))
	for _, result := range results {
		data = append(data, toResultResponse(result, maxScore))
	}
	return data, nil
}

// ensureOwner lets the owning teacher and admins manage a group.
func ensureOwner(actor *entity.User, group *entity.StudyGroup) error {
	if actor == nil {
		return apperror.ErrUnauthorized
	}
	if group == nil {
		return apperror.ErrNotFound
	}

	switch actor.Role {
	case entity.RoleAdmin:
		return nil
	case entity.RoleTeacher:
		if group.TeacherID == actor.ID {
			return nil
		}
		return fmt.Errorf("%w: group belongs to another teacher", apperror.ErrForbidden)
	case entity.RoleStudent:
		return fmt.Errorf("%w: students cannot manage groups", apperror.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", apperror.ErrForbidden, actor.Role)
	}
}

func (s *groupService) ensureCanView(ctx context.Context, actor *entity.User, group *entity.StudyGroup) error {
	if actor == nil {
		return apperror.ErrUnauthorized
	}
	if actor.Role != entity.RoleStudent {
		return ensureOwner(actor, group)
	}

	member, err := s.repo.IsMember(ctx, group.ID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: not a member of this group", apperror.ErrForbidden)
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toGroupResponse(group *entity.StudyGroup) dto.GroupResponse {
	res := dto.GroupResponse{
		ID:        group.ID,
		TeacherID: group.TeacherID,
		Name:      group.Name,
		CreatedAt: group.CreatedAt,
	}
	for _, member := range group.Students {
		res.Members = append(res.Members, dto.MemberResponse{
			StudentID: member.StudentID,
			Name:      entity.DisplayName(member.Student, member.DeletedStudentName),
			JoinedAt:  member.JoinedAt,
		})
	}
	return res
}

func toHomeworkResponse(homework *entity.Homework) dto.HomeworkResponse {
	ids := make([]uint, 0, len(homework.Tasks))
	for _, task := range homework.Tasks {
		ids = append(ids, task.ID)
	}
	return dto.HomeworkResponse{
		ID:        homework.ID,
		GroupID:   homework.GroupID,
		TopicID:   homework.TopicID,
		TaskIDs:   ids,
		DueDate:   homework.DueDate,
		CreatedAt: homework.CreatedAt,
	}
}

func toResultResponse(result *entity.HomeworkResult, maxScore uint) dto.ResultResponse {
	return dto.ResultResponse{
		HomeworkID:  result.HomeworkID,
		StudentID:   result.StudentID,
		Student:     entity.DisplayName(result.Student, result.DeletedStudentName),
		TotalScore:  result.TotalScore,
		MaxScore:    maxScore,
		Completed:   result.Completed,
		CompletedAt: result.CompletedAt,
	}
}
