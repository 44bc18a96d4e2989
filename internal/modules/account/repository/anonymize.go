package repository

import (
	"context"
	"fmt"
	"time"

	"anoa.com/mathter/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnonymizeResult struct {
	AccountID         uint
	Username          string
	AlreadyAnonymized bool
	// Rewritten counts the rows touched per dependent table.
	Rewritten map[string]int64
	// AvatarURL is the image the account referenced before it was scrubbed.
	AvatarURL *string
}

type trailPolicy int

const (
	// freezeName stores the display name and clears the reference.
	freezeName trailPolicy = iota
	// severLink clears the reference and keeps no name.
	severLink
	// tagName stores the display name and keeps the reference.
	tagName
	purge
)

type trail struct {
	table  string
	model  func() any
	column string
	policy trailPolicy
}

var studentTrails = []trail{
	{table: "task_attempts", model: func() any { return &entity.TaskAttempt{} }, column: "student_id", policy: freezeName},
	{table: "homework_results", model: func() any { return &entity.HomeworkResult{} }, column: "student_id", policy: freezeName},
	{table: "ai_recommendations", model: func() any { return &entity.AiRecommendation{} }, column: "student_id", policy: freezeName},
	{table: "student_progress", model: func() any { return &entity.StudentProgress{} }, column: "student_id", policy: freezeName},
	{table: "group_students", model: func() any { return &entity.GroupStudent{} }, column: "student_id", policy: freezeName},
	{table: "ai_dialogs", model: func() any { return &entity.AiDialog{} }, column: "student_id", policy: severLink},
	{table: "ai_free_chat_sessions", model: func() any { return &entity.AiFreeChatSession{} }, column: "student_id", policy: severLink},
	{table: "students", model: func() any { return &entity.Student{} }, column: "user_id", policy: tagName},
}

var teacherTrails = []trail{
	{table: "topics", model: func() any { return &entity.Topic{} }, column: "created_by", policy: severLink},
}

var accountTrails = []trail{
	{table: "notifications", model: func() any { return &entity.Notification{} }, column: "user_id", policy: purge},
}

func trailsFor(role entity.Role) ([]trail, error) {
	switch role {
	case entity.RoleStudent:
		return append(append([]trail{}, studentTrails...), accountTrails...), nil
	case entity.RoleTeacher:
		return append(append([]trail{}, teacherTrails...), accountTrails...), nil
	case entity.RoleAdmin:
		return accountTrails, nil
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
}

func (t trail) apply(tx *gorm.DB, accountID uint, name string) (int64, error) {
	query := tx.Model(t.model()).Where(t.column+" = ?", accountID)

	var result *gorm.DB
	switch t.policy {
	case freezeName:
		result = query.UpdateColumns(map[string]any{
			"deleted_student_name": name,
			t.column:               nil,
		})
	case severLink:
		result = query.UpdateColumn(t.column, nil)
	case tagName:
		result = query.UpdateColumn("deleted_student_name", name)
	case purge:
		result = tx.Where(t.column+" = ?", accountID).Delete(t.model())
	default:
		return 0, fmt.Errorf("unknown trail policy %d", t.policy)
	}

	if result.Error != nil {
		return 0, fmt.Errorf("rewrite %s: %w", t.table, result.Error)
	}
	return result.RowsAffected, nil
}

// Anonymize scrubs the account and rewrites every row that references it.
// The account row stays locked until the transaction ends so concurrent calls
// run one after another and the second one sees anonymized_at already set.
func (r *accountRepository) Anonymize(ctx context.Context, id uint, at time.Time) (*AnonymizeResult, error) {
	var result *AnonymizeResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account entity.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, id).Error; err != nil {
			return err
		}

		result = &AnonymizeResult{
			AccountID: account.ID,
			Username:  account.Username,
			Rewritten: map[string]int64{},
		}

		if account.IsAnonymized() {
			result.AlreadyAnonymized = true
			return nil
		}

		trails, err := trailsFor(account.Role)
		if err != nil {
			return err
		}

		name := account.Username
		avatar := account.AvatarURL
		for _, t := range trails {
			n, err := t.apply(tx, account.ID, name)
			if err != nil {
				return err
			}
			result.Rewritten[t.table] = n
		}

		placeholder := entity.DeletedUsername(account.ID)
		if err := tx.Model(&account).UpdateColumns(map[string]any{
			"username":      placeholder,
			"email":         nil,
			"password_hash": nil,
			"avatar_url":    nil,
			"is_active":     false,
			"anonymized_at": at,
		}).Error; err != nil {
			return err
		}

		result.Username = placeholder
		result.AvatarURL = avatar
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
