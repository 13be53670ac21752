package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/hireloop-api/internal/models"
)

// InterviewRepository defines data operations for interviews.
type InterviewRepository interface {
	Create(ctx context.Context, interview *models.Interview) error
	GetByID(ctx context.Context, id uint) (models.Interview, error)
	GetBySubmissionID(ctx context.Context, submissionID uint) (models.Interview, error)
	Update(ctx context.Context, interview *models.Interview) error
}

type interviewRepository struct {
	db *gorm.DB
}

// NewInterviewRepository instantiates the repository.
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

func (r *interviewRepository) Create(ctx context.Context, interview *models.Interview) error {
	return r.db.WithContext(ctx).Create(interview).Error
}

func (r *interviewRepository) GetByID(ctx context.Context, id uint) (models.Interview, error) {
	var interview models.Interview
	if err := r.db.WithContext(ctx).First(&interview, id).Error; err != nil {
		return models.Interview{}, err
	}

	return interview, nil
}

func (r *interviewRepository) GetBySubmissionID(ctx context.Context, submissionID uint) (models.Interview, error) {
	var interview models.Interview
	if err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&interview).Error; err != nil {
		return models.Interview{}, err
	}

	return interview, nil
}

func (r *interviewRepository) Update(ctx context.Context, interview *models.Interview) error {
	return r.db.WithContext(ctx).Save(interview).Error
}
