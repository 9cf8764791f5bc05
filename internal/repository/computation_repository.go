package repository

import (
	"context"

	"zenbridge-backend/internal/models"

	"gorm.io/gorm"
)

// ComputationRepository defines the interface for computation record data access
type ComputationRepository interface {
	Create(ctx context.Context, record *models.ComputationRecord) error
	GetByID(ctx context.Context, id string) (*models.ComputationRecord, error)
	Update(ctx context.Context, record *models.ComputationRecord) error

	FindByStatus(ctx context.Context, status models.ComputationStatus) ([]*models.ComputationRecord, error)
	List(ctx context.Context, page, pageSize int) ([]*models.ComputationRecord, int64, error)
}

// computationRepository implements ComputationRepository
type computationRepository struct {
	db *gorm.DB
}

// NewComputationRepository creates a new ComputationRepository instance
func NewComputationRepository(db *gorm.DB) ComputationRepository {
	return &computationRepository{db: db}
}

// Create creates a new computation record
func (r *computationRepository) Create(ctx context.Context, record *models.ComputationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID retrieves a computation record by computation ID
func (r *computationRepository) GetByID(ctx context.Context, id string) (*models.ComputationRecord, error) {
	var record models.ComputationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update updates a computation record
func (r *computationRepository) Update(ctx context.Context, record *models.ComputationRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// FindByStatus finds computation records by status
func (r *computationRepository) FindByStatus(ctx context.Context, status models.ComputationStatus) ([]*models.ComputationRecord, error) {
	var records []*models.ComputationRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// List retrieves paginated computation records
func (r *computationRepository) List(ctx context.Context, page, pageSize int) ([]*models.ComputationRecord, int64, error) {
	var records []*models.ComputationRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.ComputationRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&records).Error

	return records, total, err
}
