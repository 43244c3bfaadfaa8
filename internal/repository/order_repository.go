package repository

import (
	"sales_sync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByCustomerID(customerID string) ([]models.Order, error)
	GetByBatch(batch string) ([]models.Order, error)
	UpsertMany(orders []models.Order) error
	Delete(ids ...string) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Find(&orders).Error
	return orders, err
}

func (r *orderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByCustomerID(customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("customer_id = ?", customerID).Order("created_at desc").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) GetByBatch(batch string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("batch = ?", batch).Order("created_at").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) UpsertMany(orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&orders).Error
}

func (r *orderRepository) Delete(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Delete(&models.Order{}, "id IN ?", ids).Error
}
