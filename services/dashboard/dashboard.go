// Package dashboard computes the per-role summary counters shown on each
// role's landing page.
package dashboard

import (
	"context"
	"time"

	"govdocs/apperror"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/services/applications"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

type CategoryCount struct {
	CategoryID uint   `json:"category_id"`
	Name       string `json:"name"`
	Count      int64  `json:"count"`
}

type Stats struct {
	Role              identity.Role                      `json:"role"`
	Customers         int64                              `json:"customers,omitempty"`
	Distributors      int64                              `json:"distributors,omitempty"`
	Categories        int64                              `json:"categories,omitempty"`
	Subcategories     int64                              `json:"subcategories,omitempty"`
	Applications      int64                              `json:"applications"`
	ThisMonth         int64                              `json:"this_month"`
	CompletedThisWeek int64                              `json:"completed_this_week"`
	ByStatus          map[models.ApplicationStatus]int64 `json:"by_status"`
	ByCategory        []CategoryCount                    `json:"by_category"`
	OpenErrorRequests int64                              `json:"open_error_requests"`
}

// Stats scopes every counter to what actor may see. For customers and
// distributors ThisMonth counts completions; for admins, submissions.
func (s *Service) Stats(ctx context.Context, actor identity.Identity) (*Stats, error) {
	db := s.db.WithContext(ctx)
	var scope func(*gorm.DB) *gorm.DB
	var requestScope func(*gorm.DB) *gorm.DB
	switch actor.Role {
	case identity.Admin:
	case identity.Customer:
		scope = func(q *gorm.DB) *gorm.DB { return q.Where("applications.owner_id = ?", actor.UserID) }
		requestScope = func(q *gorm.DB) *gorm.DB { return q.Where("raised_by = ?", actor.UserID) }
	case identity.Distributor:
		scope = func(q *gorm.DB) *gorm.DB { return q.Where("applications.distributor_id = ?", actor.UserID) }
		requestScope = func(q *gorm.DB) *gorm.DB { return q.Where("distributor_id = ?", actor.UserID) }
	default:
		return nil, apperror.Forbidden("unknown role")
	}
	apps := func() *gorm.DB {
		q := db.Model(&models.Application{})
		if scope != nil {
			q = scope(q)
		}
		return q
	}

	st := &Stats{Role: actor.Role}
	var err error
	if st.ByStatus, err = applications.StatusCounts(db, scope); err != nil {
		return nil, err
	}
	for _, n := range st.ByStatus {
		st.Applications += n
	}

	t := now.With(s.clock())
	month := apps().Where("applications.created_at >= ? AND applications.created_at <= ?", t.BeginningOfMonth(), t.EndOfMonth())
	if actor.Role != identity.Admin {
		month = apps().
			Where("applications.status = ?", models.StatusCompleted).
			Where("applications.updated_at >= ? AND applications.updated_at <= ?", t.BeginningOfMonth(), t.EndOfMonth())
	}
	if err := month.Count(&st.ThisMonth).Error; err != nil {
		return nil, err
	}
	if err := apps().
		Where("applications.status = ?", models.StatusCompleted).
		Where("applications.updated_at >= ?", t.BeginningOfWeek()).
		Count(&st.CompletedThisWeek).Error; err != nil {
		return nil, err
	}

	if err := apps().
		Select("applications.category_id, categories.name, count(*) as count").
		Joins("LEFT JOIN categories ON categories.id = applications.category_id").
		Group("applications.category_id, categories.name").
		Order("count desc").
		Scan(&st.ByCategory).Error; err != nil {
		return nil, err
	}

	rq := db.Model(&models.ErrorRequest{}).Where("status IN ?", []models.ErrorRequestStatus{
		models.ErrorRequestPending, models.ErrorRequestApproved, models.ErrorRequestUploaded,
	})
	if requestScope != nil {
		rq = requestScope(rq)
	}
	if err := rq.Count(&st.OpenErrorRequests).Error; err != nil {
		return nil, err
	}

	if actor.Role == identity.Admin {
		counts := []struct {
			dest *int64
			q    *gorm.DB
		}{
			{&st.Customers, db.Model(&models.User{}).Where("role = ?", identity.Customer)},
			{&st.Distributors, db.Model(&models.User{}).Where("role = ?", identity.Distributor)},
			{&st.Categories, db.Model(&models.Category{})},
			{&st.Subcategories, db.Model(&models.Subcategory{})},
		}
		for _, c := range counts {
			if err := c.q.Count(c.dest).Error; err != nil {
				return nil, err
			}
		}
	}
	return st, nil
}
