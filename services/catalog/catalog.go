// Package catalog manages categories, subcategories and the document and
// field requirements attached to each pair.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"govdocs/apperror"
	"govdocs/cache"
	"govdocs/identity"
	"govdocs/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const cacheTTL = 10 * time.Minute

const (
	keyCategories      = "catalog:categories"
	keySubcategories   = "catalog:subcategories:all"
	keyRequirementsAll = "catalog:requirements:all"
)

func keySubcategoriesOf(categoryID uint) string {
	return fmt.Sprintf("catalog:subcategories:%d", categoryID)
}

func keyRequirements(categoryID, subcategoryID uint) string {
	return fmt.Sprintf("catalog:requirements:%d:%d", categoryID, subcategoryID)
}

type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *logrus.Entry
}

func NewService(db *gorm.DB, c cache.Cache, log *logrus.Logger) *Service {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Service{db: db, cache: c, logger: log.WithField("component", "catalog")}
}

// Requirements is the pair of label lists an application must satisfy.
type Requirements struct {
	CategoryID      uint     `json:"category_id"`
	CategoryName    string   `json:"category_name"`
	SubcategoryID   uint     `json:"subcategory_id"`
	SubcategoryName string   `json:"subcategory_name"`
	Documents       []string `json:"documents"`
	Fields          []string `json:"fields"`
}

func requireAdmin(actor identity.Identity) error {
	if !identity.CanManageCatalog(actor) {
		return apperror.Forbidden("only admins can change the catalog")
	}
	return nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.Validation(map[string]string{"name": "Name is required!"})
	}
	return name, nil
}

// CleanLabels trims labels and rejects blanks and case-insensitive duplicates.
func CleanLabels(labels []string) ([]string, error) {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	fields := map[string]string{}
	for i, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			fields[fmt.Sprintf("labels[%d]", i)] = "Label cannot be empty"
			continue
		}
		k := strings.ToLower(l)
		if seen[k] {
			fields[fmt.Sprintf("labels[%d]", i)] = fmt.Sprintf("Duplicate label %q", l)
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate catalog cache")
	}
}

func (s *Service) remember(ctx context.Context, key string, value interface{}) {
	if err := cache.SetJSON(ctx, s.cache, key, value, cacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Debug("Failed to cache catalog read")
	}
}

// ---- categories ----

func (s *Service) categoryNameTaken(db *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *Service) CreateCategory(ctx context.Context, actor identity.Identity, name string) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	taken, err := s.categoryNameTaken(db, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.DuplicateName("category", name)
	}

	c := models.Category{Name: name}
	if err := db.Create(&c).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyCategories)
	s.logger.WithFields(logrus.Fields{"category_id": c.ID, "name": name}).Info("Category created")
	return &c, nil
}

func (s *Service) RenameCategory(ctx context.Context, actor identity.Identity, id uint, name string) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	c, err := s.category(db, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.categoryNameTaken(db, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.DuplicateName("category", name)
	}
	if err := db.Model(c).Update("name", name).Error; err != nil {
		return nil, err
	}
	c.Name = name

	// Cached requirements carry the category name.
	var subIDs []uint
	if err := db.Model(&models.Subcategory{}).Where("category_id = ?", id).Pluck("id", &subIDs).Error; err != nil {
		s.logger.WithError(err).WithField("category_id", id).Warn("Failed to list subcategories for cache invalidation")
	}
	keys := []string{keyCategories, keySubcategories, keySubcategoriesOf(id), keyRequirementsAll}
	for _, sid := range subIDs {
		keys = append(keys, keyRequirements(id, sid))
	}
	s.invalidate(ctx, keys...)
	return c, nil
}

// DeleteCategory refuses while any application references the category;
// otherwise its subcategories and requirement sets go with it.
func (s *Service) DeleteCategory(ctx context.Context, actor identity.Identity, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var subIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.category(tx, id); err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.Application{}).Where("category_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return apperror.InUse(fmt.Sprintf("category is used by %d applications", refs))
		}
		if err := tx.Model(&models.Subcategory{}).Where("category_id = ?", id).Pluck("id", &subIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.RequiredDocumentSet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.RequiredFieldSet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Subcategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
	if err != nil {
		return err
	}

	keys := []string{keyCategories, keySubcategories, keySubcategoriesOf(id), keyRequirementsAll}
	for _, sid := range subIDs {
		keys = append(keys, keyRequirements(id, sid))
	}
	s.invalidate(ctx, keys...)
	s.logger.WithFields(logrus.Fields{"category_id": id, "subcategories": len(subIDs)}).Info("Category deleted")
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	if ok, _ := cache.GetJSON(ctx, s.cache, keyCategories, &list); ok {
		return list, nil
	}
	if err := s.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	s.remember(ctx, keyCategories, list)
	return list, nil
}

func (s *Service) category(db *gorm.DB, id uint) (*models.Category, error) {
	var c models.Category
	if err := db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("category")
		}
		return nil, err
	}
	return &c, nil
}

// ---- subcategories ----

func (s *Service) subcategoryNameTaken(db *gorm.DB, categoryID uint, name string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&models.Subcategory{}).
		Where("category_id = ? AND LOWER(name) = ?", categoryID, strings.ToLower(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *Service) CreateSubcategory(ctx context.Context, actor identity.Identity, categoryID uint, name string) (*models.Subcategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if _, err := s.category(db, categoryID); err != nil {
		return nil, err
	}
	taken, err := s.subcategoryNameTaken(db, categoryID, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.DuplicateName("subcategory", name)
	}

	sc := models.Subcategory{CategoryID: categoryID, Name: name}
	if err := db.Create(&sc).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, keySubcategories, keySubcategoriesOf(categoryID))
	return &sc, nil
}

func (s *Service) RenameSubcategory(ctx context.Context, actor identity.Identity, id uint, name string) (*models.Subcategory, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	sc, err := s.subcategory(db, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.subcategoryNameTaken(db, sc.CategoryID, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.DuplicateName("subcategory", name)
	}
	if err := db.Model(sc).Update("name", name).Error; err != nil {
		return nil, err
	}
	sc.Name = name
	s.invalidate(ctx, keySubcategories, keySubcategoriesOf(sc.CategoryID), keyRequirements(sc.CategoryID, id), keyRequirementsAll)
	return sc, nil
}

func (s *Service) DeleteSubcategory(ctx context.Context, actor identity.Identity, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var categoryID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc, err := s.subcategory(tx, id)
		if err != nil {
			return err
		}
		categoryID = sc.CategoryID
		var refs int64
		if err := tx.Model(&models.Application{}).Where("subcategory_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return apperror.InUse(fmt.Sprintf("subcategory is used by %d applications", refs))
		}
		if err := tx.Where("subcategory_id = ?", id).Delete(&models.RequiredDocumentSet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subcategory_id = ?", id).Delete(&models.RequiredFieldSet{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Subcategory{}, id).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, keySubcategories, keySubcategoriesOf(categoryID), keyRequirements(categoryID, id), keyRequirementsAll)
	return nil
}

// ListSubcategories lists every subcategory, or only those of categoryID when non-zero.
func (s *Service) ListSubcategories(ctx context.Context, categoryID uint) ([]models.Subcategory, error) {
	key := keySubcategories
	if categoryID != 0 {
		key = keySubcategoriesOf(categoryID)
	}
	var list []models.Subcategory
	if ok, _ := cache.GetJSON(ctx, s.cache, key, &list); ok {
		return list, nil
	}

	db := s.db.WithContext(ctx)
	q := db.Preload("Category").Order("name asc")
	if categoryID != 0 {
		if _, err := s.category(db, categoryID); err != nil {
			return nil, err
		}
		q = q.Where("category_id = ?", categoryID)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	s.remember(ctx, key, list)
	return list, nil
}

func (s *Service) subcategory(db *gorm.DB, id uint) (*models.Subcategory, error) {
	var sc models.Subcategory
	if err := db.First(&sc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("subcategory")
		}
		return nil, err
	}
	return &sc, nil
}

// Pair loads a category and one of its subcategories. A subcategory of a
// different category is reported as not found.
func (s *Service) Pair(db *gorm.DB, categoryID, subcategoryID uint) (*models.Category, *models.Subcategory, error) {
	c, err := s.category(db, categoryID)
	if err != nil {
		return nil, nil, err
	}
	sc, err := s.subcategory(db, subcategoryID)
	if err != nil {
		return nil, nil, err
	}
	if sc.CategoryID != categoryID {
		return nil, nil, apperror.NotFound("subcategory in this category")
	}
	return c, sc, nil
}

// ---- requirements ----

// DefineRequiredDocuments replaces the full document label list for the pair.
func (s *Service) DefineRequiredDocuments(ctx context.Context, actor identity.Identity, categoryID, subcategoryID uint, labels []string) (*Requirements, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	clean, err := CleanLabels(labels)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := s.Pair(tx, categoryID, subcategoryID); err != nil {
			return err
		}
		var set models.RequiredDocumentSet
		err := tx.Where("category_id = ? AND subcategory_id = ?", categoryID, subcategoryID).First(&set).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			set = models.RequiredDocumentSet{CategoryID: categoryID, SubcategoryID: subcategoryID}
		} else if err != nil {
			return err
		}
		set.Labels = datatypes.NewJSONType(clean)
		return tx.Save(&set).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyRequirements(categoryID, subcategoryID), keyRequirementsAll)
	return s.Requirements(ctx, categoryID, subcategoryID)
}

// DefineRequiredFields replaces the full field label list for the pair.
func (s *Service) DefineRequiredFields(ctx context.Context, actor identity.Identity, categoryID, subcategoryID uint, labels []string) (*Requirements, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	clean, err := CleanLabels(labels)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := s.Pair(tx, categoryID, subcategoryID); err != nil {
			return err
		}
		var set models.RequiredFieldSet
		err := tx.Where("category_id = ? AND subcategory_id = ?", categoryID, subcategoryID).First(&set).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			set = models.RequiredFieldSet{CategoryID: categoryID, SubcategoryID: subcategoryID}
		} else if err != nil {
			return err
		}
		set.Labels = datatypes.NewJSONType(clean)
		return tx.Save(&set).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyRequirements(categoryID, subcategoryID), keyRequirementsAll)
	return s.Requirements(ctx, categoryID, subcategoryID)
}

// Requirements returns the active requirement lists for a pair. Pairs with
// nothing defined require nothing.
func (s *Service) Requirements(ctx context.Context, categoryID, subcategoryID uint) (*Requirements, error) {
	key := keyRequirements(categoryID, subcategoryID)
	var r Requirements
	if ok, _ := cache.GetJSON(ctx, s.cache, key, &r); ok {
		return &r, nil
	}
	got, err := s.RequirementsTx(s.db.WithContext(ctx), categoryID, subcategoryID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, got)
	return got, nil
}

// RequirementsTx reads requirements on db without the cache, for callers
// already inside a transaction.
func (s *Service) RequirementsTx(db *gorm.DB, categoryID, subcategoryID uint) (*Requirements, error) {
	c, sc, err := s.Pair(db, categoryID, subcategoryID)
	if err != nil {
		return nil, err
	}
	r := Requirements{
		CategoryID:      c.ID,
		CategoryName:    c.Name,
		SubcategoryID:   sc.ID,
		SubcategoryName: sc.Name,
		Documents:       []string{},
		Fields:          []string{},
	}

	var docs models.RequiredDocumentSet
	err = db.Where("category_id = ? AND subcategory_id = ?", categoryID, subcategoryID).First(&docs).Error
	if err == nil && docs.Labels.Data() != nil {
		r.Documents = docs.Labels.Data()
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var fields models.RequiredFieldSet
	err = db.Where("category_id = ? AND subcategory_id = ?", categoryID, subcategoryID).First(&fields).Error
	if err == nil && fields.Labels.Data() != nil {
		r.Fields = fields.Labels.Data()
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &r, nil
}

// ListRequirements returns every pair that has at least one requirement list.
func (s *Service) ListRequirements(ctx context.Context) ([]Requirements, error) {
	var out []Requirements
	if ok, _ := cache.GetJSON(ctx, s.cache, keyRequirementsAll, &out); ok {
		return out, nil
	}

	db := s.db.WithContext(ctx)
	type pair struct{ CategoryID, SubcategoryID uint }
	var docPairs, fieldPairs []pair
	if err := db.Model(&models.RequiredDocumentSet{}).Select("category_id, subcategory_id").Scan(&docPairs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.RequiredFieldSet{}).Select("category_id, subcategory_id").Scan(&fieldPairs).Error; err != nil {
		return nil, err
	}

	seen := map[pair]bool{}
	out = []Requirements{}
	for _, p := range append(docPairs, fieldPairs...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		r, err := s.RequirementsTx(db, p.CategoryID, p.SubcategoryID)
		if apperror.Is(err, apperror.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	s.remember(ctx, keyRequirementsAll, out)
	return out, nil
}
