// internal/services/category_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/database"
	"github.com/marketua/marketplace-backend/internal/models"
	"github.com/marketua/marketplace-backend/internal/utils"
)

// MaxCategoryDepth bounds tree loading and serialization.
const MaxCategoryDepth = 32

type CategoryNode struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	SubCategories []*CategoryNode `json:"sub_categories"`
}

type CategoryOption struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	ParentID *uint  `json:"parent"`
}

type UpdateCategoryRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	ParentID *uint   `json:"parent"`
	// DetachParent turns the category into a root.
	DetachParent bool `json:"detach_parent"`
}

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

type categoryRow struct {
	ID       uint
	Name     string
	ParentID *uint
	Depth    int
}

// loadForest fetches the subtrees under rootIDs with one recursive query and
// links them in memory.
func (s *CategoryService) loadForest(ctx context.Context, rootIDs []uint) (map[uint]*CategoryNode, error) {
	nodes := make(map[uint]*CategoryNode, len(rootIDs))
	if len(rootIDs) == 0 {
		return nodes, nil
	}

	var rows []categoryRow
	err := s.db.WithContext(ctx).Raw(`
		WITH RECURSIVE subtree AS (
			SELECT id, name, parent_id, 0 AS depth FROM categories WHERE id IN ?
			UNION ALL
			SELECT c.id, c.name, c.parent_id, s.depth + 1
			FROM categories c JOIN subtree s ON c.parent_id = s.id
			WHERE s.depth < ?
		)
		SELECT id, name, parent_id, depth FROM subtree ORDER BY depth, name`,
		rootIDs, MaxCategoryDepth).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	for _, row := range rows {
		if _, seen := nodes[row.ID]; seen {
			continue
		}
		nodes[row.ID] = &CategoryNode{ID: row.ID, Name: row.Name, SubCategories: []*CategoryNode{}}
	}
	// Rows come ordered by depth then name, so children are appended in name order.
	for _, row := range rows {
		if row.Depth == 0 || row.ParentID == nil {
			continue
		}
		parent, ok := nodes[*row.ParentID]
		child := nodes[row.ID]
		if ok && child != nil && !containsNode(parent.SubCategories, child) {
			parent.SubCategories = append(parent.SubCategories, child)
		}
	}
	return nodes, nil
}

func containsNode(list []*CategoryNode, node *CategoryNode) bool {
	for _, n := range list {
		if n == node {
			return true
		}
	}
	return false
}

// ListRoots returns a page of root categories in name order, each with its
// whole subtree.
func (s *CategoryService) ListRoots(ctx context.Context, params utils.PaginationParams) ([]*CategoryNode, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{}).Where("parent_id IS NULL")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	var rootIDs []uint
	if err := utils.ApplyPagination(query.Order("name"), params).Pluck("id", &rootIDs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}

	nodes, err := s.loadForest(ctx, rootIDs)
	if err != nil {
		return nil, 0, err
	}

	roots := make([]*CategoryNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		if node, ok := nodes[id]; ok {
			roots = append(roots, node)
		}
	}
	return roots, total, nil
}

// ListLeaves returns categories without children, for select widgets.
func (s *CategoryService) ListLeaves(ctx context.Context, params utils.PaginationParams) ([]CategoryOption, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("NOT EXISTS (SELECT 1 FROM categories ch WHERE ch.parent_id = categories.id)")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	var leaves []CategoryOption
	if err := utils.ApplyPagination(query.Select("id", "name").Order("name"), params).Scan(&leaves).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	return leaves, total, nil
}

func (s *CategoryService) Retrieve(ctx context.Context, id uint) (*CategoryNode, error) {
	nodes, err := s.loadForest(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	node, ok := nodes[id]
	if !ok {
		return nil, apperror.NotFound()
	}
	return node, nil
}

func (s *CategoryService) Create(ctx context.Context, req *CreateCategoryRequest) (*CategoryNode, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	category := &models.Category{Name: req.Name, ParentID: req.ParentID}
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if req.ParentID != nil {
			if err := categoryExists(tx, *req.ParentID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return categoryNameTaken()
			}
			return fmt.Errorf("failed to create category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("category_id", category.ID).Info("Category created")
	return s.Retrieve(ctx, category.ID)
}

// Update renames or moves a category. Moving a category under one of its
// own descendants is refused.
func (s *CategoryService) Update(ctx context.Context, id uint, req *UpdateCategoryRequest) (*CategoryNode, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return err
		}

		if req.Name != nil {
			category.Name = *req.Name
		}
		switch {
		case req.DetachParent:
			category.ParentID = nil
		case req.ParentID != nil:
			if err := categoryExists(tx, *req.ParentID); err != nil {
				return err
			}
			if err := ensureNoCycle(tx, category.ID, *req.ParentID); err != nil {
				return err
			}
			category.ParentID = req.ParentID
		}

		if err := tx.Omit(clause.Associations).Save(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return categoryNameTaken()
			}
			return fmt.Errorf("failed to update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, id)
}

// Delete removes a category no advert uses. Its children become roots.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return err
		}

		var used int64
		if err := tx.Model(&models.Advert{}).Where("category_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return apperror.New(apperror.KindConflict, apperror.CodeProtected,
				fmt.Sprintf("Cannot delete category %q because %d advert(s) reference it.", category.Name, used))
		}

		if err := tx.Model(&models.Category{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		return err
	}

	logrus.WithField("category_id", id).Info("Category deleted")
	return nil
}

func categoryNameTaken() *apperror.Error {
	return apperror.New(apperror.KindConflict, apperror.CodeUnique, "Category with this name already exists.")
}

func categoryExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.Field(apperror.CodeDoesNotExist,
			fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id), "parent")
	}
	return nil
}

// ensureNoCycle walks up from parentID to a root and fails if it reaches id.
// The walk is not depth bounded; a repeated node also fails.
func ensureNoCycle(tx *gorm.DB, id, parentID uint) error {
	seen := make(map[uint]struct{})
	for current := &parentID; current != nil; {
		if *current == id {
			return apperror.Field(apperror.CodeInvalid, "A category cannot be its own ancestor.", "parent")
		}
		if _, ok := seen[*current]; ok {
			return apperror.Field(apperror.CodeInvalid, "Parent chain contains a cycle.", "parent")
		}
		seen[*current] = struct{}{}

		var parent models.Category
		if err := tx.Select("id", "parent_id").First(&parent, *current).Error; err != nil {
			return err
		}
		current = parent.ParentID
	}
	return nil
}
