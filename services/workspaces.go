package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scholarlens/models"
)

type WorkspaceUpdate struct {
	WorkspaceName *string `json:"workspace_name"`
	Description   *string `json:"description"`
	IsPublic      *bool   `json:"is_public"`
}

type WorkspacePaperUpdate struct {
	Notes  *string   `json:"notes"`
	Tags   *[]string `json:"tags"`
	Rating *int      `json:"rating"`
}

func validateRating(r *int) error {
	if r != nil && (*r < 1 || *r > 5) {
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}

func checkWorkspaceNameFree(tx *gorm.DB, userID, name string, exceptID uint) error {
	var n int64
	q := tx.Model(&models.UserWorkspace{}).Where("user_id = ? AND workspace_name = ?", userID, name)
	if exceptID != 0 {
		q = q.Where("workspace_id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return translateError(err, "workspace")
	}
	if n > 0 {
		return conflictf("workspace %q already exists for user %s", name, userID)
	}
	return nil
}

// CreateWorkspace inserts a workspace; names are unique per user.
func (s *Store) CreateWorkspace(ctx context.Context, w *models.UserWorkspace) error {
	w.UserID = trimSpace(w.UserID)
	w.WorkspaceName = trimSpace(w.WorkspaceName)
	if w.UserID == "" {
		return s.reject("create_workspace", invalid("user_id", "required"))
	}
	if w.WorkspaceName == "" {
		return s.reject("create_workspace", invalid("workspace_name", "required"))
	}
	w.Description = trimPtr(w.Description)

	w.ID = 0
	w.CreatedAt = s.now()
	w.UpdatedAt = w.CreatedAt

	err := s.tx(ctx, "create_workspace", func(tx *gorm.DB) error {
		if err := checkWorkspaceNameFree(tx, w.UserID, w.WorkspaceName, 0); err != nil {
			return err
		}
		return translateError(tx.Create(w).Error, "workspace")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("workspace created", zap.Uint("workspace_id", w.ID), zap.String("user_id", w.UserID))
	return nil
}

// UpdateWorkspace applies u and stamps updated_at.
func (s *Store) UpdateWorkspace(ctx context.Context, id uint, u WorkspaceUpdate) (*models.UserWorkspace, error) {
	var w models.UserWorkspace
	err := s.tx(ctx, "update_workspace", func(tx *gorm.DB) error {
		if err := tx.First(&w, "workspace_id = ?", id).Error; err != nil {
			return translateError(err, fmt.Sprintf("workspace %d", id))
		}
		changes := map[string]any{}
		if u.WorkspaceName != nil {
			name := trimSpace(*u.WorkspaceName)
			if name == "" {
				return invalid("workspace_name", "required")
			}
			if err := checkWorkspaceNameFree(tx, w.UserID, name, id); err != nil {
				return err
			}
			w.WorkspaceName = name
			changes["workspace_name"] = name
		}
		if u.Description != nil {
			w.Description = trimPtr(u.Description)
			changes["description"] = nullable(w.Description)
		}
		if u.IsPublic != nil {
			w.IsPublic = *u.IsPublic
			changes["is_public"] = w.IsPublic
		}
		w.UpdatedAt = s.now()
		changes["updated_at"] = w.UpdatedAt
		return translateError(tx.Model(&models.UserWorkspace{}).Where("workspace_id = ?", id).Updates(changes).Error, "workspace")
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("workspace updated", zap.Uint("workspace_id", id))
	return &w, nil
}

// DeleteWorkspace removes a workspace and its paper entries.
func (s *Store) DeleteWorkspace(ctx context.Context, id uint) error {
	err := s.tx(ctx, "delete_workspace", func(tx *gorm.DB) error {
		res := tx.Delete(&models.UserWorkspace{}, "workspace_id = ?", id)
		if res.Error != nil {
			return translateError(res.Error, "workspace")
		}
		if res.RowsAffected == 0 {
			return notFoundf("workspace %d", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("workspace deleted", zap.Uint("workspace_id", id))
	return nil
}

// AddToWorkspace adds a paper to a workspace. Ratings must be 1..5.
func (s *Store) AddToWorkspace(ctx context.Context, wp *models.WorkspacePaper) error {
	if err := validateRating(wp.Rating); err != nil {
		return s.reject("add_to_workspace", err)
	}
	wp.Notes = trimPtr(wp.Notes)
	wp.Tags = uniqueStrings(wp.Tags)

	wp.ID = 0
	wp.AddedAt = s.now()

	err := s.tx(ctx, "add_to_workspace", func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.UserWorkspace{}, "workspace_id", wp.WorkspaceID, "workspace"); err != nil {
			return err
		}
		if err := requirePaper(tx, wp.PaperID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.WorkspacePaper{}).
			Where("workspace_id = ? AND paper_id = ?", wp.WorkspaceID, wp.PaperID).Count(&n).Error; err != nil {
			return translateError(err, "workspace paper")
		}
		if n > 0 {
			return conflictf("paper %d is already in workspace %d", wp.PaperID, wp.WorkspaceID)
		}
		return translateError(tx.Create(wp).Error, "workspace paper")
	})
	if err != nil {
		return err
	}
	s.Logger.Info("paper added to workspace", zap.Uint("workspace_id", wp.WorkspaceID), zap.Uint("paper_id", wp.PaperID))
	return nil
}

// UpdateWorkspacePaper changes notes, tags or rating of a workspace entry.
func (s *Store) UpdateWorkspacePaper(ctx context.Context, workspaceID, paperID uint, u WorkspacePaperUpdate) (*models.WorkspacePaper, error) {
	if err := validateRating(u.Rating); err != nil {
		return nil, s.reject("update_workspace_paper", err)
	}
	var wp models.WorkspacePaper
	err := s.tx(ctx, "update_workspace_paper", func(tx *gorm.DB) error {
		if err := tx.First(&wp, "workspace_id = ? AND paper_id = ?", workspaceID, paperID).Error; err != nil {
			return translateError(err, fmt.Sprintf("paper %d in workspace %d", paperID, workspaceID))
		}
		changes := map[string]any{}
		if u.Notes != nil {
			wp.Notes = trimPtr(u.Notes)
			changes["notes"] = nullable(wp.Notes)
		}
		if u.Tags != nil {
			wp.Tags = uniqueStrings(*u.Tags)
			changes["tags"] = wp.Tags
		}
		if u.Rating != nil {
			wp.Rating = u.Rating
			changes["rating"] = *u.Rating
		}
		if len(changes) == 0 {
			return nil
		}
		return translateError(tx.Model(&models.WorkspacePaper{}).Where("workspace_paper_id = ?", wp.ID).Updates(changes).Error, "workspace paper")
	})
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

// ListWorkspacePapers returns a workspace's entries in the order they were added.
func (s *Store) ListWorkspacePapers(ctx context.Context, workspaceID uint) ([]models.WorkspacePaper, error) {
	db := s.DB.WithContext(ctx)
	if err := requireRow(db, &models.UserWorkspace{}, "workspace_id", workspaceID, "workspace"); err != nil {
		return nil, err
	}
	out := []models.WorkspacePaper{}
	err := db.Where("workspace_id = ?", workspaceID).Order("added_at, workspace_paper_id").Find(&out).Error
	return out, translateError(err, "workspace papers")
}
